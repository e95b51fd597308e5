package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format names an output format.
type Format string

const (
	Simple Format = "simple"
	Plain  Format = "plain"
	GitHub Format = "github"
	TSV    Format = "tsv"
	CSV    Format = "csv"
	JSON   Format = "json"
	YAML   Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Simple, Plain, GitHub, TSV, CSV, JSON, YAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown table format %q", s)
}

// Options control rendering.
type Options struct {
	Format Format
	// RowNumbers prefixes each row with its 1-based index. The
	// json and yaml formats ignore it.
	RowNumbers bool
}

// Render writes t to w.
func Render(w io.Writer, t Table, opts Options) error {
	switch opts.Format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t.value())
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t.value()); err != nil {
			return err
		}
		return enc.Close()
	}

	headers, rows := t.Headers, t.Rows
	if opts.RowNumbers {
		headers = append([]string{"#"}, headers...)
		numbered := make([][]string, len(rows))
		for i, row := range rows {
			numbered[i] = append([]string{strconv.Itoa(i + 1)}, row...)
		}
		rows = numbered
	}

	switch opts.Format {
	case CSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(headers); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	case TSV:
		return writeLines(w, headers, rows, func(row []string) string {
			return strings.Join(clean(row, "\t", " "), "\t")
		})
	case GitHub:
		sep := make([]string, len(headers))
		for i := range sep {
			sep[i] = "---"
		}
		line := func(row []string) string {
			return "| " + strings.Join(clean(row, "|", `\|`), " | ") + " |"
		}
		if _, err := fmt.Fprintln(w, line(headers)); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "|"+strings.Join(sep, "|")+"|"); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, line(row)); err != nil {
				return err
			}
		}
		return nil
	case Plain:
		return tabulate(w, headers, rows, false)
	case Simple, "":
		return tabulate(w, headers, rows, true)
	}
	return fmt.Errorf("unknown table format %q", opts.Format)
}

// value is what the json and yaml formats encode.
func (t Table) value() any {
	if t.Data != nil {
		return t.Data
	}
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(row))
		for i, v := range row {
			if i < len(t.Headers) {
				rec[t.Headers[i]] = v
			}
		}
		records = append(records, rec)
	}
	return records
}

func tabulate(w io.Writer, headers []string, rows [][]string, rule bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	line := func(row []string) {
		fmt.Fprintln(tw, strings.Join(clean(row, "\t", " "), "\t"))
	}
	line(headers)
	if rule {
		dashes := make([]string, len(headers))
		for i, h := range headers {
			dashes[i] = strings.Repeat("-", max(len([]rune(h)), 3))
		}
		line(dashes)
	}
	for _, row := range rows {
		line(row)
	}
	return tw.Flush()
}

func writeLines(w io.Writer, headers []string, rows [][]string, format func([]string) string) error {
	if _, err := fmt.Fprintln(w, format(headers)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, format(row)); err != nil {
			return err
		}
	}
	return nil
}

// clean replaces old in every cell, and newlines with spaces.
func clean(row []string, old, repl string) []string {
	out := make([]string, len(row))
	r := strings.NewReplacer(old, repl, "\r\n", " ", "\n", " ")
	for i, v := range row {
		out[i] = r.Replace(v)
	}
	return out
}
