// Package report turns query results into tables and renders them.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CognitoIQ/ocxschema/xsd"
)

// A Table is a rectangular result. Data, if set, is the typed value
// behind the rows; the json and yaml formats render Data instead of
// the cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Data    any
}

// Append adds a row, converting each value with fmt.Sprint.
func (t *Table) Append(values ...any) {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = cell(v)
	}
	t.Rows = append(t.Rows, row)
}

func cell(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ", ")
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

// Declarations lists declarations with the columns of the element
// listing: Prefix, Name, Type, Abstract, SubstitutionGroup,
// Attributes, Parents, Description, Namespace and Document.
func Declarations(m *xsd.Model, decls []*xsd.Declaration) Table {
	t := Table{
		Headers: []string{"Prefix", "Name", "Type", "Abstract", "SubstitutionGroup",
			"Attributes", "Parents", "Description", "Namespace", "Document"},
		Data: decls,
	}
	for _, d := range decls {
		sg := ""
		if !d.SubstitutionGroup.IsZero() {
			sg = m.TypedName(d.SubstitutionGroup)
		}
		attrs := make([]string, 0, len(d.Attributes))
		for _, a := range d.Attributes {
			attrs = append(attrs, a.Name)
		}
		parents := make([]string, 0, len(d.Parents))
		for _, p := range d.Parents {
			parents = append(parents, p.Local)
		}
		t.Append(d.Prefix, d.Name, m.TypedName(d.Type), d.Abstract, sg,
			attrs, parents, d.Doc, d.Namespace, d.Document)
	}
	return t
}

// Members lists the attributes or children of a declaration.
func Members(m *xsd.Model, title string, members []xsd.Member) Table {
	t := Table{
		Title:   title,
		Headers: []string{"Name", "Type", "Use", "Cardinality", "Choice", "Default", "Fixed", "Reference", "Description"},
		Data:    members,
	}
	for _, mb := range members {
		c := mb.Cardinality
		t.Append(m.TypedName(mb.Tag), m.TypedName(mb.Type), string(c.Use), c, c.Choice,
			c.Default, c.Fixed, mb.Ref, mb.Doc)
	}
	return t
}

// Parents lists the parents of a declaration.
func Parents(m *xsd.Model, d *xsd.Declaration) Table {
	t := Table{Title: "Parents", Headers: []string{"Parent", "Namespace"}, Data: d.Parents}
	for _, p := range d.Parents {
		t.Append(m.TypedName(p), p.Space)
	}
	return t
}

// Assertions lists the assertion tests of a declaration.
func Assertions(d *xsd.Declaration) Table {
	t := Table{Title: "Assertions", Headers: []string{"Test"}, Data: d.Assertions}
	for _, a := range d.Assertions {
		t.Append(a)
	}
	return t
}

// Summary lists the schema version, the declaration counts and the
// loaded documents.
func Summary(s xsd.Summary) Table {
	t := Table{Headers: []string{"Item", "Value"}, Data: s}
	t.Append("Schema Version", s.Version)
	for _, kc := range s.Counts {
		t.Append(kc.Kind, kc.Count)
	}
	t.Append("Total", s.Total())
	for i, doc := range s.Documents {
		label := "Imported Document"
		if i == 0 {
			label = "Document"
		}
		t.Append(label, doc)
	}
	return t
}

// Namespaces lists the prefix bindings.
func Namespaces(ns []xsd.Namespace) Table {
	t := Table{Headers: []string{"Prefix", "Namespace"}, Data: ns}
	for _, n := range ns {
		t.Append(n.Prefix, n.URI)
	}
	return t
}

// Changes lists the schema history.
func Changes(changes []xsd.Change) Table {
	t := Table{Headers: []string{"Version", "Author", "Date", "Description"}, Data: changes}
	for _, c := range changes {
		t.Append(c.Version, c.Author, c.Date, c.Description)
	}
	return t
}
