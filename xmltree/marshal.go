package xmltree

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"text/template"
)

var tagTmpl = template.Must(template.New("Marshal XML tags").Funcs(template.FuncMap{
	"escape": escapeString,
}).Parse(
	`{{define "start" -}}
	<{{.Name -}}
	{{range .Attrs}} {{.Name}}="{{escape .Value}}"{{end -}}
	{{range .NS }} xmlns{{ if .Local }}:{{ .Local }}{{end}}="{{ escape .Space }}"{{end}}>
	{{- end}}

	{{define "end" -}}
	</{{.Name}}>{{end}}`))

type tagAttr struct {
	Name, Value string
}

type tag struct {
	Name  string
	Attrs []tagAttr
	NS    []xml.Name
}

// Marshal produces the XML encoding of an Element as a self-contained
// document. Namespace prefixes in scope at the Element are declared on
// its start tag, so a subtree cut out of a larger document can be
// parsed on its own. Changes made to the Children of a parsed
// Element are not reflected; the original Content is written.
func Marshal(el *Element) []byte {
	var buf bytes.Buffer
	if err := Encode(&buf, el); err != nil {
		// bytes.Buffer.Write should never return an error
		panic(err)
	}
	return buf.Bytes()
}

// Encode writes the XML encoding of the Element to w.
// Encode returns any errors encountered writing to w.
func Encode(w io.Writer, el *Element) error {
	enc := encoder{w: w}
	return enc.encode(el)
}

// String returns the XML encoding of an Element
// and its children as a string.
func (el *Element) String() string {
	return string(Marshal(el))
}

type encoder struct {
	w io.Writer
}

// encode writes the start tag, the raw content and the end tag. The
// content is the exact source text, so nested namespace declarations
// and mixed text survive; only the prefixes inherited from ancestors
// have to be declared again.
func (e *encoder) encode(el *Element) error {
	t := tag{
		Name: el.tagName(),
		NS:   inheritedScope(el),
	}
	for _, a := range el.StartElement.Attr {
		if isNamespaceDecl(a.Name) {
			continue
		}
		t.Attrs = append(t.Attrs, tagAttr{Name: el.attrName(a.Name), Value: a.Value})
	}
	if err := tagTmpl.ExecuteTemplate(e.w, "start", t); err != nil {
		return err
	}
	if _, err := e.w.Write(el.Content); err != nil {
		return err
	}
	return tagTmpl.ExecuteTemplate(e.w, "end", t)
}

func (el *Element) tagName() string {
	if name := el.Prefix(el.Name); name != "" {
		return name
	}
	return el.Name.Local
}

func (el *Element) attrName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	if qname := el.Prefix(name); qname != "" && strings.Contains(qname, ":") {
		return qname
	}
	return name.Local
}

// inheritedScope returns every prefix binding in scope at el. When a
// prefix is bound more than once the most specific binding wins.
func inheritedScope(el *Element) []xml.Name {
	seen := make(map[string]bool)
	var scope []xml.Name
	for i := len(el.ns) - 1; i >= 0; i-- {
		if seen[el.ns[i].Local] {
			continue
		}
		seen[el.ns[i].Local] = true
		scope = append([]xml.Name{el.ns[i]}, scope...)
	}
	return scope
}

func escapeString(s string) string {
	var buf strings.Builder
	// strings.Builder.Write never fails
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
