package xmltree

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"

	"github.com/CognitoIQ/ocxschema/xsderrors"
)

// A Document is a parsed XML document together with the metadata of
// its prolog.
type Document struct {
	Root *Element
	// Encoding is the encoding label declared in the prolog, or
	// UTF-8 when the prolog does not declare one.
	Encoding string
	// Version is the XML version declared in the prolog, or 1.0.
	Version string
	// Standalone is the standalone pseudo-attribute, if present.
	Standalone string
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}

	prologRe = regexp.MustCompile(`^\s*<\?xml\s([^?]*)\?>`)
	pseudoRe = regexp.MustCompile(`([A-Za-z]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// ParseDocument parses an XML document. Documents in an encoding other
// than UTF-8 are transcoded before parsing, using the label from the
// prolog or the byte order mark. The XML version is recorded but not
// enforced, so XML 1.1 documents are accepted.
func ParseDocument(data []byte) (*Document, error) {
	data, err := transcode(data)
	if err != nil {
		return nil, err
	}
	doc := &Document{Encoding: "UTF-8", Version: "1.0"}
	data = doc.readProlog(data)

	root, err := parseTree(data, doc)
	if err != nil {
		return nil, err
	}
	doc.Root = root
	return doc, nil
}

// Contains returns an error if el was not parsed as part of d.
func (d *Document) Contains(el *Element) error {
	if el == nil || el.doc != d {
		node := ""
		if el != nil {
			node = el.Name.Local
		}
		return &xsderrors.MalformedNodeError{Node: node}
	}
	return nil
}

// readProlog records the prolog's pseudo-attributes and returns the
// document with its version rewritten to 1.0, the only version
// encoding/xml accepts.
func (d *Document) readProlog(data []byte) []byte {
	m := prologRe.FindSubmatchIndex(data)
	if m == nil {
		return data
	}
	body := data[m[2]:m[3]]
	var versionAt []int
	for _, p := range pseudoRe.FindAllSubmatchIndex(body, -1) {
		valueAt := p[4:6]
		if valueAt[0] < 0 {
			valueAt = p[6:8]
		}
		value := string(body[valueAt[0]:valueAt[1]])
		switch string(body[p[2]:p[3]]) {
		case "version":
			d.Version = value
			versionAt = []int{m[2] + valueAt[0], m[2] + valueAt[1]}
		case "encoding":
			d.Encoding = value
		case "standalone":
			d.Standalone = value
		}
	}
	if versionAt == nil || d.Version == "1.0" {
		return data
	}
	out := make([]byte, 0, len(data))
	out = append(out, data[:versionAt[0]]...)
	out = append(out, "1.0"...)
	return append(out, data[versionAt[1]:]...)
}

func prologEncoding(data []byte) string {
	m := prologRe.FindSubmatch(data)
	if m == nil {
		return ""
	}
	for _, p := range pseudoRe.FindAllSubmatch(m[1], -1) {
		if string(p[1]) == "encoding" {
			if len(p[2]) > 0 {
				return string(p[2])
			}
			return string(p[3])
		}
	}
	return ""
}

// transcode returns data as UTF-8 without a byte order mark.
func transcode(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], nil
	case bytes.HasPrefix(data, bomUTF16BE), bytes.HasPrefix(data, bomUTF16LE):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("xmltree: decode UTF-16: %w", err)
		}
		return out, nil
	}
	label := prologEncoding(data)
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return data, nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("xmltree: unsupported encoding %q", label)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("xmltree: decode %s: %w", name, err)
	}
	return out, nil
}

// passThrough is installed as the decoder's CharsetReader. Input has
// already been transcoded to UTF-8 by the time a decoder sees it.
func passThrough(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}
