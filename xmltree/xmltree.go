// Package xmltree converts XML documents into a tree of Go structs.
//
// The xmltree package provides routines for accessing an XML document
// as a tree, along with functionality to resolve namespace-prefixed
// strings at any point in the tree. Every Element remembers its parent
// and the line it started on, so callers can walk upwards and report
// source positions.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
)

const recursionLimit = 3000

// XMLNamespace is the namespace bound to the reserved xml prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

var errDeepXML = errors.New("xmltree: xml document too deeply nested")

// An Element represents a single element in an XML document. Elements
// may have zero or more children. The byte array used by the Content
// field is shared among all elements in the document, and should not
// be modified. An Element also captures xml namespace prefixes, so
// that arbitrary QNames in attribute values can be resolved.
type Element struct {
	xml.StartElement
	Content  []byte
	Children []Element
	Scope
	// Line is the 1-based line of the element's start tag.
	Line int

	parent *Element
	doc    *Document
}

// A Scope is the list of XML namespace prefixes visible at an element,
// from least specific to most specific.
type Scope struct {
	// The Space field is the canonical xml namespace,
	// and the Local field is the prefix.
	ns []xml.Name
}

// Namespaces returns the prefix bindings of the scope, least specific
// first. The Space field of each name is the namespace URI and the
// Local field is the prefix.
func (scope *Scope) Namespaces() []xml.Name {
	return slices.Clone(scope.ns)
}

// Resolve translates an XML QName (namespace-prefixed string) to an
// xml.Name with a canonicalized namespace in its Space field. This can
// be used when working with XSD documents, which put QNames in attribute
// values. If qname does not have a prefix, the default namespace is used.
// If a namespace prefix cannot be resolved, the returned value's Space
// field will be the unresolved prefix. Use ResolveNS to detect when a
// namespace prefix cannot be resolved.
func (scope *Scope) Resolve(qname string) xml.Name {
	name, _ := scope.ResolveNS(qname)
	return name
}

// The ResolveNS method is like Resolve, but returns false for its second
// return value if a namespace prefix cannot be resolved.
func (scope *Scope) ResolveNS(qname string) (xml.Name, bool) {
	prefix, local, ok := strings.Cut(qname, ":")
	if !ok {
		prefix, local = "", qname
	}
	if prefix == "xml" {
		return xml.Name{Space: XMLNamespace, Local: local}, true
	}
	for i := len(scope.ns) - 1; i >= 0; i-- {
		if scope.ns[i].Local == prefix {
			return xml.Name{Space: scope.ns[i].Space, Local: local}, true
		}
	}
	if prefix == "" {
		// no default namespace in scope
		return xml.Name{Local: local}, true
	}
	return xml.Name{Space: prefix, Local: local}, false
}

// ResolveDefault is like Resolve, but allows for the default namespace to
// be overridden. The namespace of strings without a namespace prefix
// (known as an NCName in XML terminology) will be defaultns.
func (scope *Scope) ResolveDefault(qname, defaultns string) xml.Name {
	if defaultns == "" || strings.Contains(qname, ":") {
		return scope.Resolve(qname)
	}
	return xml.Name{Space: defaultns, Local: qname}
}

// Prefix is the inverse of Resolve. It uses the closest prefix
// defined for a namespace to create a string of the form
// prefix:local. If the namespace cannot be found, an empty string
// is returned.
func (scope *Scope) Prefix(name xml.Name) (qname string) {
	if name.Space == XMLNamespace {
		return "xml:" + name.Local
	}
	for i := len(scope.ns) - 1; i >= 0; i-- {
		if scope.ns[i].Space != name.Space {
			continue
		}
		if scope.ns[i].Local == "" {
			return name.Local
		}
		return scope.ns[i].Local + ":" + name.Local
	}
	if name.Space == "" {
		return name.Local
	}
	return ""
}

func (scope *Scope) pushNS(tag xml.StartElement) {
	var added []xml.Name
	for _, attr := range tag.Attr {
		if attr.Name.Space == "xmlns" {
			added = append(added, xml.Name{Space: attr.Value, Local: attr.Name.Local})
		} else if attr.Name.Space == "" && attr.Name.Local == "xmlns" {
			added = append(added, xml.Name{Space: attr.Value})
		}
	}
	if len(added) > 0 {
		scope.ns = append(scope.ns, added...)
		// Ensure that future additions to the scope create
		// a new backing array. This prevents the scope from
		// being clobbered during parsing.
		scope.ns = scope.ns[:len(scope.ns):len(scope.ns)]
	}
}

// Attr gets the value of the first attribute whose name matches the
// space and local arguments. If space is the empty string, only
// attributes' local names are considered when looking for a match.
// If an attribute could not be found, the empty string is returned.
func (el *Element) Attr(space, local string) string {
	for _, v := range el.StartElement.Attr {
		if v.Name.Local != local {
			continue
		}
		if space == "" || space == v.Name.Space {
			return v.Value
		}
	}
	return ""
}

// HasAttr reports whether the element carries an attribute with the
// given local name, in any namespace.
func (el *Element) HasAttr(local string) bool {
	for _, v := range el.StartElement.Attr {
		if v.Name.Local == local && !isNamespaceDecl(v.Name) {
			return true
		}
	}
	return false
}

// Attrs returns the element's attributes keyed by local name. Namespace
// declarations are not included. When two attributes share a local
// name in different namespaces, the first one wins.
func (el *Element) Attrs() map[string]string {
	attrs := make(map[string]string, len(el.StartElement.Attr))
	for _, v := range el.StartElement.Attr {
		if isNamespaceDecl(v.Name) {
			continue
		}
		if _, ok := attrs[v.Name.Local]; !ok {
			attrs[v.Name.Local] = v.Value
		}
	}
	return attrs
}

func isNamespaceDecl(name xml.Name) bool {
	return name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns")
}

// ChildrenNamed returns the direct children whose local name is local,
// regardless of namespace, in document order.
func (el *Element) ChildrenNamed(local string) []*Element {
	var result []*Element
	for i := range el.Children {
		if el.Children[i].Name.Local == local {
			result = append(result, &el.Children[i])
		}
	}
	return result
}

// ChildrenWithAttr is like ChildrenNamed, but only returns children
// that carry the attribute attr.
func (el *Element) ChildrenWithAttr(local, attr string) []*Element {
	var result []*Element
	for _, child := range el.ChildrenNamed(local) {
		if child.HasAttr(attr) {
			result = append(result, child)
		}
	}
	return result
}

// Parent returns the element's parent, or nil for the root element and
// for elements built outside of Parse.
func (el *Element) Parent() *Element {
	return el.parent
}

// Document returns the document the element was parsed from.
func (el *Element) Document() *Document {
	return el.doc
}

// Ancestors returns an iterator over the element's ancestors whose
// local name is one of locals, nearest first. With no locals, every
// ancestor is yielded. Iteration ends at the document root.
func (el *Element) Ancestors(locals ...string) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for p := el.parent; p != nil; p = p.parent {
			if len(locals) > 0 && !slices.Contains(locals, p.Name.Local) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Text returns the concatenated character data of the element and
// its descendants in document order. Entities are expanded.
func (el *Element) Text() string {
	var buf strings.Builder
	d := xml.NewDecoder(bytes.NewReader(el.Content))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = passThrough
	for {
		tok, err := d.Token()
		if err != nil {
			break
		}
		if text, ok := tok.(xml.CharData); ok {
			buf.Write(text)
		}
	}
	return buf.String()
}

// StripNamespace turns a Clark-notation tag such as {urn:x}local into
// its local part. Tags without a namespace are returned unchanged.
func StripNamespace(tag string) string {
	if strings.HasPrefix(tag, "{") {
		if i := strings.IndexByte(tag, '}'); i >= 0 {
			return tag[i+1:]
		}
	}
	return tag
}

// Unmarshal parses the XML encoding of the Element and stores the result
// in the value pointed to by v. Unmarshal follows the same rules as
// xml.Unmarshal, but only parses the portion of the XML document
// contained by the Element.
func (el *Element) Unmarshal(v interface{}) error {
	start := el.StartElement.Copy()
	start.Attr = slices.DeleteFunc(start.Attr, func(a xml.Attr) bool {
		return isNamespaceDecl(a.Name)
	})
	for _, ns := range el.ns {
		name := xml.Name{Local: "xmlns"}
		if ns.Local != "" {
			name.Local += ":" + ns.Local
		}
		start.Attr = append(start.Attr, xml.Attr{Name: name, Value: ns.Space})
	}
	if start.Name.Space != "" {
		qname := el.Prefix(start.Name)
		if qname == "" {
			return fmt.Errorf("could not find namespace prefix for %q when decoding %s",
				start.Name.Space, start.Name.Local)
		}
		start.Name = xml.Name{Local: qname}
	}

	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Flush(); err != nil {
		return err
	}
	buf.Write(el.Content)
	if err := e.EncodeToken(xml.EndElement{Name: start.Name}); err != nil {
		return err
	}
	if err := e.Flush(); err != nil {
		return err
	}
	return xml.Unmarshal(buf.Bytes(), v)
}

// Save some typing when scanning xml
type scanner struct {
	*xml.Decoder
	data  []byte
	tok   xml.Token
	err   error
	start int64 // offset of the current token

	lines  int
	lineAt int64
}

func (s *scanner) scan() bool {
	if s.err != nil {
		return false
	}
	s.start = s.InputOffset()
	s.tok, s.err = s.Token()
	return s.err == nil
}

// line returns the 1-based line of the current token. Tokens are
// visited in order, so newlines are only counted once.
func (s *scanner) line() int {
	if s.start > s.lineAt {
		s.lines += bytes.Count(s.data[s.lineAt:s.start], []byte{'\n'})
		s.lineAt = s.start
	}
	return s.lines + 1
}

// Parse builds a tree of Elements by reading an XML document. The
// byte slice passed to Parse is expected to be a valid XML document
// with a single root element.
func Parse(data []byte) (*Element, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

func parseTree(data []byte, doc *Document) (*Element, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = passThrough
	scanner := scanner{Decoder: d, data: data}
	root := &Element{doc: doc}

	for scanner.scan() {
		if start, ok := scanner.tok.(xml.StartElement); ok {
			root.StartElement = start.Copy()
			root.Line = scanner.line()
			break
		}
	}
	if scanner.err != nil {
		if scanner.err == io.EOF {
			return nil, errors.New("xmltree: document has no root element")
		}
		return nil, scanner.err
	}
	if err := root.parse(&scanner, data, 0); err != nil {
		return nil, err
	}
	root.link(doc)
	return root, nil
}

func (el *Element) parse(scanner *scanner, data []byte, depth int) error {
	if depth > recursionLimit {
		return errDeepXML
	}
	el.pushNS(el.StartElement)

	begin := scanner.InputOffset()
	end := begin
walk:
	for scanner.scan() {
		switch tok := scanner.tok.(type) {
		case xml.StartElement:
			child := Element{StartElement: tok.Copy(), Scope: el.Scope, Line: scanner.line()}
			if err := child.parse(scanner, data, depth+1); err != nil {
				return err
			}
			el.Children = append(el.Children, child)
		case xml.EndElement:
			if tok.Name != el.Name {
				return fmt.Errorf("expecting </%s>, got </%s>", el.Prefix(el.Name), el.Prefix(tok.Name))
			}
			el.Content = data[int(begin):int(end)]
			break walk
		}
		end = scanner.InputOffset()
	}
	return scanner.err
}

// link sets parent and document pointers once the Children slices
// have stopped growing.
func (el *Element) link(doc *Document) {
	el.doc = doc
	for i := range el.Children {
		el.Children[i].parent = el
		el.Children[i].link(doc)
	}
}

// SearchFunc traverses the Element tree in depth-first order and returns
// a slice of Elements for which the function fn returns true. Note that
// SearchFunc does not search the children of Elements that match the search;
// there is no parent-child relationship between the Elements returned in
// the result.
func (root *Element) SearchFunc(fn func(*Element) bool) []*Element {
	var results []*Element
	var search func(el *Element)

	search = func(el *Element) {
		if fn(el) {
			results = append(results, el)
			return
		}
		for i := range el.Children {
			search(&el.Children[i])
		}
	}
	for i := range root.Children {
		search(&root.Children[i])
	}
	return results
}

// Search searches the Element tree for Elements with an xml tag
// matching the name and xml namespace. If space is the empty string,
// any namespace is matched.
func (root *Element) Search(space, local string) []*Element {
	return root.SearchFunc(func(el *Element) bool {
		if local != el.Name.Local {
			return false
		}
		return space == "" || space == el.Name.Space
	})
}
