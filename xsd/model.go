package xsd

import (
	"slices"
	"strings"

	"github.com/CognitoIQ/ocxschema/xmltree"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

// lookupOrder decides which declaration Lookup returns when several
// kinds share a name.
var lookupOrder = []Kind{KindElement, KindComplexType, KindSimpleType, KindAttributeGroup, KindAttribute}

// A Model holds the global declarations of a parsed schema and the
// metadata of its main document. A Model is not modified after it is
// built and may be shared between goroutines.
type Model struct {
	source     string
	encoding   string
	xmlVersion string
	version    string
	targetNS   string
	defaultNS  string
	documents  []string
	changes    []Change

	namespaces []Namespace
	prefixes   map[string]string // prefix -> namespace
	uris       map[string]string // namespace -> prefix

	decls  map[declKey]*Declaration
	byKind map[Kind][]*Declaration
	nodes  map[*Declaration]*xmltree.Element

	unresolved []*xsderrors.UnresolvedReferenceError
}

func newModel(source string, main *schemaDoc) *Model {
	m := &Model{
		source:     source,
		encoding:   main.doc.Encoding,
		xmlVersion: main.doc.Version,
		version:    SchemaVersion(main.root),
		targetNS:   main.targetNS,
		changes:    SchemaChanges(main.root),
		prefixes:   make(map[string]string),
		uris:       make(map[string]string),
		decls:      make(map[declKey]*Declaration),
		byKind:     make(map[Kind][]*Declaration),
		nodes:      make(map[*Declaration]*xmltree.Element),
	}
	for _, ns := range main.root.Namespaces() {
		if ns.Local == "" {
			m.defaultNS = ns.Space
		}
	}
	return m
}

func (m *Model) bind(prefix, uri string) {
	if _, ok := m.prefixes[prefix]; ok {
		return
	}
	m.prefixes[prefix] = uri
	m.namespaces = append(m.namespaces, Namespace{Prefix: prefix, URI: uri})
	if _, ok := m.uris[uri]; !ok && prefix != "" {
		m.uris[uri] = prefix
	}
}

// index publishes the built declarations. Candidates are already in
// key order.
func (m *Model) index(idx *schemaIndex) {
	for _, c := range idx.candidates {
		if c.decl == nil {
			continue
		}
		m.decls[c.key] = c.decl
		m.byKind[c.key.Kind] = append(m.byKind[c.key.Kind], c.decl)
		m.nodes[c.decl] = c.node
	}
}

// Lookup finds a declaration by name. The name may be written as
// {namespace}local, prefix:local or a bare local name. A bare name is
// looked up in the main document's default namespace, then in its
// target namespace, then in no namespace. When several kinds share the
// name, elements are preferred, then complex types, simple types,
// attribute groups and attributes. Lookup returns nil if nothing
// matches.
func (m *Model) Lookup(name string) *Declaration {
	for _, q := range m.candidateNames(name) {
		for _, k := range lookupOrder {
			if d := m.decls[declKey{q, k}]; d != nil {
				return d
			}
		}
	}
	return nil
}

// LookupKind is like Lookup but only considers declarations of kind k.
func (m *Model) LookupKind(name string, k Kind) *Declaration {
	for _, q := range m.candidateNames(name) {
		if d := m.decls[declKey{q, k}]; d != nil {
			return d
		}
	}
	return nil
}

// Get returns the declaration of kind k named q, or nil.
func (m *Model) Get(q QName, k Kind) *Declaration {
	return m.decls[declKey{q, k}]
}

func (m *Model) candidateNames(name string) []QName {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if strings.HasPrefix(name, "{") {
		q, ok := ParseQName(name)
		if !ok {
			return nil
		}
		return []QName{q}
	}
	if prefix, local, ok := strings.Cut(name, ":"); ok {
		uri, ok := m.prefixes[prefix]
		if !ok {
			return nil
		}
		return []QName{Q(uri, local)}
	}
	var names []QName
	for _, ns := range []string{m.defaultNS, m.targetNS, ""} {
		q := Q(ns, name)
		if !slices.Contains(names, q) {
			names = append(names, q)
		}
	}
	return names
}

// Declarations returns the declarations of kind k sorted by QName. The
// slice is a fresh copy.
func (m *Model) Declarations(k Kind) []*Declaration {
	return slices.Clone(m.byKind[k])
}

// All returns every declaration, grouped by kind in the order of Kinds.
func (m *Model) All() []*Declaration {
	var all []*Declaration
	for _, k := range Kinds {
		all = append(all, m.byKind[k]...)
	}
	return all
}

// Len returns the number of declarations.
func (m *Model) Len() int {
	return len(m.decls)
}

// Summary returns the schema version, the declaration counts, the
// namespace table and the loaded documents.
func (m *Model) Summary() Summary {
	s := Summary{
		Version:    m.version,
		Namespaces: m.Namespaces(),
		Documents:  slices.Clone(m.documents),
	}
	for _, k := range Kinds {
		s.Counts = append(s.Counts, KindCount{Kind: k, Count: len(m.byKind[k])})
	}
	return s
}

// Changes returns the schema history. ChangeCurrent keeps the entries
// whose version is the schema version.
func (m *Model) Changes(filter ChangeFilter) []Change {
	if filter != ChangeCurrent {
		return slices.Clone(m.changes)
	}
	var current []Change
	for _, c := range m.changes {
		if c.Version == m.version {
			current = append(current, c)
		}
	}
	return current
}

// Namespaces returns the prefix bindings of the loaded documents. The
// xml prefix comes first, followed by the root bindings of each
// document in load order.
func (m *Model) Namespaces() []Namespace {
	return slices.Clone(m.namespaces)
}

// Prefix returns the first non-empty prefix bound to uri.
func (m *Model) Prefix(uri string) (string, bool) {
	p, ok := m.uris[uri]
	return p, ok
}

// NamespaceURI returns the namespace bound to prefix.
func (m *Model) NamespaceURI(prefix string) (string, bool) {
	uri, ok := m.prefixes[prefix]
	return uri, ok
}

// TypedName renders q as prefix:local. Names in a namespace without a
// prefix are rendered in {namespace}local form, and the zero QName as
// Untyped.
func (m *Model) TypedName(q QName) string {
	if q.IsZero() {
		return Untyped
	}
	if q.Space == "" {
		return q.Local
	}
	if p, ok := m.uris[q.Space]; ok {
		return p + ":" + q.Local
	}
	return q.String()
}

// Version returns the fixed value of the schemaVersion attribute, or
// MissingVersion.
func (m *Model) Version() string { return m.version }

// DocEncoding returns the encoding declared by the main document.
func (m *Model) DocEncoding() string { return m.encoding }

// DocXMLVersion returns the XML version declared by the main document.
func (m *Model) DocXMLVersion() string { return m.xmlVersion }

// Source returns the location the model was built from.
func (m *Model) Source() string { return m.source }

// TargetNamespace returns the target namespace of the main document.
func (m *Model) TargetNamespace() string { return m.targetNS }

// Documents returns the locations of the loaded schema documents, the
// main document first.
func (m *Model) Documents() []string { return slices.Clone(m.documents) }

// Unresolved returns the references that name no declaration, in the
// order they were found.
func (m *Model) Unresolved() []*xsderrors.UnresolvedReferenceError {
	return slices.Clone(m.unresolved)
}

// Node returns the schema element d was built from.
func (m *Model) Node(d *Declaration) *xmltree.Element {
	return m.nodes[d]
}

// ElementNames returns the prefixed names of all global elements.
func (m *Model) ElementNames() []string {
	names := make([]string, 0, len(m.byKind[KindElement]))
	for _, d := range m.byKind[KindElement] {
		names = append(names, d.TypedName())
	}
	return names
}

