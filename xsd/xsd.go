// Package xsd builds a queryable model of the global declarations in
// an XML schema.
//
// A Reader loads a schema document, follows its imports and builds a
// Model: every named element, attribute, attribute group, simple type
// and complex type, with type references, inherited attributes and
// children, cardinality, annotations and the reverse parent links
// resolved. Declarations refer to each other by QName only; lookups go
// through the owning Model.
package xsd

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const (
	schemaNS = "http://www.w3.org/2001/XMLSchema"
	xmlNS    = "http://www.w3.org/XML/1998/namespace"
)

// Untyped is the display value of an absent type reference.
const Untyped = "untyped"

// MissingVersion is returned by SchemaVersion when the schema does
// not declare a schemaVersion attribute.
const MissingVersion = "Missing"

// A QName is a namespace URI and a local name. It is the key of every
// declaration in a Model.
type QName xml.Name

// Q is shorthand for building a QName.
func Q(space, local string) QName {
	return QName{Space: space, Local: local}
}

// ParseQName reads the {namespace}local form produced by String. A
// string without braces is a name in no namespace.
func ParseQName(s string) (QName, bool) {
	if !strings.HasPrefix(s, "{") {
		return QName{Local: s}, s != ""
	}
	space, local, ok := strings.Cut(s[1:], "}")
	if !ok || local == "" {
		return QName{}, false
	}
	return QName{Space: space, Local: local}, true
}

// String returns the name in {namespace}local form.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// IsZero reports whether q is the zero QName.
func (q QName) IsZero() bool {
	return q.Space == "" && q.Local == ""
}

func (q QName) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *QName) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*q = QName{}
		return nil
	}
	v, ok := ParseQName(string(text))
	if !ok {
		return fmt.Errorf("invalid qualified name %q", text)
	}
	*q = v
	return nil
}

// Compare orders QNames by namespace, then by local name.
func Compare(a, b QName) int {
	if c := cmp.Compare(a.Space, b.Space); c != 0 {
		return c
	}
	return cmp.Compare(a.Local, b.Local)
}

// A Kind is the category of a global declaration.
type Kind int

const (
	KindElement Kind = iota
	KindAttribute
	KindAttributeGroup
	KindSimpleType
	KindComplexType
)

// Kinds lists every Kind in reporting order.
var Kinds = []Kind{KindElement, KindAttribute, KindAttributeGroup, KindSimpleType, KindComplexType}

var kindNames = [...]string{
	KindElement:        "element",
	KindAttribute:      "attribute",
	KindAttributeGroup: "attributeGroup",
	KindSimpleType:     "simpleType",
	KindComplexType:    "complexType",
}

// String returns the XSD local name of the declaring element.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// ParseKind accepts the XSD local name of a kind, case-insensitively,
// as well as the plural command names used by the CLI (elements,
// attributes, attribute-groups, simple, complex).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "element", "elements":
		return KindElement, nil
	case "attribute", "attributes":
		return KindAttribute, nil
	case "attributegroup", "attributegroups", "attribute-group", "attribute-groups", "group", "groups":
		return KindAttributeGroup, nil
	case "simpletype", "simpletypes", "simple-type", "simple":
		return KindSimpleType, nil
	case "complextype", "complextypes", "complex-type", "complex":
		return KindComplexType, nil
	}
	return 0, fmt.Errorf("unknown declaration kind %q", s)
}

func kindOf(local string) (Kind, bool) {
	for k, name := range kindNames {
		if name == local {
			return Kind(k), true
		}
	}
	return 0, false
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Use tells whether an element or attribute must be present.
type Use string

const (
	Required Use = "req."
	Optional Use = "opt."
)

// Unbounded is the Upper bound of maxOccurs="unbounded".
const Unbounded = -1

// Cardinality is the occurrence constraint of an element or attribute.
type Cardinality struct {
	Lower int `json:"lower" yaml:"lower"`
	// Upper is Unbounded for maxOccurs="unbounded".
	Upper   int    `json:"upper" yaml:"upper"`
	Use     Use    `json:"use" yaml:"use"`
	Choice  bool   `json:"choice" yaml:"choice"`
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
	Fixed   string `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// String returns the bounds as [lower, upper], with ∞ for unbounded.
func (c Cardinality) String() string {
	upper := "∞"
	if c.Upper != Unbounded {
		upper = strconv.Itoa(c.Upper)
	}
	return "[" + strconv.Itoa(c.Lower) + ", " + upper + "]"
}

// Unbounded reports whether the upper bound is unbounded.
func (c Cardinality) Unbounded() bool { return c.Upper == Unbounded }

// A Member is one attribute or child element listed by a declaration.
// Members may be local declarations or references to globals; for the
// latter, Ref is true and Tag names the global.
type Member struct {
	Tag         QName       `json:"tag" yaml:"tag"`
	Name        string      `json:"name" yaml:"name"`
	Type        QName       `json:"type,omitzero" yaml:"type,omitempty"`
	Ref         bool        `json:"ref,omitempty" yaml:"ref,omitempty"`
	Doc         string      `json:"doc,omitempty" yaml:"doc,omitempty"`
	Cardinality Cardinality `json:"cardinality" yaml:"cardinality"`
	Line        int         `json:"line" yaml:"line"`
}

// A Declaration is a global schema declaration.
type Declaration struct {
	Kind      Kind   `json:"kind" yaml:"kind"`
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
	// Prefix is empty when no prefix is bound to Namespace.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Tag    QName  `json:"tag" yaml:"tag"`
	// Type is the zero QName for untyped declarations.
	Type              QName  `json:"type,omitzero" yaml:"type,omitempty"`
	Abstract          bool   `json:"abstract" yaml:"abstract"`
	SubstitutionGroup QName  `json:"substitutionGroup,omitzero" yaml:"substitutionGroup,omitempty"`
	Doc               string `json:"doc,omitempty" yaml:"doc,omitempty"`
	// Cardinality is nil for types and attribute groups.
	Cardinality *Cardinality `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	Attributes  []Member     `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Children    []Member     `json:"children,omitempty" yaml:"children,omitempty"`
	Parents     []QName      `json:"parents,omitempty" yaml:"parents,omitempty"`
	Assertions  []string     `json:"assertions,omitempty" yaml:"assertions,omitempty"`
	Line        int          `json:"line" yaml:"line"`
	// Document is the location of the schema file holding the declaration.
	Document string `json:"document" yaml:"document"`
}

// TypedName returns prefix:name, or the bare name without a prefix.
func (d *Declaration) TypedName() string {
	if d.Prefix == "" {
		return d.Name
	}
	return d.Prefix + ":" + d.Name
}

// TypeName returns the type reference, or Untyped.
func (d *Declaration) TypeName() string {
	if d.Type.IsZero() {
		return Untyped
	}
	return d.Type.String()
}

// IsTyped reports whether the declaration has a type reference.
func (d *Declaration) IsTyped() bool {
	return !d.Type.IsZero()
}

// A Change is one SchemaChange entry of the schema's history.
type Change struct {
	Version     string `json:"version" yaml:"version"`
	Author      string `json:"author" yaml:"author"`
	Date        string `json:"date" yaml:"date"`
	Description string `json:"description" yaml:"description"`
}

// ChangeFilter selects the entries returned by Model.Changes.
type ChangeFilter string

const (
	// ChangeCurrent keeps the changes whose version equals the schema version.
	ChangeCurrent ChangeFilter = "current"
	ChangeAll     ChangeFilter = "all"
)

// ParseChangeFilter reads "current" or "all".
func ParseChangeFilter(s string) (ChangeFilter, error) {
	switch f := ChangeFilter(strings.ToLower(s)); f {
	case ChangeCurrent, ChangeAll:
		return f, nil
	}
	return "", fmt.Errorf("unknown change filter %q, want %q or %q", s, ChangeCurrent, ChangeAll)
}

// A Namespace is a prefix binding from a schema root.
type Namespace struct {
	// Prefix is empty for a default namespace declaration.
	Prefix string `json:"prefix" yaml:"prefix"`
	URI    string `json:"uri" yaml:"uri"`
}

// KindCount is the number of declarations of one kind.
type KindCount struct {
	Kind  Kind `json:"kind" yaml:"kind"`
	Count int  `json:"count" yaml:"count"`
}

// A Summary describes a parsed schema.
type Summary struct {
	Version    string      `json:"version" yaml:"version"`
	Counts     []KindCount `json:"counts" yaml:"counts"`
	Namespaces []Namespace `json:"namespaces" yaml:"namespaces"`
	Documents  []string    `json:"documents" yaml:"documents"`
}

// Count returns the number of declarations of kind k.
func (s Summary) Count(k Kind) int {
	for _, c := range s.Counts {
		if c.Kind == k {
			return c.Count
		}
	}
	return 0
}

// Total returns the number of declarations of all kinds.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c.Count
	}
	return n
}
