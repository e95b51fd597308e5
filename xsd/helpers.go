package xsd

import (
	"strconv"
	"strings"

	"github.com/CognitoIQ/ocxschema/xmltree"
)

// ResolveTypeRef returns the type a declaration node refers to. The
// first of these wins:
//
//	@type, @base, @ref
//	complexContent/(extension|restriction)/@base
//	simpleType/(restriction|extension)/@base
//	simpleContent/(extension|restriction)/@base
//	simpleType/list/@itemType
//
// Content and simpleType nodes are looked up as direct children of el
// or of its anonymous complexType; el itself counts when it is a
// simpleType. The zero QName means the node is untyped.
func ResolveTypeRef(el *xmltree.Element) QName {
	for _, attr := range []string{"type", "base", "ref"} {
		if v := el.Attr("", attr); v != "" {
			return QName(el.Resolve(v))
		}
	}
	if q, ok := derivedBase(el, "complexContent"); ok {
		return q
	}
	simple := childrenMatching(el, isElem(schemaNS, "simpleType"))
	if el.Name.Local == "simpleType" {
		simple = append([]*xmltree.Element{el}, simple...)
	}
	for _, st := range simple {
		if d := firstChild(st, and(isDerivation, hasAttr("base"))); d != nil {
			return QName(d.Resolve(d.Attr("", "base")))
		}
	}
	if q, ok := derivedBase(el, "simpleContent"); ok {
		return q
	}
	for _, st := range simple {
		if list := firstChild(st, and(isElem(schemaNS, "list"), hasAttr("itemType"))); list != nil {
			return QName(list.Resolve(list.Attr("", "itemType")))
		}
	}
	return QName{}
}

// derivedBase finds the base of an extension or restriction inside a
// content node named content (complexContent or simpleContent).
func derivedBase(el *xmltree.Element, content string) (QName, bool) {
	isContent := isElem(schemaNS, content)
	holders := []*xmltree.Element{el}
	if el.Name.Local != "complexType" {
		holders = append(holders, childrenMatching(el, isElem(schemaNS, "complexType"))...)
	}
	for _, h := range holders {
		for _, c := range childrenMatching(h, isContent) {
			if d := firstChild(c, and(isDerivation, hasAttr("base"))); d != nil {
				return QName(d.Resolve(d.Attr("", "base"))), true
			}
		}
	}
	return QName{}, false
}

// ComputeCardinality derives the occurrence constraint of an element
// or attribute node. The second result is false for any other node.
//
// Elements start from minOccurs and maxOccurs (default 1). The nearest
// enclosing sequence, choice or all then applies: minOccurs="0" on it
// makes the element optional, its maxOccurs replaces the upper bound,
// and Choice records whether it is a choice. Outer particles are not
// consulted, and an enclosing element ends the search.
func ComputeCardinality(el *xmltree.Element) (Cardinality, bool) {
	switch el.Name.Local {
	case "element":
		return elementCardinality(el), true
	case "attribute":
		return attributeCardinality(el), true
	}
	return Cardinality{}, false
}

func elementCardinality(el *xmltree.Element) Cardinality {
	c := Cardinality{
		Lower: parseOccurs(el.Attr("", "minOccurs"), 1),
		Upper: parseOccurs(el.Attr("", "maxOccurs"), 1),
	}
	for anc := range el.Ancestors("sequence", "choice", "all", "element") {
		if anc.Name.Local == "element" {
			break
		}
		c.Choice = anc.Name.Local == "choice"
		if anc.Attr("", "minOccurs") == "0" {
			c.Lower = 0
		}
		if max := anc.Attr("", "maxOccurs"); max != "" {
			c.Upper = parseOccurs(max, c.Upper)
		}
		break
	}
	if c.Lower < 0 {
		c.Lower = 0
	}
	if c.Upper != Unbounded && c.Upper < c.Lower {
		c.Upper = c.Lower
	}
	c.Use = Optional
	if c.Lower > 0 {
		c.Use = Required
	}
	return c
}

func attributeCardinality(el *xmltree.Element) Cardinality {
	c := Cardinality{
		Lower:   0,
		Upper:   1,
		Use:     Optional,
		Default: el.Attr("", "default"),
		Fixed:   el.Attr("", "fixed"),
	}
	switch el.Attr("", "use") {
	case "required":
		c.Lower, c.Use = 1, Required
	case "prohibited":
		c.Upper = 0
	}
	return c
}

// parseOccurs reads a minOccurs or maxOccurs value. "unbounded" is
// Unbounded; anything unreadable yields def.
func parseOccurs(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if s == "unbounded" {
		return Unbounded
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// SchemaVersion returns the fixed value of the schemaVersion attribute
// declaration, or MissingVersion.
func SchemaVersion(root *xmltree.Element) string {
	for _, el := range root.SearchFunc(isVersionAttr) {
		if v := el.Attr("", "fixed"); v != "" {
			return v
		}
	}
	return MissingVersion
}

// SchemaChanges collects the SchemaChange entries of a schema in
// document order. Entries with missing attributes are kept with empty
// fields.
func SchemaChanges(root *xmltree.Element) []Change {
	var changes []Change
	for _, el := range root.SearchFunc(isSchemaChange) {
		var rec struct {
			Version string `xml:"version,attr"`
			Author  string `xml:"author,attr"`
			Date    string `xml:"date,attr"`
		}
		if err := el.Unmarshal(&rec); err != nil {
			attrs := el.Attrs()
			rec.Version, rec.Author, rec.Date = attrs["version"], attrs["author"], attrs["date"]
		}
		change := Change{Version: rec.Version, Author: rec.Author, Date: rec.Date}
		if desc := el.ChildrenNamed("Description"); len(desc) > 0 {
			change.Description = stripControl(desc[0].Text())
		}
		changes = append(changes, change)
	}
	return changes
}

var controlStripper = strings.NewReplacer("\n", "", "\t", "", "\r", "")

func stripControl(s string) string {
	return controlStripper.Replace(s)
}

// Annotation returns the documentation text of el's own annotation,
// with runs of white space collapsed. Several documentation entries
// are joined with a space.
func Annotation(el *xmltree.Element) string {
	var parts []string
	for _, ann := range childrenMatching(el, isAnnotation) {
		for _, d := range childrenMatching(ann, isElem(schemaNS, "documentation")) {
			if text := normalizeSpace(d.Text()); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
