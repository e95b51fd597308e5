package xsd

import "github.com/CognitoIQ/ocxschema/xmltree"

// Search predicates for the xmltree.Element.SearchFunc method
type predicate func(el *xmltree.Element) bool

func and(fns ...predicate) predicate {
	return func(el *xmltree.Element) bool {
		for _, f := range fns {
			if !f(el) {
				return false
			}
		}
		return true
	}
}

func or(fns ...predicate) predicate {
	return func(el *xmltree.Element) bool {
		for _, f := range fns {
			if f(el) {
				return true
			}
		}
		return false
	}
}

// isElem matches the local name in the given namespace. An empty
// space matches any namespace.
func isElem(space, local string) predicate {
	return func(el *xmltree.Element) bool {
		if el.Name.Local != local {
			return false
		}
		return space == "" || el.Name.Space == space
	}
}

func hasAttr(local string) predicate {
	return func(el *xmltree.Element) bool {
		return el.HasAttr(local)
	}
}

func hasAttrValue(space, local, value string) predicate {
	return func(el *xmltree.Element) bool {
		return el.Attr(space, local) == value
	}
}

var (
	isDerivation   = or(isElem(schemaNS, "extension"), isElem(schemaNS, "restriction"))
	isParticle     = or(isElem(schemaNS, "sequence"), isElem(schemaNS, "choice"), isElem(schemaNS, "all"))
	isVersionAttr  = and(isElem("", "attribute"), hasAttrValue("", "name", "schemaVersion"))
	isSchemaChange = isElem("", "SchemaChange")
	isAnnotation   = isElem(schemaNS, "annotation")
)

// firstChild returns the first direct child matching fn, or nil.
func firstChild(el *xmltree.Element, fn predicate) *xmltree.Element {
	for i := range el.Children {
		if fn(&el.Children[i]) {
			return &el.Children[i]
		}
	}
	return nil
}

// childrenMatching returns the direct children matching fn.
func childrenMatching(el *xmltree.Element, fn predicate) []*xmltree.Element {
	var result []*xmltree.Element
	for i := range el.Children {
		if fn(&el.Children[i]) {
			result = append(result, &el.Children[i])
		}
	}
	return result
}
