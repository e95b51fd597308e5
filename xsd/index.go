package xsd

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/xmltree"
)

// name indices can collide since different kinds of declaration
// can share a name.
type declKey struct {
	Name QName
	Kind Kind
}

func compareKeys(a, b declKey) int {
	if c := Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return int(a.Kind) - int(b.Kind)
}

// A candidate is a named top-level node waiting to become a
// Declaration.
type candidate struct {
	id   int
	key  declKey
	node *xmltree.Element
	doc  *schemaDoc

	decl      *Declaration
	groupRefs []QName
	// redefines is set for declarations inside xs:redefine; redefined
	// is the original declaration they replace.
	redefines bool
	redefined *candidate
	// deferred is set when a base had not been built yet.
	deferred bool
}

type schemaIndex struct {
	// candidates are sorted by key; a candidate's id is its position.
	candidates []*candidate
	byKey      map[declKey]*candidate
	// named model groups (xs:group), expanded in place wherever
	// they are referenced
	groups map[QName]*candidate
}

func (idx *schemaIndex) lookup(name QName, kinds ...Kind) *candidate {
	for _, k := range kinds {
		if c, ok := idx.byKey[declKey{name, k}]; ok {
			return c
		}
	}
	return nil
}

// indexSchema classifies the named children of every schema root (and
// of its redefine blocks). The first declaration of a key wins, except
// that a redefinition always replaces the declaration it redefines,
// which is kept on the redefinition as its base.
func indexSchema(docs []*schemaDoc, log zerolog.Logger) *schemaIndex {
	idx := &schemaIndex{
		byKey:  make(map[declKey]*candidate),
		groups: make(map[QName]*candidate),
	}
	var visit func(sd *schemaDoc, parent *xmltree.Element, redefines bool)
	visit = func(sd *schemaDoc, parent *xmltree.Element, redefines bool) {
		walk(parent, func(el *xmltree.Element) {
			if el.Name.Local == "redefine" {
				visit(sd, el, true)
				return
			}
			name := el.Attr("", "name")
			if name == "" {
				return
			}
			qname := Q(sd.targetNS, name)
			if el.Name.Local == "group" {
				c := &candidate{node: el, doc: sd, redefines: redefines}
				if prev, ok := idx.groups[qname]; !ok {
					idx.groups[qname] = c
				} else if pairRedefinition(prev, c) {
					idx.groups[qname] = c
				}
				return
			}
			kind, ok := kindOf(el.Name.Local)
			if !ok {
				return
			}
			key := declKey{qname, kind}
			c := &candidate{key: key, node: el, doc: sd, redefines: redefines}
			if prev, ok := idx.byKey[key]; ok {
				switch {
				case pairRedefinition(prev, c):
					idx.byKey[key] = c
					idx.candidates[slices.Index(idx.candidates, prev)] = c
				case prev.redefined == c:
				default:
					log.Debug().
						Str("kind", kind.String()).
						Str("name", qname.String()).
						Int("line", el.Line).
						Str("first", prev.doc.location).
						Msg("duplicate declaration ignored")
				}
				return
			}
			idx.byKey[key] = c
			idx.candidates = append(idx.candidates, c)
		})
	}
	for _, sd := range docs {
		visit(sd, sd.root, false)
	}
	slices.SortFunc(idx.candidates, func(a, b *candidate) int {
		return compareKeys(a.key, b.key)
	})
	for i, c := range idx.candidates {
		c.id = i
	}
	return idx
}

// pairRedefinition pairs a redefinition with the original it replaces and
// reports whether next is the redefinition. When neither or both are
// redefinitions, or prev already has its original, nothing changes.
func pairRedefinition(prev, next *candidate) bool {
	switch {
	case prev.redefines && !next.redefines && prev.redefined == nil:
		prev.redefined = next
	case next.redefines && !prev.redefines && next.redefined == nil:
		next.redefined = prev
		return true
	}
	return false
}
