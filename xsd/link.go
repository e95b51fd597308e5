package xsd

import "github.com/CognitoIQ/ocxschema/internal/ordered"

// link fills in the Parents of every declaration. A declaration is a
// parent of the elements it lists as children, of the global
// attributes and attribute groups it references, and of the
// declaration its type reference names. A substitution group head is
// a parent of its members.
func (b *builder) link() {
	parents := make(map[*Declaration]map[QName]bool)
	add := func(target *Declaration, parent QName) {
		if target == nil {
			return
		}
		set := parents[target]
		if set == nil {
			set = make(map[QName]bool)
			parents[target] = set
		}
		set[parent] = true
	}
	get := func(q QName, kinds ...Kind) *Declaration {
		if c := b.idx.lookup(q, kinds...); c != nil {
			return c.decl
		}
		return nil
	}

	for _, c := range b.idx.candidates {
		d := c.decl
		if d == nil {
			continue
		}
		if d.IsTyped() {
			target := get(d.Type, KindComplexType, KindSimpleType, KindElement, KindAttribute, KindAttributeGroup)
			if target != d {
				add(target, d.Tag)
			}
		}
		for _, m := range d.Children {
			if m.Ref {
				add(get(m.Tag, KindElement), d.Tag)
			} else if !m.Type.IsZero() {
				add(get(m.Type, KindComplexType, KindSimpleType), d.Tag)
			}
		}
		for _, m := range d.Attributes {
			if m.Ref {
				add(get(m.Tag, KindAttribute), d.Tag)
			} else if !m.Type.IsZero() {
				add(get(m.Type, KindSimpleType), d.Tag)
			}
		}
		for _, q := range c.groupRefs {
			add(get(q, KindAttributeGroup), d.Tag)
		}
		if !d.SubstitutionGroup.IsZero() {
			if head := get(d.SubstitutionGroup, KindElement); head != nil {
				add(d, head.Tag)
			}
		}
	}
	for d, set := range parents {
		d.Parents = ordered.KeysFunc(set, Compare)
	}
}
