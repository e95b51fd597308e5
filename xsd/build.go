package xsd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/internal/dependency"
	"github.com/CognitoIQ/ocxschema/xmltree"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

// Named groups that nest deeper than this are reported as malformed.
const maxGroupDepth = 64

type builder struct {
	ctx           context.Context
	log           zerolog.Logger
	loader        Loader
	followImports bool

	docs  []*schemaDoc
	seen  map[string]bool
	owner map[*xmltree.Document]*schemaDoc
	idx   *schemaIndex
	model *Model

	unresolved map[xsderrors.UnresolvedReferenceError]bool
	expanding  map[*candidate]bool
}

func newBuilder(ctx context.Context, log zerolog.Logger, loader Loader, followImports bool) *builder {
	return &builder{
		ctx:           ctx,
		log:           log,
		loader:        loader,
		followImports: followImports,
		seen:          make(map[string]bool),
		owner:         make(map[*xmltree.Document]*schemaDoc),
		unresolved:    make(map[xsderrors.UnresolvedReferenceError]bool),
		expanding:     make(map[*candidate]bool),
	}
}

// run builds a Model from source. If data is nil, source is read
// through the loader.
func (b *builder) run(source string, data []byte) (m *Model, err error) {
	defer catchParseError(source, &err)

	if err := b.load(source, data); err != nil {
		return nil, err
	}
	for _, sd := range b.docs {
		b.owner[sd.doc] = sd
	}
	b.model = newModel(source, b.docs[0])
	b.namespaces()
	b.idx = indexSchema(b.docs, b.log)
	b.buildAll()
	b.link()
	b.model.index(b.idx)
	return b.model, nil
}

// namespaces collects the prefix bindings of every schema root. The
// first binding of a prefix wins.
func (b *builder) namespaces() {
	m := b.model
	m.bind("xml", xmlNS)
	for _, sd := range b.docs {
		m.documents = append(m.documents, sd.location)
		for _, ns := range sd.root.Namespaces() {
			m.bind(ns.Local, ns.Space)
		}
	}
}

// buildAll builds every candidate after the types it names.
func (b *builder) buildAll() {
	var g dependency.Graph[int]
	for _, c := range b.idx.candidates {
		g.Add(c.id)
		if t := b.typeRef(c.node); !t.IsZero() {
			if dep := b.idx.lookup(t, KindComplexType, KindSimpleType); dep != nil && dep != c {
				g.Add(c.id, dep.id)
			}
		}
	}
	var retry []*candidate
	g.Flatten(func(id int) {
		c := b.idx.candidates[id]
		b.build(c)
		if c.deferred {
			retry = append(retry, c)
		}
	})
	for _, c := range retry {
		b.log.Debug().Str("name", c.key.Name.String()).Msg("rebuilding deferred declaration")
		b.build(c)
	}
}

func (b *builder) build(c *candidate) {
	el := c.node
	c.deferred = false
	c.groupRefs = nil
	d := &Declaration{
		Kind:      c.key.Kind,
		Name:      c.key.Name.Local,
		Namespace: c.key.Name.Space,
		Prefix:    b.model.uris[c.key.Name.Space],
		Tag:       c.key.Name,
		Type:      b.typeRef(el),
		Abstract:  isTrue(el.Attr("", "abstract")),
		Doc:       Annotation(el),
		Line:      el.Line,
		Document:  c.doc.location,
	}
	if card, ok := ComputeCardinality(el); ok {
		d.Cardinality = &card
	}
	if sg := strings.Fields(el.Attr("", "substitutionGroup")); len(sg) > 0 {
		d.SubstitutionGroup = b.resolve(el, sg[0])
		if b.idx.lookup(d.SubstitutionGroup, KindElement) == nil {
			b.unresolvedRef(c, el, "substitutionGroup", d.SubstitutionGroup)
		}
	}
	if el.HasAttr("type") {
		b.checkType(c, el, "type", d.Type)
	}

	switch c.key.Kind {
	case KindElement:
		if ct := firstChild(el, isElem(schemaNS, "complexType")); ct != nil {
			b.content(c, d, ct, 0)
		} else if base := b.baseDecl(c, d.Type); base != nil {
			inherit(d, base, true)
		}
		if st := firstChild(el, isElem(schemaNS, "simpleType")); st != nil {
			b.simpleType(c, d, st)
		}
	case KindAttribute:
		if st := firstChild(el, isElem(schemaNS, "simpleType")); st != nil {
			b.simpleType(c, d, st)
		}
	case KindComplexType, KindAttributeGroup:
		b.content(c, d, el, 0)
	case KindSimpleType:
		b.simpleType(c, d, el)
	}
	if d.Doc == "" && (d.Kind == KindElement || d.Kind == KindAttribute) {
		d.Doc = b.typeDoc(d.Type)
	}
	c.decl = d
}

// content collects the attributes, children and assertions below el,
// expanding particles, group references and derivations.
func (b *builder) content(c *candidate, d *Declaration, el *xmltree.Element, depth int) {
	walk(el, func(child *xmltree.Element) {
		switch child.Name.Local {
		case "sequence", "choice", "all", "complexContent", "simpleContent":
			b.content(c, d, child, depth)
		case "extension", "restriction":
			b.derive(c, d, child, depth)
		case "element":
			d.Children = addMember(d.Children, b.elementMember(c, child))
		case "attribute":
			d.Attributes = addMember(d.Attributes, b.attributeMember(c, child))
		case "group":
			b.expandGroup(c, d, child, depth)
		case "attributeGroup":
			b.expandAttributeGroup(c, d, child, depth)
		case "assert":
			if test := child.Attr("", "test"); test != "" {
				d.Assertions = append(d.Assertions, test)
			}
		}
	})
}

// derive applies an extension or restriction: the base complex type's
// members come first, then the derivation's own content.
func (b *builder) derive(c *candidate, d *Declaration, el *xmltree.Element, depth int) {
	if el.HasAttr("base") {
		q := b.resolve(el, el.Attr("", "base"))
		b.checkType(c, el, "base", q)
		if base := b.baseDecl(c, q); base != nil {
			inherit(d, base, el.Name.Local == "extension")
		}
	}
	b.content(c, d, el, depth)
}

// baseDecl returns the built complex type named q. When the type
// exists but is not built yet, c is marked for a second pass. A
// redefinition naming itself gets the declaration it redefines.
func (b *builder) baseDecl(c *candidate, q QName) *Declaration {
	if q.IsZero() {
		return nil
	}
	base := b.idx.lookup(q, KindComplexType)
	if base == c {
		orig := b.original(c)
		if orig == nil {
			return nil
		}
		if orig.deferred {
			c.deferred = true
		}
		return orig.decl
	}
	if base == nil {
		return nil
	}
	if base.decl == nil {
		c.deferred = true
	}
	return base.decl
}

// original builds the declaration c redefines, if any. Originals are
// not published, so they are built on demand.
func (b *builder) original(c *candidate) *candidate {
	orig := c.redefined
	if orig == nil {
		return nil
	}
	if orig.decl == nil || orig.deferred {
		b.build(orig)
	}
	return orig
}

func inherit(d, base *Declaration, children bool) {
	for _, m := range base.Attributes {
		d.Attributes = addMember(d.Attributes, m)
	}
	if children {
		for _, m := range base.Children {
			d.Children = addMember(d.Children, m)
		}
	}
	d.Assertions = append(d.Assertions, base.Assertions...)
}

// addMember appends m, or replaces the member with the same tag.
func addMember(list []Member, m Member) []Member {
	if i := slices.IndexFunc(list, func(x Member) bool { return x.Tag == m.Tag }); i >= 0 {
		list[i] = m
		return list
	}
	return append(list, m)
}

func (b *builder) simpleType(c *candidate, d *Declaration, st *xmltree.Element) {
	walk(st, func(el *xmltree.Element) {
		switch el.Name.Local {
		case "restriction":
			if el.HasAttr("base") {
				b.checkType(c, el, "base", b.resolve(el, el.Attr("", "base")))
			}
			for _, a := range childrenMatching(el, or(isElem(schemaNS, "assertion"), isElem(schemaNS, "assert"))) {
				if test := a.Attr("", "test"); test != "" {
					d.Assertions = append(d.Assertions, test)
				}
			}
			b.simpleType(c, d, el)
		case "list":
			if el.HasAttr("itemType") {
				b.checkType(c, el, "itemType", b.resolve(el, el.Attr("", "itemType")))
			}
			b.simpleType(c, d, el)
		case "union":
			for _, member := range strings.Fields(el.Attr("", "memberTypes")) {
				b.checkType(c, el, "memberTypes", b.resolve(el, member))
			}
			b.simpleType(c, d, el)
		case "simpleType":
			b.simpleType(c, d, el)
		}
	})
}

func (b *builder) elementMember(c *candidate, el *xmltree.Element) Member {
	card, _ := ComputeCardinality(el)
	m := Member{Cardinality: card, Doc: Annotation(el), Line: el.Line}
	if ref := el.Attr("", "ref"); ref != "" {
		m.Tag, m.Ref = b.resolve(el, ref), true
		if g := b.idx.lookup(m.Tag, KindElement); g != nil {
			m.Type = b.typeRef(g.node)
			if m.Doc == "" {
				m.Doc = b.globalDoc(g)
			}
		} else {
			b.unresolvedRef(c, el, "ref", m.Tag)
		}
	} else {
		m.Tag = b.localName(el, func(sd *schemaDoc) bool { return sd.qualifiedElements })
		m.Type = b.typeRef(el)
		if el.HasAttr("type") {
			b.checkType(c, el, "type", m.Type)
		}
		if m.Doc == "" {
			m.Doc = b.typeDoc(m.Type)
		}
	}
	m.Name = m.Tag.Local
	return m
}

func (b *builder) attributeMember(c *candidate, el *xmltree.Element) Member {
	card, _ := ComputeCardinality(el)
	m := Member{Cardinality: card, Doc: Annotation(el), Line: el.Line}
	if ref := el.Attr("", "ref"); ref != "" {
		m.Tag, m.Ref = b.resolve(el, ref), true
		if g := b.idx.lookup(m.Tag, KindAttribute); g != nil {
			m.Type = b.typeRef(g.node)
			if m.Doc == "" {
				m.Doc = b.globalDoc(g)
			}
			if m.Cardinality.Default == "" && m.Cardinality.Fixed == "" {
				m.Cardinality.Default = g.node.Attr("", "default")
				m.Cardinality.Fixed = g.node.Attr("", "fixed")
			}
		} else if !isBuiltin(m.Tag) {
			b.unresolvedRef(c, el, "ref", m.Tag)
		}
	} else {
		m.Tag = b.localName(el, func(sd *schemaDoc) bool { return sd.qualifiedAttributes })
		m.Type = b.typeRef(el)
		if el.HasAttr("type") {
			b.checkType(c, el, "type", m.Type)
		}
	}
	m.Name = m.Tag.Local
	return m
}

// localName qualifies the name of a local declaration according to its
// form attribute or the schema's form default.
func (b *builder) localName(el *xmltree.Element, qualifiedDefault func(*schemaDoc) bool) QName {
	name := el.Attr("", "name")
	sd := b.docOf(el)
	qualified := qualifiedDefault(sd)
	switch el.Attr("", "form") {
	case "qualified":
		qualified = true
	case "unqualified":
		qualified = false
	}
	if qualified {
		return Q(sd.targetNS, name)
	}
	return Q("", name)
}

func (b *builder) expandGroup(c *candidate, d *Declaration, el *xmltree.Element, depth int) {
	ref := el.Attr("", "ref")
	if ref == "" {
		return
	}
	q := b.resolve(el, ref)
	g, ok := b.idx.groups[q]
	if !ok {
		b.unresolvedRef(c, el, "ref", q)
		return
	}
	b.expand(c, d, g, depth)
}

func (b *builder) expandAttributeGroup(c *candidate, d *Declaration, el *xmltree.Element, depth int) {
	ref := el.Attr("", "ref")
	if ref == "" {
		return
	}
	q := b.resolve(el, ref)
	g := b.idx.lookup(q, KindAttributeGroup)
	if g == nil {
		b.unresolvedRef(c, el, "ref", q)
		return
	}
	if g == c {
		if g = c.redefined; g == nil {
			return
		}
	} else if depth == 0 && !slices.Contains(c.groupRefs, q) {
		c.groupRefs = append(c.groupRefs, q)
	}
	b.expand(c, d, g, depth)
}

func (b *builder) expand(c *candidate, d *Declaration, g *candidate, depth int) {
	if depth >= maxGroupDepth {
		stop(fmt.Sprintf("group references nested more than %d deep", maxGroupDepth))
	}
	if b.expanding[g] {
		// a redefined group refers to its original
		if g.redefined == nil || b.expanding[g.redefined] {
			return
		}
		g = g.redefined
	}
	b.expanding[g] = true
	defer delete(b.expanding, g)
	b.content(c, d, g.node, depth+1)
}

// checkType records q as unresolved unless it names a built-in type or
// a simple or complex type of the schema.
func (b *builder) checkType(c *candidate, el *xmltree.Element, attr string, q QName) {
	if q.IsZero() || isBuiltin(q) || b.idx.lookup(q, KindComplexType, KindSimpleType) != nil {
		return
	}
	b.unresolvedRef(c, el, attr, q)
}

func (b *builder) unresolvedRef(c *candidate, el *xmltree.Element, attr string, q QName) {
	ref := xsderrors.UnresolvedReferenceError{
		From: c.key.Name.String(),
		Ref:  q.String(),
		Attr: attr,
		Line: el.Line,
		Path: breadcrumb(c.node, el),
	}
	if b.unresolved[ref] {
		return
	}
	b.unresolved[ref] = true
	b.log.Debug().
		Str("from", ref.From).
		Str("ref", ref.Ref).
		Str("attr", attr).
		Int("line", ref.Line).
		Msg("unresolved reference")
	b.model.unresolved = append(b.model.unresolved, &ref)
}

// globalDoc is the annotation of a global declaration, or of its type
// when it has none.
func (b *builder) globalDoc(g *candidate) string {
	if doc := Annotation(g.node); doc != "" {
		return doc
	}
	return b.typeDoc(b.typeRef(g.node))
}

func (b *builder) typeDoc(q QName) string {
	if q.IsZero() {
		return ""
	}
	if t := b.idx.lookup(q, KindComplexType, KindSimpleType); t != nil {
		return Annotation(t.node)
	}
	return ""
}

// docOf returns the loaded document el belongs to.
func (b *builder) docOf(el *xmltree.Element) *schemaDoc {
	sd, ok := b.owner[el.Document()]
	if !ok {
		sd = b.docs[0]
	}
	if err := sd.doc.Contains(el); err != nil {
		fail(err)
	}
	return sd
}

// resolve reads the QName value v in the scope of el.
func (b *builder) resolve(el *xmltree.Element, v string) QName {
	return b.docOf(el).remap(QName(el.Resolve(v)))
}

// typeRef is ResolveTypeRef with chameleon namespaces applied.
func (b *builder) typeRef(el *xmltree.Element) QName {
	return b.docOf(el).remap(ResolveTypeRef(el))
}

func isTrue(s string) bool {
	s = strings.TrimSpace(s)
	return s == "true" || s == "1"
}
