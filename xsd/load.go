package xsd

import (
	"context"
	"encoding/xml"
	"errors"

	"github.com/CognitoIQ/ocxschema/internal/fetch"
	"github.com/CognitoIQ/ocxschema/xmltree"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

// A Loader retrieves the bytes of a schema document. It returns the
// canonical location of the document, against which relative
// schemaLocation values are resolved.
type Loader interface {
	Load(ctx context.Context, location string) ([]byte, string, error)
}

// A schemaDoc is one loaded schema file.
type schemaDoc struct {
	location string
	doc      *xmltree.Document
	root     *xmltree.Element
	targetNS string
	// chameleon is set for an included document without a target
	// namespace of its own.
	chameleon bool
	// form defaults of local declarations
	qualifiedElements   bool
	qualifiedAttributes bool
}

// remap moves an unqualified reference of a chameleon document into
// the namespace the document was included into.
func (sd *schemaDoc) remap(q QName) QName {
	if sd.chameleon && q.Space == "" && q.Local != "" {
		q.Space = sd.targetNS
	}
	return q
}

// parseSchema parses data as an XML schema document. targetNS is used
// when the document declares no target namespace itself, as happens
// with chameleon includes.
func parseSchema(location string, data []byte, targetNS string) (*schemaDoc, error) {
	doc, err := xmltree.ParseDocument(data)
	if err != nil {
		merr := &xsderrors.MalformedSchemaError{Source: location, Message: "cannot parse XML", Cause: err}
		var serr *xml.SyntaxError
		if errors.As(err, &serr) {
			merr.Line = serr.Line
		}
		return nil, merr
	}
	root := doc.Root
	if root.Name.Space != schemaNS || root.Name.Local != "schema" {
		return nil, &xsderrors.MalformedSchemaError{
			Source:  location,
			Line:    root.Line,
			Message: "root element is " + root.Name.Local + ", not an XML schema",
		}
	}
	sd := &schemaDoc{
		location:            location,
		doc:                 doc,
		root:                root,
		targetNS:            root.Attr("", "targetNamespace"),
		qualifiedElements:   root.Attr("", "elementFormDefault") == "qualified",
		qualifiedAttributes: root.Attr("", "attributeFormDefault") == "qualified",
	}
	if sd.targetNS == "" && targetNS != "" {
		sd.targetNS, sd.chameleon = targetNS, true
	}
	return sd, nil
}

// load reads the main document and everything it imports, includes
// or redefines. Problems with the main document are errors; problems
// with the documents it pulls in are logged and skipped.
func (b *builder) load(source string, data []byte) error {
	location := source
	if data == nil {
		var err error
		data, location, err = b.loader.Load(b.ctx, source)
		if err != nil {
			return err
		}
	}
	sd, err := parseSchema(location, data, "")
	if err != nil {
		return err
	}
	b.seen[source] = true
	b.seen[location] = true
	b.docs = append(b.docs, sd)
	if b.followImports {
		b.follow(sd)
	}
	return nil
}

func (b *builder) follow(sd *schemaDoc) {
	isRef := or(isElem(schemaNS, "import"), isElem(schemaNS, "include"), isElem(schemaNS, "redefine"))
	for _, el := range childrenMatching(sd.root, and(isRef, hasAttr("schemaLocation"))) {
		ref := el.Attr("", "schemaLocation")
		location := fetch.Resolve(sd.location, ref)
		if b.seen[location] {
			continue
		}
		b.seen[location] = true

		// includes share their includer's namespace
		ns := ""
		if el.Name.Local != "import" {
			ns = sd.targetNS
		}
		log := b.log.With().
			Str("from", sd.location).
			Int("line", el.Line).
			Str("source", location).
			Logger()
		if err := b.ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("schema " + el.Name.Local + " skipped")
			continue
		}
		data, resolved, err := b.loader.Load(b.ctx, location)
		if err != nil {
			log.Warn().Err(err).Msg("schema " + el.Name.Local + " skipped")
			continue
		}
		if b.seen[resolved] && resolved != location {
			continue
		}
		b.seen[resolved] = true
		child, err := parseSchema(resolved, data, ns)
		if err != nil {
			log.Warn().Err(err).Msg("schema " + el.Name.Local + " skipped")
			continue
		}
		log.Debug().Str("namespace", child.targetNS).Msg("schema " + el.Name.Local + " loaded")
		b.docs = append(b.docs, child)
		b.follow(child)
	}
}
