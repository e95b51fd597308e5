package xsd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/CognitoIQ/ocxschema/xmltree"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

// When working with an xml tree structure, we naturally have some
// pretty deep function calls. To save some typing, we use panic/recover
// to bubble structural errors up. These panics are not exposed to the
// user; catchParseError turns them into a MalformedSchemaError.
type parseError struct {
	message string
	cause   error
	path    []*xmltree.Element
}

func (err parseError) Error() string {
	if len(err.path) == 0 {
		return err.message
	}
	outermost := slices.Clone(err.path)
	slices.Reverse(outermost)
	return "error at " + trail(outermost) + ": " + err.message
}

func stop(msg string) {
	panic(parseError{message: msg})
}

// fail is stop with an underlying error, which the resulting
// MalformedSchemaError wraps.
func fail(err error) {
	panic(parseError{message: "invalid node", cause: err})
}

// walk calls fn for each child of root in the XML schema namespace.
// Errors raised with stop inside fn have root added to their path.
func walk(root *xmltree.Element, fn func(*xmltree.Element)) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(parseError); ok {
				err.path = append(err.path, root)
				panic(err)
			}
			panic(r)
		}
	}()
	for i := 0; i < len(root.Children); i++ {
		// We don't care about elements outside of the
		// XML schema namespace
		if root.Children[i].Name.Space != schemaNS {
			continue
		}
		fn(&root.Children[i])
	}
}

// defer catchParseError(source, &err)
func catchParseError(source string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	perr, ok := r.(parseError)
	if !ok {
		*err = &xsderrors.MalformedSchemaError{
			Source:  source,
			Message: fmt.Sprint("internal error: ", r),
		}
		return
	}
	line := 0
	if len(perr.path) > 0 {
		line = perr.path[0].Line
	}
	*err = &xsderrors.MalformedSchemaError{Source: source, Line: line, Message: perr.Error(), Cause: perr.cause}
}

// trail renders elements, outermost first, as
// complexType(Vessel_T)>sequence>element(Panel).
func trail(path []*xmltree.Element) string {
	crumbs := make([]string, 0, len(path))
	for _, el := range path {
		piece := el.Name.Local
		if name := el.Attr("", "name"); name != "" {
			piece = fmt.Sprintf("%s(%s)", piece, name)
		} else if ref := el.Attr("", "ref"); ref != "" {
			piece = fmt.Sprintf("%s(%s)", piece, ref)
		}
		crumbs = append(crumbs, piece)
	}
	return strings.Join(crumbs, ">")
}

// breadcrumb returns the trail from top down to el. If top is not an
// ancestor of el, the trail runs from the document root.
func breadcrumb(top, el *xmltree.Element) string {
	path := []*xmltree.Element{el}
	if el != top {
		for anc := range el.Ancestors() {
			if anc.Parent() == nil && anc != top {
				break
			}
			path = append(path, anc)
			if anc == top {
				break
			}
		}
	}
	slices.Reverse(path)
	return trail(path)
}
