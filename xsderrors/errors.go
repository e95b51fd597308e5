// Package xsderrors defines the errors reported while loading and
// querying a schema model.
//
// Each category has a sentinel for errors.Is and a struct type for
// errors.As:
//
//	if err := reader.Process(ctx, path); err != nil {
//	    var nf *xsderrors.SourceNotFoundError
//	    if errors.As(err, &nf) {
//	        // ask for another path
//	    }
//	}
//
// Unresolved references are soft: the builder collects them on the
// model instead of failing the build.
package xsderrors

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound indicates a schema file or URL could not be read.
	ErrSourceNotFound = errors.New("source not found")

	// ErrMalformedSchema indicates a document that is not well-formed XML
	// or whose root is not an xs:schema element.
	ErrMalformedSchema = errors.New("malformed schema")

	// ErrNotParsed indicates a query made before a successful parse.
	ErrNotParsed = errors.New("schema not parsed")

	// ErrUnresolvedReference indicates a QName that names no declaration.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrMalformedNode indicates a tree node used with the wrong document.
	ErrMalformedNode = errors.New("malformed node")
)

// SourceNotFoundError reports a local path that does not exist or a URL
// that could not be downloaded.
type SourceNotFoundError struct {
	// Source is the path or URL as given by the caller
	Source string
	// Cause is the underlying I/O or HTTP error, if any
	Cause error
}

func (e *SourceNotFoundError) Error() string {
	msg := "source not found"
	if e.Source != "" {
		msg += ": " + e.Source
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SourceNotFoundError) Unwrap() error { return e.Cause }

func (e *SourceNotFoundError) Is(target error) bool {
	return target == ErrSourceNotFound
}

// MalformedSchemaError reports a document that could not be read as a schema.
type MalformedSchemaError struct {
	Source string
	// Line is the 1-based line of the offending node (0 if unknown)
	Line    int
	Message string
	Cause   error
}

func (e *MalformedSchemaError) Error() string {
	msg := "malformed schema"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedSchemaError) Unwrap() error { return e.Cause }

func (e *MalformedSchemaError) Is(target error) bool {
	return target == ErrMalformedSchema
}

// NotParsedError is returned by queries on a reader without a model.
type NotParsedError struct {
	// State is the reader state at the time of the query
	State string
}

func (e *NotParsedError) Error() string {
	if e.State == "" {
		return "schema not parsed"
	}
	return "schema not parsed (state " + e.State + ")"
}

func (e *NotParsedError) Is(target error) bool {
	return target == ErrNotParsed
}

// UnresolvedReferenceError records a type, base, ref or
// substitutionGroup value that names no known declaration.
type UnresolvedReferenceError struct {
	// From is the declaration holding the reference, as {ns}local
	From string
	// Ref is the unresolved QName, as {ns}local
	Ref string
	// Attr is the attribute carrying the reference
	Attr string
	Line int
	// Path is a breadcrumb from the declaration to the referring node
	Path string
}

func (e *UnresolvedReferenceError) Error() string {
	msg := "unresolved reference"
	if e.Attr != "" {
		msg = "unresolved " + e.Attr + " reference"
	}
	msg += " " + e.Ref
	if e.From != "" {
		msg += " in " + e.From
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	return msg
}

func (e *UnresolvedReferenceError) Is(target error) bool {
	return target == ErrUnresolvedReference
}

// MalformedNodeError is returned when a tree node is passed to a
// document that does not own it.
type MalformedNodeError struct {
	// Node names the offending node, usually its local name
	Node string
}

func (e *MalformedNodeError) Error() string {
	if e.Node == "" {
		return "malformed node: not part of this document"
	}
	return "malformed node " + e.Node + ": not part of this document"
}

func (e *MalformedNodeError) Is(target error) bool {
	return target == ErrMalformedNode
}
