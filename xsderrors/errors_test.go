package xsderrors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceNotFoundError(t *testing.T) {
	err := &SourceNotFoundError{Source: "missing.xsd", Cause: fs.ErrNotExist}
	assert.Equal(t, "source not found: missing.xsd: file does not exist", err.Error())
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrMalformedSchema)
}

func TestMalformedSchemaError(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		err := &MalformedSchemaError{
			Source:  "ocx.xsd",
			Line:    12,
			Message: "root element is not xs:schema",
		}
		assert.Equal(t, "malformed schema in ocx.xsd at line 12: root element is not xs:schema", err.Error())
	})
	t.Run("minimal", func(t *testing.T) {
		assert.Equal(t, "malformed schema", (&MalformedSchemaError{}).Error())
	})
	t.Run("wrapped", func(t *testing.T) {
		cause := errors.New("XML syntax error")
		err := fmt.Errorf("load: %w", &MalformedSchemaError{Cause: cause})
		assert.ErrorIs(t, err, ErrMalformedSchema)
		assert.ErrorIs(t, err, cause)

		var target *MalformedSchemaError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, cause, target.Cause)
	})
}

func TestNotParsedError(t *testing.T) {
	assert.Equal(t, "schema not parsed", (&NotParsedError{}).Error())
	err := &NotParsedError{State: "failed"}
	assert.Equal(t, "schema not parsed (state failed)", err.Error())
	assert.ErrorIs(t, err, ErrNotParsed)
}

func TestUnresolvedReferenceError(t *testing.T) {
	err := &UnresolvedReferenceError{
		From: "{urn:ocx}Vessel_T",
		Ref:  "{urn:ocx}Hull_T",
		Attr: "type",
		Line: 40,
		Path: "complexType(Vessel_T)>element(Hull)",
	}
	assert.Equal(t,
		"unresolved type reference {urn:ocx}Hull_T in {urn:ocx}Vessel_T at line 40 (complexType(Vessel_T)>element(Hull))",
		err.Error())
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestMalformedNodeError(t *testing.T) {
	err := &MalformedNodeError{Node: "element"}
	assert.Equal(t, "malformed node element: not part of this document", err.Error())
	assert.ErrorIs(t, err, ErrMalformedNode)
}
