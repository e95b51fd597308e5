package xsd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQName(t *testing.T) {
	q := Q("urn:a", "b")
	assert.Equal(t, "{urn:a}b", q.String())
	assert.Equal(t, "b", Q("", "b").String())
	assert.True(t, QName{}.IsZero())

	parsed, ok := ParseQName("{urn:a}b")
	assert.True(t, ok)
	assert.Equal(t, q, parsed)
	_, ok = ParseQName("{urn:a")
	assert.False(t, ok)
	_, ok = ParseQName("")
	assert.False(t, ok)

	assert.Negative(t, Compare(Q("a", "z"), Q("b", "a")))
	assert.Negative(t, Compare(Q("a", "a"), Q("a", "b")))
	assert.Zero(t, Compare(q, q))
}

func TestKind(t *testing.T) {
	for _, k := range Kinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	for in, want := range map[string]Kind{
		"elements":         KindElement,
		"complex":          KindComplexType,
		"simple":           KindSimpleType,
		"attribute-groups": KindAttributeGroup,
		"Attributes":       KindAttribute,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("notation")
	assert.Error(t, err)
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestParseChangeFilter(t *testing.T) {
	f, err := ParseChangeFilter("ALL")
	require.NoError(t, err)
	assert.Equal(t, ChangeAll, f)
	f, err = ParseChangeFilter("current")
	require.NoError(t, err)
	assert.Equal(t, ChangeCurrent, f)
	_, err = ParseChangeFilter("latest")
	assert.Error(t, err)
}

func TestDeclarationJSON(t *testing.T) {
	d := &Declaration{
		Kind: KindElement,
		Name: "Vessel",
		Tag:  Q("urn:ocx", "Vessel"),
		Type: Q("urn:ocx", "Vessel_T"),
	}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"element"`)
	assert.Contains(t, string(data), `"type":"{urn:ocx}Vessel_T"`)
	assert.NotContains(t, string(data), "substitutionGroup")

	var back Declaration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d.Type, back.Type)
	assert.Equal(t, KindElement, back.Kind)
}

func TestBuiltin(t *testing.T) {
	b, ok := ParseBuiltin(Q(schemaNS, "string"))
	assert.True(t, ok)
	assert.Equal(t, String, b)
	b, ok = ParseBuiltin(Q(xmlNS, "lang"))
	assert.True(t, ok)
	assert.Equal(t, XMLLang, b)
	_, ok = ParseBuiltin(Q(schemaNS, "lang"))
	assert.False(t, ok)
	_, ok = ParseBuiltin(Q("urn:x", "string"))
	assert.False(t, ok)
}
