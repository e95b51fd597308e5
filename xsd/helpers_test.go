package xsd

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CognitoIQ/ocxschema/xmltree"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

const testNS = "urn:test"

// parseSnippet wraps body in a schema element and returns the root.
func parseSnippet(t *testing.T, body string) *xmltree.Element {
	t.Helper()
	root, err := xmltree.Parse([]byte(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" ` +
		`xmlns:t="urn:test" targetNamespace="urn:test">` + body + `</xs:schema>`))
	require.NoError(t, err)
	return root
}

// first returns the first schema element in the snippet.
func first(t *testing.T, body string) *xmltree.Element {
	t.Helper()
	root := parseSnippet(t, body)
	require.NotEmpty(t, root.Children)
	return &root.Children[0]
}

// named finds the element, attribute or particle node with the given
// name attribute.
func named(t *testing.T, root *xmltree.Element, name string) *xmltree.Element {
	t.Helper()
	found := root.SearchFunc(func(el *xmltree.Element) bool {
		return el.Attr("", "name") == name
	})
	require.NotEmpty(t, found, "no node named %s", name)
	return found[0]
}

func TestResolveTypeRef(t *testing.T) {
	tests := []struct {
		name string
		body string
		want QName
	}{
		{"type attribute", `<xs:element name="a" type="xs:string"/>`, Q(schemaNS, "string")},
		{"base attribute", `<xs:extension base="t:Base"/>`, Q(testNS, "Base")},
		{"ref attribute", `<xs:element ref="t:Other"/>`, Q(testNS, "Other")},
		{"type wins over ref", `<xs:attribute name="a" type="xs:int" ref="t:Other"/>`, Q(schemaNS, "int")},
		{"complexContent", `<xs:complexType name="c">
			<xs:complexContent><xs:extension base="t:Base"/></xs:complexContent>
		</xs:complexType>`, Q(testNS, "Base")},
		{"anonymous complexContent", `<xs:element name="e">
			<xs:complexType>
				<xs:complexContent><xs:restriction base="t:Base"/></xs:complexContent>
			</xs:complexType>
		</xs:element>`, Q(testNS, "Base")},
		{"simpleType itself", `<xs:simpleType name="s">
			<xs:restriction base="xs:token"/>
		</xs:simpleType>`, Q(schemaNS, "token")},
		{"anonymous simpleType", `<xs:attribute name="a">
			<xs:simpleType><xs:restriction base="xs:decimal"/></xs:simpleType>
		</xs:attribute>`, Q(schemaNS, "decimal")},
		{"simpleContent", `<xs:complexType name="c">
			<xs:simpleContent><xs:extension base="xs:double"/></xs:simpleContent>
		</xs:complexType>`, Q(schemaNS, "double")},
		{"list itemType", `<xs:simpleType name="s"><xs:list itemType="xs:boolean"/></xs:simpleType>`, Q(schemaNS, "boolean")},
		{"complexContent without base", `<xs:element name="e">
			<xs:complexType><xs:complexContent><xs:extension/></xs:complexContent></xs:complexType>
			<xs:simpleType><xs:restriction base="xs:string"/></xs:simpleType>
		</xs:element>`, Q(schemaNS, "string")},
		{"untyped", `<xs:element name="e"/>`, QName{}},
		{"sequence only", `<xs:complexType name="c"><xs:sequence/></xs:complexType>`, QName{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTypeRef(first(t, tt.body)))
		})
	}
}

func TestComputeCardinality(t *testing.T) {
	root := parseSnippet(t, `
	<xs:complexType name="c">
		<xs:sequence>
			<xs:element name="plain"/>
			<xs:element name="many" minOccurs="2" maxOccurs="unbounded"/>
			<xs:element name="inverted" minOccurs="3" maxOccurs="1"/>
			<xs:choice minOccurs="0" maxOccurs="4">
				<xs:element name="option"/>
			</xs:choice>
			<xs:choice>
				<xs:element name="picked" minOccurs="0"/>
			</xs:choice>
		</xs:sequence>
		<xs:attribute name="req" use="required"/>
		<xs:attribute name="gone" use="prohibited"/>
		<xs:attribute name="dflt" default="m" fixed="x"/>
	</xs:complexType>
	<xs:element name="outer">
		<xs:complexType>
			<xs:element name="nested" minOccurs="0"/>
		</xs:complexType>
	</xs:element>
	<xs:element name="bad" minOccurs="-1" maxOccurs="lots"/>`)

	tests := []struct {
		name string
		want Cardinality
	}{
		{"plain", Cardinality{Lower: 1, Upper: 1, Use: Required}},
		{"many", Cardinality{Lower: 2, Upper: Unbounded, Use: Required}},
		{"inverted", Cardinality{Lower: 3, Upper: 3, Use: Required}},
		{"option", Cardinality{Lower: 0, Upper: 4, Use: Optional, Choice: true}},
		{"picked", Cardinality{Lower: 0, Upper: 1, Use: Optional, Choice: true}},
		{"nested", Cardinality{Lower: 0, Upper: 1, Use: Optional}},
		{"bad", Cardinality{Lower: 1, Upper: 1, Use: Required}},
		{"req", Cardinality{Lower: 1, Upper: 1, Use: Required}},
		{"gone", Cardinality{Lower: 0, Upper: 0, Use: Optional}},
		{"dflt", Cardinality{Lower: 0, Upper: 1, Use: Optional, Default: "m", Fixed: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeCardinality(named(t, root, tt.name))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ComputeCardinality(named(t, root, "c"))
	assert.False(t, ok, "complexType has no cardinality")
}

func TestCardinalityString(t *testing.T) {
	assert.Equal(t, "[0, 1]", Cardinality{Upper: 1}.String())
	assert.Equal(t, "[1, ∞]", Cardinality{Lower: 1, Upper: Unbounded}.String())
	assert.True(t, Cardinality{Upper: Unbounded}.Unbounded())
}

func TestSchemaVersion(t *testing.T) {
	root := parseSnippet(t, `<xs:complexType name="c">
		<xs:attribute name="schemaVersion" type="xs:string" fixed="3.0.0"/>
	</xs:complexType>`)
	assert.Equal(t, "3.0.0", SchemaVersion(root))

	root = parseSnippet(t, `<xs:attribute name="schemaVersion" type="xs:string"/>`)
	assert.Equal(t, MissingVersion, SchemaVersion(root))
}

func TestSchemaChanges(t *testing.T) {
	root := parseSnippet(t, `<xs:annotation><xs:appinfo>
		<t:SchemaChange version="1.0" author="a" date="2020-01-01">
			<t:Description>First
	release.</t:Description>
		</t:SchemaChange>
		<SchemaChange version="1.1"/>
	</xs:appinfo></xs:annotation>`)

	assert.Equal(t, []Change{
		{Version: "1.0", Author: "a", Date: "2020-01-01", Description: "Firstrelease."},
		{Version: "1.1"},
	}, SchemaChanges(root))
	assert.Empty(t, SchemaChanges(parseSnippet(t, `<xs:element name="e"/>`)))
}

func TestAnnotation(t *testing.T) {
	el := first(t, `<xs:element name="e">
		<xs:annotation>
			<xs:documentation>  A  ship
				hull. </xs:documentation>
			<xs:documentation>Second &amp; last.</xs:documentation>
		</xs:annotation>
		<xs:complexType>
			<xs:annotation><xs:documentation>Not mine.</xs:documentation></xs:annotation>
		</xs:complexType>
	</xs:element>`)
	assert.Equal(t, "A ship hull. Second & last.", Annotation(el))
	assert.Empty(t, Annotation(first(t, `<xs:element name="e"/>`)))
}

func TestBreadcrumb(t *testing.T) {
	root := parseSnippet(t, `<xs:complexType name="Vessel_T">
		<xs:sequence><xs:element ref="t:Panel"/></xs:sequence>
	</xs:complexType>`)
	top := &root.Children[0]
	panel := &top.Children[0].Children[0]
	assert.Equal(t, "complexType(Vessel_T)>sequence>element(t:Panel)", breadcrumb(top, panel))
	assert.Equal(t, "complexType(Vessel_T)", breadcrumb(top, top))
}

func TestCatchParseError(t *testing.T) {
	root := parseSnippet(t, `<xs:complexType name="c"><xs:sequence/></xs:complexType>`)
	run := func() (err error) {
		defer catchParseError("test.xsd", &err)
		walk(root, func(el *xmltree.Element) {
			walk(el, func(*xmltree.Element) { stop("boom") })
		})
		return nil
	}
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema>complexType(c): boom")
	assert.Contains(t, err.Error(), "test.xsd")
}

func TestForeignNode(t *testing.T) {
	b := newBuilder(context.Background(), zerolog.Nop(), nil, false)
	_, err := b.run("a.xsd", []byte(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
		targetNamespace="urn:a"><xs:element name="e" type="xs:string"/></xs:schema>`))
	require.NoError(t, err)

	own := &b.docs[0].root.Children[0]
	assert.Equal(t, b.docs[0], b.docOf(own))

	other := parseSnippet(t, `<xs:element name="stray" type="t:T"/>`)
	err = func() (err error) {
		defer catchParseError("a.xsd", &err)
		b.resolve(&other.Children[0], "t:T")
		return nil
	}()
	require.Error(t, err)
	assert.ErrorIs(t, err, xsderrors.ErrMalformedSchema)
	assert.ErrorIs(t, err, xsderrors.ErrMalformedNode)
	assert.Contains(t, err.Error(), "malformed node element")
}
