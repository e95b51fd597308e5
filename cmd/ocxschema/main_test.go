package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CognitoIQ/ocxschema/xsd"
)

const sample = "../../xsd/testdata/ocx_sample.xsd"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("OCX_DEFAULT_SCHEMA", "")
	t.Setenv("OCX_TABLE_FORMAT", "")
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSummaryCommand(t *testing.T) {
	out, err := run(t, "summary", "--xsd", sample, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Item,Value\n")
	assert.Contains(t, out, "Schema Version,2.8.7\n")
	assert.Contains(t, out, "element,7\n")
	assert.Contains(t, out, "Total,28\n")
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2.8.7, XML 1.1, UTF-8")
	assert.Contains(t, out, "1 unresolved references:")
	assert.Contains(t, out, "Hull_T")
}

func TestListCommands(t *testing.T) {
	out, err := run(t, "elements", sample, "-f", "json", "--filter", "vessel")
	require.NoError(t, err)
	var decls []xsd.Declaration
	require.NoError(t, json.Unmarshal([]byte(out), &decls))
	require.Len(t, decls, 1)
	assert.Equal(t, "Vessel", decls[0].Name)

	out, err = run(t, "attribute-groups", sample, "-f", "tsv", "--row-numbers")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "#\tPrefix\tName"))
	assert.True(t, strings.HasPrefix(lines[1], "1\t"))
}

func TestNamespacesCommand(t *testing.T) {
	out, err := run(t, "namespaces", sample, "-f", "github")
	require.NoError(t, err)
	assert.Contains(t, out, "| ocx | https://3docx.org/fileadmin//ocx_schema//V287//OCX_Schema.xsd |")
}

func TestChangesCommand(t *testing.T) {
	out, err := run(t, "changes", sample, "--version", "current", "-f", "tsv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2.8.7\tocxtools\t2023-06-01\tVessel_T gets an imoNumber attribute.", lines[1])

	_, err = run(t, "changes", sample, "--version", "latest")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	out, err := run(t, "inspect", "ocx:Vessel_T", sample, "-f", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "complexType ocx:Vessel_T:\n")
	assert.Contains(t, out, "Attributes:\n")
	assert.Contains(t, out, "Children:\n")
	assert.Contains(t, out, "ocx:Hull")

	out, err = run(t, "inspect", "Vessel_T", sample, "--assertions", "--parents", "-f", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "@imoNumber != ''")
	assert.Contains(t, out, "ocx:Vessel ")
	assert.NotContains(t, out, "Children:")

	out, err = run(t, "inspect", "Panel", sample, "--source")
	require.NoError(t, err)
	assert.Contains(t, out, `ocx_sample.xsd:121`)
	assert.Contains(t, out, `name="Panel"`)
}

func TestInspectUnknown(t *testing.T) {
	_, err := run(t, "inspect", "Vesel", sample)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Did you mean "ocx:Vessel"?`)

	_, err = run(t, "inspect", "Vessel", sample, "--kind", "complexType")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no declaration named "Vessel"`)

	out, err := run(t, "inspect", "Vessel_T", sample, "--kind", "complex", "-f", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "complexType ocx:Vessel_T:\n")
}

func TestExportCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "out.db")
	out, err := run(t, "export", sample, "--out", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 28 declarations to "+db)
}

func TestErrors(t *testing.T) {
	_, err := run(t, "summary")
	assert.ErrorIs(t, err, errNoSource)

	_, err = run(t, "summary", sample, "-f", "html")
	assert.Error(t, err)

	_, err = run(t, "summary", "testdata/missing.xsd")
	assert.ErrorContains(t, err, "source not found")

	_, err = run(t, "summary", "--config", "testdata/missing.yaml")
	assert.Error(t, err)
}
