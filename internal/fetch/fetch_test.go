package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CognitoIQ/ocxschema/internal/testutil"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

const schemaURL = "https://3docx.org/fileadmin/ocx_schema/V287/OCX_Schema.xsd"

func TestLoadFile(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"ocx.xsd": "<schema/>"})
	f := New(t.TempDir(), zerolog.Nop())

	data, loc, err := f.Load(context.Background(), filepath.Join(dir, "ocx.xsd"))
	require.NoError(t, err)
	assert.Equal(t, "<schema/>", string(data))
	assert.Equal(t, filepath.Join(dir, "ocx.xsd"), loc)

	_, _, err = f.Load(context.Background(), "file://"+filepath.Join(dir, "ocx.xsd"))
	assert.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	f := New(t.TempDir(), zerolog.Nop())
	_, _, err := f.Load(context.Background(), filepath.Join(t.TempDir(), "nope.xsd"))
	require.Error(t, err)
	assert.ErrorIs(t, err, xsderrors.ErrSourceNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, IsNotFound(err))
}

func TestDownload(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "cache")
	f := New(folder, zerolog.Nop())
	transport := &testutil.FakeTransport{Pages: map[string][]byte{schemaURL: []byte("<xs:schema/>")}}
	f.Client.Transport = transport

	data, loc, err := f.Load(context.Background(), schemaURL)
	require.NoError(t, err)
	assert.Equal(t, "<xs:schema/>", string(data))
	assert.Equal(t, schemaURL, loc)

	cached, err := os.ReadFile(filepath.Join(folder, "OCX_Schema.xsd"))
	require.NoError(t, err)
	assert.Equal(t, "<xs:schema/>", string(cached))

	reqs := transport.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, DefaultUserAgent, reqs[0].Header.Get("User-Agent"))

	// a second download overwrites the cached copy and leaves no temp files
	transport.Pages[schemaURL] = []byte("<xs:schema version='2'/>")
	_, _, err = f.Load(context.Background(), schemaURL)
	require.NoError(t, err)
	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	cached, err = os.ReadFile(filepath.Join(folder, "OCX_Schema.xsd"))
	require.NoError(t, err)
	assert.Equal(t, "<xs:schema version='2'/>", string(cached))
}

func TestDownloadNotFound(t *testing.T) {
	folder := t.TempDir()
	f := New(folder, zerolog.Nop())
	f.Client = testutil.FakeClient(nil)

	_, _, err := f.Load(context.Background(), schemaURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, xsderrors.ErrSourceNotFound)
	assert.Contains(t, err.Error(), "HTTP 404")

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed downloads leave nothing behind")
}

func TestCachePath(t *testing.T) {
	f := &Fetcher{Folder: "/cache"}
	p, err := f.CachePath("https://example.com/schemas/unitsml.xsd?v=1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "unitsml.xsd"), p)

	p, err = f.CachePath("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "schema.xsd"), p)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://example.com/a/ocx.xsd", "unitsml.xsd", "https://example.com/a/unitsml.xsd"},
		{"https://example.com/a/ocx.xsd", "../xml.xsd", "https://example.com/xml.xsd"},
		{"https://example.com/a/ocx.xsd", "http://www.w3.org/2001/xml.xsd", "http://www.w3.org/2001/xml.xsd"},
		{"/schemas/ocx.xsd", "unitsml.xsd", "/schemas/unitsml.xsd"},
		{"/schemas/ocx.xsd", "sub/units.xsd", "/schemas/sub/units.xsd"},
		{"/schemas/ocx.xsd", "/other/xml.xsd", "/other/xml.xsd"},
		{"file:///schemas/ocx.xsd", "unitsml.xsd", "/schemas/unitsml.xsd"},
	}
	for _, tt := range tests {
		assert.Equal(t, filepath.FromSlash(tt.want), Resolve(tt.base, tt.ref), "%s + %s", tt.base, tt.ref)
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://3docx.org/x.xsd"))
	assert.True(t, IsURL("http://localhost/x.xsd"))
	assert.False(t, IsURL("schemas/x.xsd"))
	assert.False(t, IsURL("file:///x.xsd"))
}
