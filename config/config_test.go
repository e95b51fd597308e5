package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CognitoIQ/ocxschema/config"
)

func writeAndLoad(t *testing.T, content string) (*config.Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ocxschema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return config.Load(path)
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := writeAndLoad(t, `
default_schema: "https://3docx.org/fileadmin//ocx_schema//V287//OCX_Schema.xsd"
schema_folder: /tmp/schemas
follow_imports: false

http:
  timeout: 5s
  user_agent: "test-agent"

logging:
  level: debug
  format: json

table:
  format: github
  row_numbers: true

server:
  addr: ":9090"
  watch: true
`)
	require.NoError(t, err)

	assert.Equal(t, "https://3docx.org/fileadmin//ocx_schema//V287//OCX_Schema.xsd", cfg.DefaultSchema)
	assert.Equal(t, "/tmp/schemas", cfg.SchemaFolder)
	assert.False(t, cfg.Follow())
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "test-agent", cfg.HTTP.UserAgent)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "github", cfg.Table.Format)
	assert.True(t, cfg.Table.RowNumbers)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Server.Watch)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := writeAndLoad(t, "{}\n")
	require.NoError(t, err)

	assert.True(t, cfg.Follow())
	assert.NotEmpty(t, cfg.SchemaFolder)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "ocxschema", cfg.HTTP.UserAgent)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "simple", cfg.Table.Format)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "ocxschema.db", cfg.Export.Path)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SCHEMA_HOME", "/data/ocx")
	cfg, err := writeAndLoad(t, `default_schema: "${SCHEMA_HOME}/OCX_Schema.xsd"`)
	require.NoError(t, err)
	assert.Equal(t, "/data/ocx/OCX_Schema.xsd", cfg.DefaultSchema)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OCX_LOG_LEVEL", "warn")
	t.Setenv("OCX_TABLE_FORMAT", "csv")
	t.Setenv("OCX_FOLLOW_IMPORTS", "no")
	t.Setenv("OCX_HTTP_TIMEOUT", "2m")
	t.Setenv("OCX_SERVER_WATCH", "on")
	t.Setenv("OCX_EXPORT_PATH", "/tmp/out.db")

	cfg, err := writeAndLoad(t, `
logging:
  level: debug
table:
  format: json
`)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "csv", cfg.Table.Format)
	assert.False(t, cfg.Follow())
	assert.Equal(t, 2*time.Minute, cfg.HTTP.Timeout)
	assert.True(t, cfg.Server.Watch)
	assert.Equal(t, "/tmp/out.db", cfg.Export.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
		{"bad table format", "table:\n  format: html\n", "table.format"},
		{"bad metrics path", "server:\n  metrics_path: metrics\n", "server.metrics_path"},
		{"bad yaml", "table: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoad(t, tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = config.LoadWithFallback(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoadWithFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.LoadWithFallback("")
	require.NoError(t, err)
	assert.Equal(t, "simple", cfg.Table.Format)

	require.NoError(t, os.WriteFile(config.DefaultFile, []byte("table:\n  format: tsv\n"), 0o644))
	cfg, err = config.LoadWithFallback("")
	require.NoError(t, err)
	assert.Equal(t, "tsv", cfg.Table.Format)
}
