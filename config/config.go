// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "ocxschema.yaml"

// Config is the root configuration structure.
type Config struct {
	// DefaultSchema is parsed when a command is given no source.
	DefaultSchema string `yaml:"default_schema"`
	// SchemaFolder caches downloaded schemas.
	SchemaFolder string `yaml:"schema_folder"`
	// FollowImports loads imported and included documents. Defaults to true.
	FollowImports *bool `yaml:"follow_imports"`

	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
	Table   TableConfig   `yaml:"table"`
	Server  ServerConfig  `yaml:"server"`
	Export  ExportConfig  `yaml:"export"`
}

// HTTPConfig configures schema downloads.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// TableConfig configures report output.
type TableConfig struct {
	Format     string `yaml:"format"`
	RowNumbers bool   `yaml:"row_numbers"`
}

// ServerConfig configures the HTTP query API.
type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	MetricsPath string        `yaml:"metrics_path"`
	Watch       bool          `yaml:"watch"` // re-parse local schemas when they change
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// ExportConfig configures the SQLite export.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// Formats lists the accepted table formats.
var Formats = []string{"simple", "plain", "github", "tsv", "csv", "json", "yaml"}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML bytes. Environment variables in
// the text are expanded, then OCX_* variables override the result.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file exists, with
// OCX_* environment overrides applied.
func Default() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path if it exists, and falls back to Default.
// An empty path looks for DefaultFile in the working directory.
func LoadWithFallback(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return Default()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Follow reports whether imports are followed.
func (c *Config) Follow() bool {
	return c.FollowImports == nil || *c.FollowImports
}

// applyEnvOverrides applies OCX_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OCX_DEFAULT_SCHEMA"); v != "" {
		cfg.DefaultSchema = v
	}
	if v := os.Getenv("OCX_SCHEMA_FOLDER"); v != "" {
		cfg.SchemaFolder = v
	}
	if v := os.Getenv("OCX_FOLLOW_IMPORTS"); v != "" {
		follow := parseBool(v)
		cfg.FollowImports = &follow
	}

	if v := os.Getenv("OCX_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("OCX_HTTP_USER_AGENT"); v != "" {
		cfg.HTTP.UserAgent = v
	}

	if v := os.Getenv("OCX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OCX_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("OCX_TABLE_FORMAT"); v != "" {
		cfg.Table.Format = v
	}
	if v := os.Getenv("OCX_TABLE_ROW_NUMBERS"); v != "" {
		cfg.Table.RowNumbers = parseBool(v)
	}

	if v := os.Getenv("OCX_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("OCX_SERVER_METRICS_PATH"); v != "" {
		cfg.Server.MetricsPath = v
	}
	if v := os.Getenv("OCX_SERVER_WATCH"); v != "" {
		cfg.Server.Watch = parseBool(v)
	}
	if v := os.Getenv("OCX_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}

	if v := os.Getenv("OCX_EXPORT_PATH"); v != "" {
		cfg.Export.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.SchemaFolder == "" {
		cfg.SchemaFolder = defaultSchemaFolder()
	}

	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = "ocxschema"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Table.Format == "" {
		cfg.Table.Format = "simple"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}

	if cfg.Export.Path == "" {
		cfg.Export.Path = "ocxschema.db"
	}
}

func defaultSchemaFolder() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ocxschema")
	}
	return filepath.Join(os.TempDir(), "ocxschema")
}

func validate(cfg *Config) error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, disabled, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'console' or 'json', got %q", cfg.Logging.Format)
	}

	validFormat := false
	for _, f := range Formats {
		if cfg.Table.Format == f {
			validFormat = true
		}
	}
	if !validFormat {
		return fmt.Errorf("table.format must be one of: %s", strings.Join(Formats, ", "))
	}

	if cfg.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if !strings.HasPrefix(cfg.Server.MetricsPath, "/") {
		return fmt.Errorf("server.metrics_path must start with '/', got %q", cfg.Server.MetricsPath)
	}
	return nil
}
