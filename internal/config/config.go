// Package config provides the file-based configuration of the margaux
// command-line tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/margauxdb/margaux/pkg/types"
)

// Duration is a time.Duration that unmarshals from strings like "5s" in
// both YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return types.WrapError(types.InvalidValue,
			fmt.Sprintf("config: invalid duration %q", node.Value), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.WrapError(types.InvalidValue, "config: invalid duration", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return types.WrapError(types.InvalidValue,
			fmt.Sprintf("config: invalid duration %q", raw), err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the configuration shared by the margaux CLIs.
type Config struct {
	// DatabasePath is the SQLite database file to open.
	DatabasePath string `json:"database_path" yaml:"database_path" validate:"required"`

	// MigrationsDir is the directory of versioned migration subdirectories.
	MigrationsDir string `json:"migrations_dir" yaml:"migrations_dir"`

	// LogLevel is one of debug, info, warn, error, off.
	LogLevel string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error off"`

	// ReadOnly opens the database without write access.
	ReadOnly bool `json:"read_only" yaml:"read_only"`

	// BusyTimeout is how long a locked database is retried before failing.
	BusyTimeout Duration `json:"busy_timeout" yaml:"busy_timeout" validate:"min=0"`
}

// DefaultConfig returns the defaults used when a field is absent from the
// config file.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		BusyTimeout: Duration(5 * time.Second),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return types.WrapError(types.InvalidValue, "config: invalid configuration", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file, applying
// defaults for absent fields.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.FileNotFound,
			fmt.Sprintf("config: failed to read %q", path), err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, types.WrapError(types.InvalidValue,
				fmt.Sprintf("config: failed to parse YAML in %q", path), err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, types.WrapError(types.InvalidValue,
				fmt.Sprintf("config: failed to parse JSON in %q", path), err)
		}
	default:
		return nil, types.NewErrorWithContext(types.InvalidValue,
			fmt.Sprintf("config: unsupported config file format %q", ext), path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv overrides fields from MARGAUX_-prefixed environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("MARGAUX_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("MARGAUX_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}
	if v := os.Getenv("MARGAUX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MARGAUX_READ_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ReadOnly = b
		}
	}
	if v := os.Getenv("MARGAUX_BUSY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BusyTimeout = Duration(d)
		}
	}
}
