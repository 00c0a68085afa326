// Package config loads the polyindex.yaml settings shared by the CLI
// commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory when
// no --config flag is given.
const DefaultFile = "polyindex.yaml"

// Config holds CLI settings. Flags override file values.
type Config struct {
	// ModelDir is the directory holding the CUE domain definitions.
	ModelDir string `yaml:"model_dir"`

	// Format selects text or json output.
	Format string `yaml:"format" validate:"oneof=text json"`

	// Catalog is the SQLite catalog path. Empty disables persistence.
	Catalog string `yaml:"catalog"`

	// DDL emits CREATE INDEX statements after a build.
	DDL bool `yaml:"ddl"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Naming NamingConfig `yaml:"naming"`
}

// NamingConfig controls generated index names.
type NamingConfig struct {
	// MaxLength truncates longer names with a hash suffix. Zero means no limit.
	MaxLength int `yaml:"max_length" validate:"omitempty,min=16,max=1024"`
}

var validate = validator.New()

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Format:   "text",
		LogLevel: "info",
	}
}

// Load reads path over the defaults. An empty path yields the defaults,
// and a missing DefaultFile is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: %s", yamlPath(fe.Namespace()), describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Level maps LogLevel onto slog.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

var yamlNames = map[string]string{
	"Format":    "format",
	"LogLevel":  "log_level",
	"Naming":    "naming",
	"MaxLength": "max_length",
}

// yamlPath turns "Config.Naming.MaxLength" into "naming.max_length".
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")[1:]
	for i, p := range parts {
		if n, ok := yamlNames[p]; ok {
			parts[i] = n
		}
	}
	return strings.Join(parts, ".")
}
