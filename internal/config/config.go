// Package config loads crate.yaml and validates it against an embedded CUE
// schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/crate/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is the config file picked up from the working directory when
// no --config flag is given.
const DefaultFile = "crate.yaml"

// Config is the on-disk configuration.
type Config struct {
	Database   string            `yaml:"database" json:"database"`
	Collection string            `yaml:"collection" json:"collection"`
	Version    int               `yaml:"version" json:"version"`
	CacheSize  int               `yaml:"cache_size" json:"cache_size"`
	LogLevel   string            `yaml:"log_level" json:"log_level"`
	Indexes    []store.IndexSpec `yaml:"indexes" json:"indexes"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database:   "crate.db",
		Collection: store.DefaultCollection,
		Version:    store.DefaultVersion,
		CacheSize:  store.DefaultCacheSize,
		LogLevel:   "info",
		Indexes:    store.DefaultIndexes(),
	}
}

// ValidationError reports a config value rejected by the schema.
type ValidationError struct {
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return "config: " + e.Message
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Load reads and validates the config file at path.
// Keys missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional loads path if it is set, else DefaultFile if it exists, else
// returns Default.
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return Default(), nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if cfg.Indexes == nil {
		cfg.Indexes = []store.IndexSpec{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}

	seen := make(map[string]bool, len(c.Indexes))
	for _, spec := range c.Indexes {
		if seen[spec.Field] {
			return &ValidationError{Message: fmt.Sprintf("indexes: duplicate field %q", spec.Field)}
		}
		seen[spec.Field] = true
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// StoreOptions converts the config into store.Options.
func (c *Config) StoreOptions(log *slog.Logger) store.Options {
	return store.Options{
		Path:       c.Database,
		Collection: c.Collection,
		Version:    c.Version,
		Indexes:    append([]store.IndexSpec{}, c.Indexes...),
		CacheSize:  c.CacheSize,
		Logger:     log,
	}
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	first := errs[0]
	ve := &ValidationError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ve.Pos = positions[0]
	}
	return ve
}
