// Package config loads the idarling configuration file.
//
// The file is YAML. Every field has a default, so an empty or missing file is
// valid. After decoding, the result is checked against an embedded CUE
// schema (schema.cue).
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config is the full configuration.
type Config struct {
	User  User  `yaml:"user" json:"user"`
	Relay Relay `yaml:"relay" json:"relay"`
	Log   Log   `yaml:"log" json:"log"`
	Store Store `yaml:"store" json:"store"`
}

// User is how the local user appears to other participants.
type User struct {
	Name  string `yaml:"name" json:"name"`
	Color int    `yaml:"color" json:"color"`
}

// Relay configures the relay connection.
type Relay struct {
	URL string `yaml:"url" json:"url"`
	// QueryTimeout bounds how long a database-list query may stay
	// unanswered. Zero waits until the connection closes.
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
	SendQueue    int           `yaml:"send_queue" json:"send_queue"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Store configures the document sidecar.
type Store struct {
	Suffix string `yaml:"suffix" json:"suffix"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		User:  User{Name: "anonymous", Color: 0x808080},
		Relay: Relay{URL: "ws://127.0.0.1:31013", SendQueue: 256},
		Log:   Log{Level: "info", Format: "text"},
		Store: Store{Suffix: ".idarling.db"},
	}
}

// Load reads the file at path over the defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidationError reports schema violations.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks cfg against the embedded schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Logger builds the process logger writing to w. verbose forces debug.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
