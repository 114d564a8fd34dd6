// Package config loads the optional portmatch configuration file.
//
// Example:
//
//	database: ./portmatch.db
//	vocabulary: ./vocabulary.cue
//	vocabulary_constraint: "^1.0"
//	export_dir: ./exports
//	listen: 127.0.0.1:8080
//	log_level: info
//
// Command-line flags override file values.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultListen is the address portmatch serve binds when none is configured.
const DefaultListen = "127.0.0.1:8080"

// Config is the file configuration. Every field is optional.
type Config struct {
	// Database is the SQLite archive path. Empty disables archiving.
	Database string `yaml:"database"`

	// Vocabulary is a CUE vocabulary file. Empty means the built-in table.
	Vocabulary string `yaml:"vocabulary"`

	// VocabularyConstraint is a semver constraint the loaded vocabulary
	// version must satisfy.
	VocabularyConstraint string `yaml:"vocabulary_constraint" validate:"omitempty,semver_constraint"`

	// ExportDir receives export documents written by run and oracle.
	ExportDir string `yaml:"export_dir"`

	Listen   string `yaml:"listen" validate:"omitempty,hostname_port"`
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("semver_constraint", validateSemverConstraint)
}

func validateSemverConstraint(fl validator.FieldLevel) bool {
	_, err := semver.NewConstraint(fl.Field().String())
	return err == nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:   DefaultListen,
		LogLevel: "info",
	}
}

// Load reads and validates a YAML configuration file. Unknown keys are
// rejected. Missing keys keep their Default values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a YAML configuration from r.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field formats.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: invalid value %q (%s)", yamlName(fe.StructField()), fe.Value(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SlogLevel returns the configured log level. Unset means Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// yamlName maps a struct field to its YAML key for error messages.
func yamlName(field string) string {
	switch field {
	case "VocabularyConstraint":
		return "vocabulary_constraint"
	case "ExportDir":
		return "export_dir"
	case "LogLevel":
		return "log_level"
	default:
		return strings.ToLower(field)
	}
}
