package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Full(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
database: ./portmatch.db
vocabulary: ./vocab.cue
vocabulary_constraint: "^1.0"
export_dir: ./exports
listen: 127.0.0.1:9090
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, Config{
		Database:             "./portmatch.db",
		Vocabulary:           "./vocab.cue",
		VocabularyConstraint: "^1.0",
		ExportDir:            "./exports",
		Listen:               "127.0.0.1:9090",
		LogLevel:             "debug",
	}, cfg)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestDecode_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Decode(strings.NewReader("database: a.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "a.db", cfg.Database)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestDecode_UnknownKey(t *testing.T) {
	_, err := Decode(strings.NewReader("databse: a.db\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databse")
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"log level", "log_level: loud\n", "log_level"},
		{"listen without port", "listen: localhost\n", "listen"},
		{"constraint", "vocabulary_constraint: \"not a constraint\"\n", "vocabulary_constraint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portmatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config")
}
