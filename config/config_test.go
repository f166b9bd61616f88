package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taleforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// withEnv replaces the process environment; a nil map means none.
func withEnv(vars map[string]string) env.Options {
	if vars == nil {
		vars = map[string]string{}
	}
	return env.Options{Prefix: EnvPrefix, Environment: vars}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", withEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeTempConfig(t, `
save_dir: /tmp/tf
save_backend: bolt
journal_dsn: sqlite://journal.db
log_level: debug
log_format: json
undo_depth: 5
strict: true
`)
	cfg, err := load(path, withEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tf", cfg.SaveDir)
	assert.Equal(t, BackendBolt, cfg.SaveBackend)
	assert.Equal(t, "sqlite://journal.db", cfg.JournalDSN)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5, cfg.UndoDepth)
	assert.True(t, cfg.Strict)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := load(writeTempConfig(t, "strict: true\n"), withEnv(nil))
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "saves", cfg.SaveDir)
	assert.Equal(t, 20, cfg.UndoDepth)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, "log_level: info\nundo_depth: 3\n")
	cfg, err := load(path, withEnv(map[string]string{
		"TALEFORGE_LOG_LEVEL":    "trace",
		"TALEFORGE_SAVE_BACKEND": "bolt",
		"TALEFORGE_STRICT":       "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, BackendBolt, cfg.SaveBackend)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 3, cfg.UndoDepth)
}

func TestLoad_ProcessEnv(t *testing.T) {
	t.Setenv("TALEFORGE_SAVE_DIR", "/var/saves")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/saves", cfg.SaveDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "backend", file: "save_backend: s3\n", want: `unknown save_backend "s3"`},
		{name: "format", file: "log_format: xml\n", want: `unknown log_format "xml"`},
		{name: "dsn", file: "journal_dsn: postgres://x\n", want: "journal_dsn must start with sqlite://"},
		{name: "undo", file: "undo_depth: -1\n", want: "undo_depth must not be negative"},
		{name: "yaml", file: "save_dir: [\n", want: "loading config"},
		{name: "env type", env: map[string]string{"TALEFORGE_UNDO_DEPTH": "lots"}, want: "parse env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeTempConfig(t, tt.file)
			}
			_, err := load(path, withEnv(tt.env))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "loading config")
}
