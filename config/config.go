// Package config loads runtime settings: built-in defaults, then an
// optional YAML file, then TALEFORGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TALEFORGE_"

// Save backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Config holds the settings shared by every front-end.
type Config struct {
	SaveDir     string `yaml:"save_dir" env:"SAVE_DIR"`
	SaveBackend string `yaml:"save_backend" env:"SAVE_BACKEND"`
	JournalDSN  string `yaml:"journal_dsn" env:"JOURNAL_DSN"` // empty disables the journal
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"`
	Language    string `yaml:"language" env:"LANGUAGE"` // YAML pack laid over English
	UndoDepth   int    `yaml:"undo_depth" env:"UNDO_DEPTH"`
	Strict      bool   `yaml:"strict" env:"STRICT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		SaveDir:     "saves",
		SaveBackend: BackendFile,
		LogLevel:    "warn",
		LogFormat:   "text",
		UndoDepth:   20,
	}
}

// Load reads path over the defaults, applies the process environment and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	return load(path, env.Options{Prefix: EnvPrefix})
}

func load(path string, opts env.Options) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.SaveBackend {
	case BackendFile, BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("unknown save_backend %q (want %s or %s)", c.SaveBackend, BackendFile, BackendBolt))
	}
	if strings.TrimSpace(c.SaveDir) == "" {
		errs = append(errs, fmt.Errorf("save_dir is required"))
	}
	if c.JournalDSN != "" && !strings.HasPrefix(c.JournalDSN, "sqlite://") {
		errs = append(errs, fmt.Errorf("journal_dsn must start with sqlite://"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	if c.UndoDepth < 0 {
		errs = append(errs, fmt.Errorf("undo_depth must not be negative"))
	}
	return errors.Join(errs...)
}
