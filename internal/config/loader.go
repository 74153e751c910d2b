package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"musync/internal/fileutil"
)

// Dir returns the musync config directory.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "musync"), nil
}

// DefaultPath returns the default config file path, or "" if no home is known.
func DefaultPath() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load loads configuration from path (DefaultPath when empty) and environment variables.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	loadFromEnv(cfg)
	cfg.applyDefaults()

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file, expanding environment variables.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv applies MUSYNC_* environment overrides.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("MUSYNC_LIBRARY"); v != "" {
		cfg.Library.Path = v
	}
	if v := os.Getenv("MUSYNC_DAP"); v != "" {
		cfg.DAP.Path = v
	}
	if v := os.Getenv("MUSYNC_DATABASE"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MUSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDefaults fills values a partial config file may have zeroed.
func (c *Config) applyDefaults() {
	if len(c.Library.Patterns) == 0 {
		c.Library.Patterns = []string{DefaultSongPattern}
	}
	if c.DAP.PlaylistDir == "" {
		c.DAP.PlaylistDir = DefaultPlaylistDir
	}
	if c.Database.Path == "" {
		if dir, err := Dir(); err == nil {
			c.Database.Path = filepath.Join(dir, DefaultDatabaseFile)
		}
	}
	if c.UI.FrameInterval < minFrameInterval {
		c.UI.FrameInterval = DefaultFrameInterval
	}
	if c.Shutdown.Timeout <= 0 {
		c.Shutdown.Timeout = DefaultShutdownTimeout
	}
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = DefaultHistoryEntries
	}
	if c.History.RetentionDays <= 0 {
		c.History.RetentionDays = DefaultHistoryRetentionDays
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Library.Path == "" {
		return ErrMissingLibrary
	}
	if c.Database.Path == "" {
		return ErrMissingDatabase
	}
	if c.DAP.Enabled() && filepath.Clean(c.DAP.Path) == filepath.Clean(c.Library.Path) {
		return ErrSameLibraryAndDAP
	}
	return nil
}

// ConfigError is a configuration validation error.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingLibrary    ConfigError = "missing library path: set library.path in config.yaml, MUSYNC_LIBRARY, or --library"
	ErrMissingDatabase   ConfigError = "missing database path: set database.path in config.yaml, MUSYNC_DATABASE, or --db"
	ErrSameLibraryAndDAP ConfigError = "library and dap paths must differ"
)

// Save writes the configuration to path (DefaultPath when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
