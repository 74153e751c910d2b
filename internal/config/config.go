package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Library  LibraryConfig  `yaml:"library"`
	DAP      DAPConfig      `yaml:"dap"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	UI       UIConfig       `yaml:"ui"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	History  HistoryConfig  `yaml:"history"`

	// Runtime version information
	Version string `yaml:"-"`
}

// LibraryConfig locates the local music library.
type LibraryConfig struct {
	Path     string   `yaml:"path"`
	Patterns []string `yaml:"patterns"` // doublestar patterns relative to Path
}

// DAPConfig locates the mounted portable player. An empty path disables DAP sync.
type DAPConfig struct {
	Path        string `yaml:"path"`
	PlaylistDir string `yaml:"playlist_dir"` // relative to Path
}

// Enabled reports whether a DAP is configured.
func (c DAPConfig) Enabled() bool {
	return c.Path != ""
}

// DatabaseConfig holds the song database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// UIConfig holds TUI settings.
type UIConfig struct {
	FrameInterval time.Duration     `yaml:"frame_interval"`
	ChoiceLabels  map[string]string `yaml:"choice_labels"` // choice rune -> button label
}

// ShutdownConfig bounds how long quitting waits for a running command.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig controls the record of finished command runs.
type HistoryConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxEntries    int  `yaml:"max_entries"`
	RetentionDays int  `yaml:"retention_days"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			Patterns: []string{DefaultSongPattern},
		},
		DAP: DAPConfig{
			PlaylistDir: DefaultPlaylistDir,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		UI: UIConfig{
			FrameInterval: DefaultFrameInterval,
			ChoiceLabels: map[string]string{
				"1": "PC → DB",
				"2": "DB → PC",
				"0": "skip",
				"-": "abort",
				"y": "yes",
				"n": "no",
			},
		},
		Shutdown: ShutdownConfig{
			Timeout: DefaultShutdownTimeout,
		},
		History: HistoryConfig{
			Enabled:       true,
			MaxEntries:    DefaultHistoryEntries,
			RetentionDays: DefaultHistoryRetentionDays,
		},
	}
}
