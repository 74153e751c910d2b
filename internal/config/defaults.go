package config

import "time"

// Default configuration values.
const (
	// DefaultSongPattern matches the audio formats the library manages.
	DefaultSongPattern = "**/*.{mp3,flac,m4a,ogg,wav}"

	// DefaultPlaylistDir is where playlist files are written on the DAP.
	DefaultPlaylistDir = "Playlists"

	// DefaultDatabaseFile is created in the config directory when no path is set.
	DefaultDatabaseFile = "musync.db"

	// DefaultFrameInterval is the UI redraw tick.
	DefaultFrameInterval = 50 * time.Millisecond

	// DefaultShutdownTimeout bounds the wait for a running command on quit.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultHistoryEntries caps the run history file.
	DefaultHistoryEntries = 500

	// DefaultHistoryRetentionDays drops older runs on startup.
	DefaultHistoryRetentionDays = 90

	// minFrameInterval keeps a misconfigured tick from spinning the UI.
	minFrameInterval = 10 * time.Millisecond
)
