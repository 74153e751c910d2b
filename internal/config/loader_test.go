package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{"MUSYNC_LIBRARY", "MUSYNC_DAP", "MUSYNC_DATABASE", "MUSYNC_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	base := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultSongPattern}, cfg.Library.Patterns)
	assert.Equal(t, DefaultPlaylistDir, cfg.DAP.PlaylistDir)
	assert.Equal(t, filepath.Join(base, "musync", DefaultDatabaseFile), cfg.Database.Path)
	assert.Equal(t, DefaultFrameInterval, cfg.UI.FrameInterval)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Shutdown.Timeout)
	assert.False(t, cfg.DAP.Enabled())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingLibrary)
}

func TestLoad_FileAndEnv(t *testing.T) {
	base := isolate(t)
	t.Setenv("MUSIC_HOME", "/srv/music")
	t.Setenv("MUSYNC_DAP", "/media/dap")

	path := filepath.Join(base, "custom.yaml")
	yml := `
library:
  path: ${MUSIC_HOME}
dap:
  path: /mnt/ignored
database:
  path: /var/lib/musync.db
ui:
  frame_interval: 1ms
  choice_labels:
    "1": keep local
shutdown:
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/music", cfg.Library.Path)
	assert.Equal(t, "/media/dap", cfg.DAP.Path, "env overrides file")
	assert.Equal(t, "/var/lib/musync.db", cfg.Database.Path)
	assert.Equal(t, DefaultFrameInterval, cfg.UI.FrameInterval, "too-small interval reset")
	assert.Equal(t, "keep local", cfg.UI.ChoiceLabels["1"])
	assert.Equal(t, 2*time.Second, cfg.Shutdown.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	base := isolate(t)
	path := filepath.Join(base, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("library: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Library.Path = "/music"
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabase)

	cfg.Database.Path = "/music.db"
	cfg.DAP.Path = "/music/"
	assert.ErrorIs(t, cfg.Validate(), ErrSameLibraryAndDAP)

	cfg.DAP.Path = "/media/dap"
	assert.NoError(t, cfg.Validate())
}

func TestSave_RoundTrip(t *testing.T) {
	base := isolate(t)

	cfg := DefaultConfig()
	cfg.Library.Path = "/music"
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Save(""))

	info, err := os.Stat(DefaultPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, filepath.Join(base, "musync", "config.yaml"), DefaultPath())

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/music", loaded.Library.Path)
	assert.Equal(t, "debug", loaded.Logging.Level)
	assert.Equal(t, cfg.UI.ChoiceLabels, loaded.UI.ChoiceLabels)
}
