package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"musync/internal/cui"
)

// PlaylistExt is the extension of playlist files written to the DAP.
const PlaylistExt = ".m3u8"

// Playlist rewrites every DB playlist as an m3u8 file on the DAP and removes
// playlist files that no longer have a DB playlist.
type Playlist struct{}

func (Playlist) Kind() Kind { return KindPlaylist }

func (Playlist) Label() string { return "playlist" }

func (Playlist) sealed() {}

func (Playlist) Run(ctx context.Context, env *Env, c cui.Cui) error {
	if err := env.requireDAP(); err != nil {
		return err
	}

	playlists, err := env.Store.Playlists(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(playlists))
	for name := range playlists {
		names = append(names, name)
	}
	sort.Strings(names)
	c.Logf("updating %d playlists", len(names))

	keep := make(map[string]bool, len(names))
	for _, name := range names {
		file := name + PlaylistExt
		keep[file] = true

		var b strings.Builder
		b.WriteString("#EXTM3U\n")
		written := 0
		for _, song := range playlists[name] {
			if !env.DAP.Exists(song) {
				c.Errorf("%s: %s is not on the DAP", name, song)
				continue
			}
			entry, err := env.playlistEntry(song)
			if err != nil {
				return err
			}
			b.WriteString(entry)
			b.WriteString("\n")
			written++
		}

		if err := env.Playlists.WriteFile(file, []byte(b.String())); err != nil {
			return fmt.Errorf("write playlist %s: %w", name, err)
		}
		c.Logf("%s: %d songs", name, written)
	}

	existing, err := env.Playlists.Scan(ctx, "")
	if err != nil {
		return err
	}
	for _, f := range existing {
		if keep[f.Path] {
			continue
		}
		if err := env.Playlists.Remove(f.Path); err != nil {
			return err
		}
		c.Logf("removed stale playlist %s", f.Path)
	}

	c.Logf("playlist finished")
	return nil
}

// playlistEntry returns song's path relative to the playlist directory.
func (e *Env) playlistEntry(song string) (string, error) {
	full, err := e.DAP.Resolve(song)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(e.Playlists.Root, full)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
