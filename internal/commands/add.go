package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musync/internal/cui"
	"musync/internal/library"
	"musync/internal/store"
)

// Add registers songs already placed in the library and copies them to the DAP.
// Registered songs missing from the DAP are copied again.
type Add struct {
	Path string
}

func (Add) Kind() Kind { return KindAdd }

func (a Add) Label() string { return withPath("add", a.Path) }

func (Add) sealed() {}

func (a Add) Run(ctx context.Context, env *Env, c cui.Cui) error {
	if strings.TrimSpace(a.Path) == "" {
		return errors.New("path to add is empty")
	}
	prefix := library.Clean(a.Path)

	songs, err := env.Library.Scan(ctx, prefix)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return fmt.Errorf("no songs under %s", prefix)
	}
	c.Logf("adding %d songs under %s", len(songs), prefix)
	if env.DAP == nil {
		c.Logf("no DAP configured, songs are only registered")
	}

	var added, known int
	for _, song := range songs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := env.Store.Song(ctx, song.Path); err == nil {
			c.Logf("already registered: %s", song.Path)
			known++
			if env.DAP != nil && !env.DAP.Exists(song.Path) {
				if err := env.Library.CopyTo(env.DAP, song.Path); err != nil {
					return fmt.Errorf("copy %s to DAP: %w", song.Path, err)
				}
				c.Logf("copied missing DAP file: %s", song.Path)
			}
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hash, err := env.Library.Hash(song.Path)
		if err != nil {
			return err
		}
		if err := env.Store.Upsert(ctx, store.Song{Path: song.Path, Hash: hash, Size: song.Size}); err != nil {
			return err
		}
		if env.DAP != nil {
			if err := env.Library.CopyTo(env.DAP, song.Path); err != nil {
				return fmt.Errorf("copy %s to DAP: %w", song.Path, err)
			}
		}
		c.Logf("added %s", song.Path)
		added++
	}

	c.Logf("add finished: %d added, %d already registered", added, known)
	return nil
}
