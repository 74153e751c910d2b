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

// Move renames a song, or every song under a directory, in the library, on
// the DAP and in the DB.
type Move struct {
	From string
	To   string
}

func (Move) Kind() Kind { return KindMove }

func (m Move) Label() string {
	from, to := library.Clean(m.From), library.Clean(m.To)
	if from == "" && to == "" {
		return "move"
	}
	return fmt.Sprintf("move %s -> %s", from, to)
}

func (Move) sealed() {}

func (m Move) Run(ctx context.Context, env *Env, c cui.Cui) error {
	from, to := library.Clean(m.From), library.Clean(m.To)
	switch {
	case from == "":
		return errors.New("source path is empty")
	case to == "":
		return errors.New("destination path is empty")
	case from == to:
		return errors.New("source and destination are the same")
	case strings.HasPrefix(to, from+"/"):
		return fmt.Errorf("cannot move %s into itself", from)
	}

	songs, err := env.Store.Songs(ctx, from)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return fmt.Errorf("%s is not in the database", from)
	}

	// Every target is checked before anything is renamed, so a conflict
	// leaves the library, the DAP and the DB as they were.
	moves := make([][2]string, 0, len(songs))
	for _, song := range songs {
		dst := to + strings.TrimPrefix(song.Path, from)
		if err := checkTarget(ctx, env, song.Path, dst); err != nil {
			return err
		}
		moves = append(moves, [2]string{song.Path, dst})
	}

	for _, mv := range moves {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, dst := mv[0], mv[1]

		if env.Library.Exists(src) {
			if err := env.Library.Move(src, dst); err != nil {
				return err
			}
		} else {
			c.Errorf("%s is missing from the library", src)
		}
		if env.DAP != nil && env.DAP.Exists(src) {
			if err := env.DAP.Move(src, dst); err != nil {
				return fmt.Errorf("DAP: %w", err)
			}
		}
		if err := env.Store.Move(ctx, src, dst); err != nil {
			return err
		}
		c.Logf("moved %s -> %s", src, dst)
	}

	c.Logf("move finished: %d songs", len(songs))
	return nil
}

// checkTarget fails when dst is already taken in the DB, the library or on the DAP.
func checkTarget(ctx context.Context, env *Env, src, dst string) error {
	if _, err := env.Store.Song(ctx, dst); err == nil {
		return fmt.Errorf("cannot move %s: %s is already in the database", src, dst)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if env.Library.Exists(dst) {
		return fmt.Errorf("cannot move %s: %s already exists in the library", src, dst)
	}
	if env.DAP != nil && env.DAP.Exists(dst) {
		return fmt.Errorf("cannot move %s: %s already exists on the DAP", src, dst)
	}
	return nil
}
