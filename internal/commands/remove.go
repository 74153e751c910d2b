package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"musync/internal/cui"
	"musync/internal/library"
	"musync/internal/store"
)

// Remove deletes songs from the DB, the library and the DAP after confirmation.
type Remove struct {
	Path string
}

func (Remove) Kind() Kind { return KindRemove }

func (r Remove) Label() string { return withPath("remove", r.Path) }

func (Remove) sealed() {}

func (r Remove) Run(ctx context.Context, env *Env, c cui.Cui) error {
	if strings.TrimSpace(r.Path) == "" {
		return errors.New("path to remove is empty")
	}
	prefix := library.Clean(r.Path)

	targets, err := r.targets(ctx, env, prefix)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no songs under %s", prefix)
	}

	c.Logf("%d songs will be removed:", len(targets))
	for _, p := range targets {
		c.Logf("    %s", p)
	}
	ok, err := cui.Confirm(ctx, c, fmt.Sprintf("Remove %d songs from DB, PC and DAP?", len(targets)))
	if err != nil {
		return err
	}
	if !ok {
		c.Logf("remove cancelled")
		return nil
	}

	for _, p := range targets {
		if err := env.Store.Delete(ctx, p); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if env.Library.Exists(p) {
			if err := env.Library.Remove(p); err != nil {
				return err
			}
		}
		if env.DAP != nil && env.DAP.Exists(p) {
			if err := env.DAP.Remove(p); err != nil {
				return fmt.Errorf("DAP: %w", err)
			}
		}
		c.Logf("removed %s", p)
	}

	c.Logf("remove finished: %d songs", len(targets))
	return nil
}

// targets merges DB records and library files under prefix.
func (Remove) targets(ctx context.Context, env *Env, prefix string) ([]string, error) {
	set := make(map[string]struct{})

	songs, err := env.Store.Songs(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, s := range songs {
		set[s.Path] = struct{}{}
	}
	files, err := env.Library.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		set[f.Path] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
