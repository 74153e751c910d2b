package reconcile

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"musync/internal/cui"
	"musync/internal/library"
	"musync/internal/logging"
	"musync/internal/store"
)

// Sources are the three places a song can live. DAP may be nil.
type Sources struct {
	PC  *library.Dir
	DAP *library.Dir
	DB  *store.Store
}

// CheckOptions configures Check.
type CheckOptions struct {
	// Prefix restricts the check to songs under this library path.
	Prefix string
	// IgnoreDAPContent compares DAP files by existence only.
	IgnoreDAPContent bool
}

// view is the in-memory picture Check works from. Actions keep it current so
// later phases see earlier fixes.
type view struct {
	pc     map[string]string // path -> hash
	pcSize map[string]int64
	db     map[string]string
	dap    map[string]string // "" when not hashed
}

// phase builds its items lazily so it sees the fixes of earlier phases.
type phase struct {
	title string
	items func() []Item
}

// Check finds discrepancies between PC, DB and DAP and resolves them
// interactively in three phases: PC↔DB existence, PC↔DB content, DAP↔PC.
// Aborting in any phase skips the remaining phases.
func Check(ctx context.Context, c cui.Cui, src Sources, opts CheckOptions) (Outcome, error) {
	prefix := library.Clean(opts.Prefix)
	if prefix == "" {
		c.Logf("checking the whole library")
	} else {
		c.Logf("checking %s", prefix)
	}

	v, err := load(ctx, src, prefix, !opts.IgnoreDAPContent)
	if err != nil {
		return Outcome{}, err
	}
	logging.Debug("check loaded", "pc", len(v.pc), "db", len(v.db), "dap", len(v.dap), "prefix", prefix)

	phases := []phase{
		{"PC/DB existence", func() []Item { return existenceItems(src, v) }},
		{"PC/DB content", func() []Item { return contentItems(src, v) }},
	}
	if src.DAP != nil {
		phases = append(phases, phase{"DAP/PC", func() []Item { return dapItems(src, v, opts.IgnoreDAPContent) }})
	} else {
		c.Logf("no DAP configured, skipping DAP check")
	}

	var total Outcome
	for _, ph := range phases {
		out, err := Resolve(ctx, c, ph.title, ph.items(), Options{})
		total.Add(out)
		if err != nil {
			return total, err
		}
		if out.Aborted {
			break
		}
	}
	c.Logf("check finished: %s", total)
	return total, nil
}

// load scans the three sources concurrently, then hashes what the phases compare.
func load(ctx context.Context, src Sources, prefix string, hashDAP bool) (*view, error) {
	var (
		pcSongs  []library.Song
		dapSongs []library.Song
		dbSongs  []store.Song
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pcSongs, err = src.PC.Scan(gctx, prefix)
		return err
	})
	if src.DAP != nil {
		g.Go(func() error {
			var err error
			dapSongs, err = src.DAP.Scan(gctx, prefix)
			return err
		})
	}
	g.Go(func() error {
		var err error
		dbSongs, err = src.DB.Songs(gctx, prefix)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}

	v := &view{
		pc:     make(map[string]string, len(pcSongs)),
		pcSize: make(map[string]int64, len(pcSongs)),
		db:     make(map[string]string, len(dbSongs)),
		dap:    make(map[string]string, len(dapSongs)),
	}
	pcPaths := make([]string, 0, len(pcSongs))
	for _, s := range pcSongs {
		v.pcSize[s.Path] = s.Size
		pcPaths = append(pcPaths, s.Path)
	}
	for _, s := range dbSongs {
		v.db[s.Path] = s.Hash
	}
	var dapPaths []string
	for _, s := range dapSongs {
		v.dap[s.Path] = ""
		_, onPC := v.pcSize[s.Path]
		_, inDB := v.db[s.Path]
		// DB-side hashes decide whether the DAP copy can restore the PC file.
		if inDB || (hashDAP && onPC) {
			dapPaths = append(dapPaths, s.Path)
		}
	}

	pcHashes, err := hashAll(ctx, src.PC, pcPaths)
	if err != nil {
		return nil, err
	}
	v.pc = pcHashes
	if src.DAP != nil {
		dapHashes, err := hashAll(ctx, src.DAP, dapPaths)
		if err != nil {
			return nil, err
		}
		for p, h := range dapHashes {
			v.dap[p] = h
		}
	}
	return v, nil
}

// hashAll hashes paths in parallel, bounded by the CPU count.
func hashAll(ctx context.Context, dir *library.Dir, paths []string) (map[string]string, error) {
	var mu sync.Mutex
	hashes := make(map[string]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := dir.Hash(p)
			if err != nil {
				return err
			}
			mu.Lock()
			hashes[p] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", dir.Root, err)
	}
	return hashes, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	if hash == "" {
		return "-"
	}
	return hash
}

func existenceItems(src Sources, v *view) []Item {
	var items []Item

	for _, p := range sortedKeys(v.pc) {
		if _, ok := v.db[p]; ok {
			continue
		}
		items = append(items, Item{
			Subject: p,
			Problem: "only on PC",
			Actions: []Action{
				{Choice: cui.ChoiceApplyA, Label: "register in DB", Apply: func(ctx context.Context) error {
					if err := src.DB.Upsert(ctx, store.Song{Path: p, Hash: v.pc[p], Size: v.pcSize[p]}); err != nil {
						return err
					}
					v.db[p] = v.pc[p]
					return nil
				}},
				{Choice: cui.ChoiceApplyB, Label: "delete PC file", Apply: func(ctx context.Context) error {
					if err := src.PC.Remove(p); err != nil {
						return err
					}
					delete(v.pc, p)
					delete(v.pcSize, p)
					return nil
				}},
			},
		})
	}

	for _, p := range sortedKeys(v.db) {
		if _, ok := v.pc[p]; ok {
			continue
		}
		actions := []Action{
			{Choice: cui.ChoiceApplyA, Label: "drop DB record", Apply: func(ctx context.Context) error {
				if err := src.DB.Delete(ctx, p); err != nil {
					return err
				}
				delete(v.db, p)
				return nil
			}},
		}
		if _, onDAP := v.dap[p]; onDAP {
			actions = append(actions, Action{Choice: cui.ChoiceApplyB, Label: "restore PC file from DAP", Apply: func(ctx context.Context) error {
				return restoreFromDAP(src, v, p)
			}})
		}
		items = append(items, Item{Subject: p, Problem: "only in DB", Actions: actions})
	}
	return items
}

func contentItems(src Sources, v *view) []Item {
	var items []Item
	for _, p := range sortedKeys(v.pc) {
		dbHash, ok := v.db[p]
		if !ok || dbHash == v.pc[p] {
			continue
		}
		actions := []Action{
			{Choice: cui.ChoiceApplyA, Label: "PC → DB (update hash)", Apply: func(ctx context.Context) error {
				if err := src.DB.Upsert(ctx, store.Song{Path: p, Hash: v.pc[p], Size: v.pcSize[p]}); err != nil {
					return err
				}
				v.db[p] = v.pc[p]
				return nil
			}},
		}
		if dapHash, onDAP := v.dap[p]; onDAP && dapHash == dbHash {
			actions = append(actions, Action{Choice: cui.ChoiceApplyB, Label: "DB → PC (restore from DAP)", Apply: func(ctx context.Context) error {
				return restoreFromDAP(src, v, p)
			}})
		}
		items = append(items, Item{
			Subject: p,
			Problem: "content differs",
			Details: []string{"PC: " + short(v.pc[p]), "DB: " + short(dbHash), "DAP: " + short(v.dap[p])},
			Actions: actions,
		})
	}
	return items
}

func dapItems(src Sources, v *view, ignoreContent bool) []Item {
	var items []Item
	for _, p := range sortedKeys(v.pc) {
		dapHash, onDAP := v.dap[p]
		problem := ""
		switch {
		case !onDAP:
			problem = "missing on DAP"
		case !ignoreContent && dapHash != v.pc[p]:
			problem = "DAP content differs"
		default:
			continue
		}
		items = append(items, Item{
			Subject: p,
			Problem: problem,
			Actions: []Action{{Choice: cui.ChoiceApplyA, Label: "copy PC → DAP", Apply: func(ctx context.Context) error {
				if err := src.PC.CopyTo(src.DAP, p); err != nil {
					return err
				}
				v.dap[p] = v.pc[p]
				return nil
			}}},
		})
	}
	for _, p := range sortedKeys(v.dap) {
		if _, onPC := v.pc[p]; onPC {
			continue
		}
		items = append(items, Item{
			Subject: p,
			Problem: "only on DAP",
			Actions: []Action{{Choice: cui.ChoiceApplyA, Label: "delete DAP file", Apply: func(ctx context.Context) error {
				if err := src.DAP.Remove(p); err != nil {
					return err
				}
				delete(v.dap, p)
				return nil
			}}},
		})
	}
	return items
}

func restoreFromDAP(src Sources, v *view, p string) error {
	if err := src.DAP.CopyTo(src.PC, p); err != nil {
		return err
	}
	h, err := src.PC.Hash(p)
	if err != nil {
		return err
	}
	size, err := src.PC.Size(p)
	if err != nil {
		return err
	}
	v.pc[p] = h
	v.pcSize[p] = size
	v.dap[p] = h
	return nil
}
