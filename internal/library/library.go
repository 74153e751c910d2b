// Package library manages song files under a root directory: the local music
// library and the mounted player share this representation.
package library

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"

	"musync/internal/cache"
	"musync/internal/fileutil"
)

// DefaultPattern matches the audio formats the library manages.
const DefaultPattern = "**/*.{mp3,flac,m4a,ogg,wav}"

var (
	// ErrOutsideRoot is returned for relative paths that escape the root.
	ErrOutsideRoot = errors.New("path escapes library root")

	// ErrExists is returned when a move target is already taken.
	ErrExists = errors.New("destination already exists")
)

// Song is a file found by Scan.
type Song struct {
	Path string // slash-separated, relative to the root
	Size int64
}

// Dir is a directory tree of songs.
type Dir struct {
	Root     string
	Patterns []string

	// Hashes, when set, skips rehashing files whose size and mtime are unchanged.
	Hashes *cache.HashCache
}

// New returns a Dir rooted at root. Empty patterns fall back to DefaultPattern.
func New(root string, patterns ...string) *Dir {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	return &Dir{Root: root, Patterns: patterns}
}

// Clean normalizes a user-supplied relative path to slash form without
// leading or trailing separators. An empty result means the whole tree.
func Clean(rel string) string {
	rel = path.Clean(filepath.ToSlash(strings.TrimSpace(rel)))
	rel = strings.Trim(rel, "/")
	if rel == "." {
		return ""
	}
	return rel
}

// Resolve maps a relative song path to an OS path under Root.
func (d *Dir) Resolve(rel string) (string, error) {
	clean := Clean(rel)
	if clean == "" || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	return filepath.Join(d.Root, filepath.FromSlash(clean)), nil
}

// Scan lists songs matching the patterns, restricted to prefix when non-empty.
// Results are sorted by path.
func (d *Dir) Scan(ctx context.Context, prefix string) ([]Song, error) {
	prefix = Clean(prefix)
	fsys := os.DirFS(d.Root)
	seen := make(map[string]Song)

	for _, pattern := range d.Patterns {
		err := doublestar.GlobWalk(fsys, pattern, func(p string, entry fs.DirEntry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !underPrefix(p, prefix) {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				return err
			}
			seen[p] = Song{Path: p, Size: info.Size()}
			return nil
		}, doublestar.WithFilesOnly())
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("scan %s: %w", d.Root, err)
		}
	}

	songs := make([]Song, 0, len(seen))
	for _, s := range seen {
		songs = append(songs, s)
	}
	sort.Slice(songs, func(i, j int) bool { return songs[i].Path < songs[j].Path })
	return songs, nil
}

func underPrefix(p, prefix string) bool {
	return prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/")
}

// Exists reports whether rel is an existing regular file.
func (d *Dir) Exists(rel string) bool {
	full, err := d.Resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// Size returns rel's size in bytes.
func (d *Dir) Size(rel string) (int64, error) {
	full, err := d.Resolve(rel)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Hash returns the hex blake3 digest of rel's content.
func (d *Dir) Hash(rel string) (string, error) {
	full, err := d.Resolve(rel)
	if err != nil {
		return "", err
	}
	f, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var info fs.FileInfo
	if d.Hashes != nil {
		if info, err = f.Stat(); err != nil {
			return "", err
		}
		if sum, ok := d.Hashes.Get(full, info); ok {
			return sum, nil
		}
	}

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", rel, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if d.Hashes != nil {
		d.Hashes.Set(full, info, sum)
	}
	return sum, nil
}

// CopyTo copies rel from d to the same relative path in dst, replacing any
// existing file.
func (d *Dir) CopyTo(dst *Dir, rel string) error {
	src, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	target, err := dst.Resolve(rel)
	if err != nil {
		return err
	}
	return fileutil.CopyFile(src, target)
}

// WriteFile atomically writes data to rel, creating parent directories.
func (d *Dir) WriteFile(rel string, data []byte) error {
	full, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return fileutil.AtomicWrite(full, data, 0o644)
}

// Remove deletes rel and prunes parent directories left empty.
func (d *Dir) Remove(rel string) error {
	full, err := d.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return err
	}
	d.prune(filepath.Dir(full))
	return nil
}

// Move renames from to to within d, creating parents and pruning emptied ones.
func (d *Dir) Move(from, to string) error {
	src, err := d.Resolve(from)
	if err != nil {
		return err
	}
	dst, err := d.Resolve(to)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, Clean(to))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	d.prune(filepath.Dir(src))
	return nil
}

// prune removes empty directories from dir upwards, stopping at Root.
func (d *Dir) prune(dir string) {
	root := filepath.Clean(d.Root)
	for dir = filepath.Clean(dir); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}
