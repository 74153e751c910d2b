package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musync/internal/cache"
)

func writeSongs(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func paths(songs []Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.Path
	}
	return out
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeSongs(t, root, map[string]string{
		"Artist/Album/01.flac":   "one",
		"Artist/Album/02.mp3":    "two",
		"Artist/Album/cover.jpg": "img",
		"Other/track.ogg":        "three",
		"notes.txt":              "skip",
	})
	d := New(root)

	songs, err := d.Scan(context.Background(), "")
	require.NoError(t, err)
	want := []string{"Artist/Album/01.flac", "Artist/Album/02.mp3", "Other/track.ogg"}
	if diff := cmp.Diff(want, paths(songs)); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(3), songs[0].Size)

	songs, err = d.Scan(context.Background(), "/Artist/")
	require.NoError(t, err)
	assert.Equal(t, []string{"Artist/Album/01.flac", "Artist/Album/02.mp3"}, paths(songs))

	songs, err = d.Scan(context.Background(), "Art")
	require.NoError(t, err)
	assert.Empty(t, songs, "prefix matches whole path segments only")
}

func TestScan_OverlappingPatternsDeduplicate(t *testing.T) {
	root := t.TempDir()
	writeSongs(t, root, map[string]string{"a/b.flac": "x"})

	songs, err := New(root, "**/*.flac", "a/*").Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b.flac"}, paths(songs))
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeSongs(t, root, map[string]string{"a.mp3": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(root).Scan(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve(t *testing.T) {
	d := New("/music")

	got, err := d.Resolve("Artist/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/music", "Artist", "song.mp3"), got)

	for _, bad := range []string{"", ".", "..", "../etc/passwd", "a/../../b"} {
		_, err := d.Resolve(bad)
		assert.ErrorIs(t, err, ErrOutsideRoot, "input %q", bad)
	}
}

func TestHash(t *testing.T) {
	root := t.TempDir()
	writeSongs(t, root, map[string]string{"a.mp3": "same", "b.mp3": "same", "c.mp3": "different"})
	d := New(root)

	a, err := d.Hash("a.mp3")
	require.NoError(t, err)
	b, err := d.Hash("b.mp3")
	require.NoError(t, err)
	c, err := d.Hash("c.mp3")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = d.Hash("missing.mp3")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHash_Cached(t *testing.T) {
	root := t.TempDir()
	writeSongs(t, root, map[string]string{"a.mp3": "aaaa"})
	d := New(root)
	d.Hashes = cache.NewHashCache(10)

	first, err := d.Hash("a.mp3")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Hashes.Len())

	// Same size and mtime: the cached digest is trusted.
	full := filepath.Join(root, "a.mp3")
	info, err := os.Stat(full)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(full, []byte("bbbb"), 0o644))
	require.NoError(t, os.Chtimes(full, info.ModTime(), info.ModTime()))
	cached, err := d.Hash("a.mp3")
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	later := info.ModTime().Add(time.Minute)
	require.NoError(t, os.Chtimes(full, later, later))
	fresh, err := d.Hash("a.mp3")
	require.NoError(t, err)
	assert.NotEqual(t, first, fresh)
}

func TestCopyTo(t *testing.T) {
	pc, dap := New(t.TempDir()), New(t.TempDir())
	writeSongs(t, pc.Root, map[string]string{"x/y.flac": "audio"})
	writeSongs(t, dap.Root, map[string]string{"x/y.flac": "stale"})

	require.NoError(t, pc.CopyTo(dap, "x/y.flac"))

	want, _ := pc.Hash("x/y.flac")
	got, _ := dap.Hash("x/y.flac")
	assert.Equal(t, want, got)
}

func TestRemove_PrunesEmptyParents(t *testing.T) {
	d := New(t.TempDir())
	writeSongs(t, d.Root, map[string]string{
		"a/b/c.mp3":  "x",
		"a/keep.mp3": "y",
	})

	require.NoError(t, d.Remove("a/b/c.mp3"))
	assert.NoDirExists(t, filepath.Join(d.Root, "a", "b"))
	assert.DirExists(t, filepath.Join(d.Root, "a"))

	require.NoError(t, d.Remove("a/keep.mp3"))
	assert.NoDirExists(t, filepath.Join(d.Root, "a"))
	assert.DirExists(t, d.Root)
}

func TestMove(t *testing.T) {
	d := New(t.TempDir())
	writeSongs(t, d.Root, map[string]string{"old/song.mp3": "x", "taken.mp3": "y"})

	require.NoError(t, d.Move("old/song.mp3", "new/dir/song.mp3"))
	assert.True(t, d.Exists("new/dir/song.mp3"))
	assert.False(t, d.Exists("old/song.mp3"))
	assert.NoDirExists(t, filepath.Join(d.Root, "old"))

	err := d.Move("new/dir/song.mp3", "taken.mp3")
	assert.ErrorIs(t, err, ErrExists)
}

func TestWriteFile(t *testing.T) {
	d := New(t.TempDir(), "*.m3u8")
	require.NoError(t, d.WriteFile("rock.m3u8", []byte("a.mp3\n")))

	songs, err := d.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"rock.m3u8"}, paths(songs))
}
