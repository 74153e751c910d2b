package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musync/internal/cui"
	"musync/internal/cui/cuitest"
	"musync/internal/library"
	"musync/internal/store"
)

type fixture struct {
	src Sources
}

func newFixture(t *testing.T, withDAP bool) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "musync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{src: Sources{PC: library.New(t.TempDir()), DB: db}}
	if withDAP {
		f.src.DAP = library.New(t.TempDir())
	}
	return f
}

func write(t *testing.T, d *library.Dir, rel, content string) {
	t.Helper()
	full := filepath.Join(d.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// synced puts rel with content on PC, DAP and in the DB.
func (f *fixture) synced(t *testing.T, rel, content string) {
	t.Helper()
	write(t, f.src.PC, rel, content)
	if f.src.DAP != nil {
		write(t, f.src.DAP, rel, content)
	}
	h, err := f.src.PC.Hash(rel)
	require.NoError(t, err)
	require.NoError(t, f.src.DB.Upsert(context.Background(), store.Song{Path: rel, Hash: h, Size: int64(len(content))}))
}

func TestCheck_InSync(t *testing.T) {
	f := newFixture(t, true)
	f.synced(t, "a/one.mp3", "1")
	f.synced(t, "a/two.mp3", "2")

	c := cuitest.New()
	out, err := Check(context.Background(), c, f.src, CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, c.Prompts())
}

func TestCheck_OnlyOnPC_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	write(t, f.src.PC, "new.flac", "fresh")

	c := cuitest.New(cui.ChoiceApplyA)
	out, err := Check(ctx, c, f.src, CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Applied)

	want, _ := f.src.PC.Hash("new.flac")
	got, err := f.src.DB.Song(ctx, "new.flac")
	require.NoError(t, err)
	assert.Equal(t, want, got.Hash)
	assert.Equal(t, int64(5), got.Size)
	assert.Equal(t, []rune{'1', '2', '0', '-'}, c.Prompts()[0].Allowed)
}

func TestCheck_OnlyInDB_RestoreOfferedOnlyWithDAPCopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.synced(t, "kept.mp3", "audio")
	f.synced(t, "gone.mp3", "lost")
	require.NoError(t, os.Remove(filepath.Join(f.src.PC.Root, "kept.mp3")))
	require.NoError(t, os.Remove(filepath.Join(f.src.PC.Root, "gone.mp3")))
	require.NoError(t, os.Remove(filepath.Join(f.src.DAP.Root, "gone.mp3")))

	// gone.mp3: drop the record. kept.mp3: restore from DAP.
	c := cuitest.New(cui.ChoiceApplyA, cui.ChoiceApplyB)
	out, err := Check(ctx, c, f.src, CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Total: 2, Applied: 2}, out)

	prompts := c.Prompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, []rune{'1', '0', '-'}, prompts[0].Allowed, "no DAP copy of gone.mp3")
	assert.Equal(t, []rune{'1', '2', '0', '-'}, prompts[1].Allowed)

	_, err = f.src.DB.Song(ctx, "gone.mp3")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, f.src.PC.Exists("kept.mp3"))
}

func TestCheck_ContentDiffers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.synced(t, "a.mp3", "original")
	f.synced(t, "b.mp3", "original-b")
	write(t, f.src.PC, "a.mp3", "corrupted")
	write(t, f.src.PC, "b.mp3", "re-tagged")
	write(t, f.src.DAP, "b.mp3", "re-tagged")

	// a.mp3: DB → PC from the DAP copy. b.mp3: PC → DB.
	c := cuitest.New(cui.ChoiceApplyB, cui.ChoiceApplyA)
	out, err := Check(ctx, c, f.src, CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Applied)
	assert.Zero(t, c.Remaining())

	prompts := c.Prompts()
	require.Len(t, prompts, 2, "DAP phase finds nothing once content is fixed")
	assert.Equal(t, []rune{'1', '2', '0', '-'}, prompts[0].Allowed)
	assert.Equal(t, []rune{'1', '0', '-'}, prompts[1].Allowed, "DAP copy of b.mp3 does not match the DB")

	data, err := os.ReadFile(filepath.Join(f.src.PC.Root, "a.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	pcHash, _ := f.src.PC.Hash("b.mp3")
	song, err := f.src.DB.Song(ctx, "b.mp3")
	require.NoError(t, err)
	assert.Equal(t, pcHash, song.Hash)
}

func TestCheck_DAPPhase(t *testing.T) {
	f := newFixture(t, true)
	f.synced(t, "same.mp3", "s")
	f.synced(t, "stale.mp3", "new")
	write(t, f.src.DAP, "stale.mp3", "old")
	f.synced(t, "missing.mp3", "m")
	require.NoError(t, os.Remove(filepath.Join(f.src.DAP.Root, "missing.mp3")))
	write(t, f.src.DAP, "extra/orphan.mp3", "o")

	c := cuitest.New(cui.ChoiceApplyA, cui.ChoiceApplyA, cui.ChoiceApplyA)
	out, err := Check(context.Background(), c, f.src, CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Total: 3, Applied: 3}, out)

	assert.True(t, f.src.DAP.Exists("missing.mp3"))
	assert.False(t, f.src.DAP.Exists("extra/orphan.mp3"))
	want, _ := f.src.PC.Hash("stale.mp3")
	got, _ := f.src.DAP.Hash("stale.mp3")
	assert.Equal(t, want, got)

	var prompts []string
	for _, p := range c.Prompts() {
		prompts = append(prompts, p.Text)
	}
	assert.Equal(t, []string{
		"missing on DAP: missing.mp3 (1: copy PC → DAP)",
		"DAP content differs: stale.mp3 (1: copy PC → DAP)",
		"only on DAP: extra/orphan.mp3 (1: delete DAP file)",
	}, prompts)
}

func TestCheck_IgnoreDAPContent(t *testing.T) {
	f := newFixture(t, true)
	f.synced(t, "stale.mp3", "new")
	write(t, f.src.DAP, "stale.mp3", "old")

	c := cuitest.New()
	out, err := Check(context.Background(), c, f.src, CheckOptions{IgnoreDAPContent: true})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
}

func TestCheck_Prefix(t *testing.T) {
	f := newFixture(t, false)
	write(t, f.src.PC, "Rock/a.mp3", "a")
	write(t, f.src.PC, "Jazz/b.mp3", "b")

	c := cuitest.New(cui.ChoiceSkip)
	out, err := Check(context.Background(), c, f.src, CheckOptions{Prefix: "Rock"})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Total: 1, Skipped: 1}, out)
	assert.Equal(t, "only on PC: Rock/a.mp3 (1: register in DB, 2: delete PC file)", c.Prompts()[0].Text)
}

func TestCheck_AbortSkipsLaterPhases(t *testing.T) {
	f := newFixture(t, true)
	write(t, f.src.PC, "a.mp3", "a")
	write(t, f.src.PC, "b.mp3", "b")
	write(t, f.src.DAP, "orphan.mp3", "o")

	c := cuitest.New(cui.ChoiceApplyA, cui.ChoiceAbort)
	out, err := Check(context.Background(), c, f.src, CheckOptions{})
	require.NoError(t, err)
	assert.True(t, out.Aborted)
	assert.Equal(t, 1, out.Applied)
	assert.Len(t, c.Prompts(), 2)
	assert.True(t, f.src.DAP.Exists("orphan.mp3"))
}
