package hashcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osu-libsync/osu-libsync/internal/applog"
)

func TestCache_SaveThenLoad_RoundTripsEntries(t *testing.T) {
	l := applog.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.bin")

	c := &Cache{doc: emptyDocument(), path: path}
	c.PutDigest("Artist - Title/song.mp3", DigestEntry{MtimeSecs: 100, Size: 1234, Digest: "deadbeef"})
	c.PutParsed("Artist - Title/song.osu", ParsedEntry{MtimeSecs: 100, Size: 1234, Record: []byte("encoded-record")})
	c.SetCounts(1, 1)
	c.Save(l)

	reloaded := Load(path, l)

	entry, ok := reloaded.GetDigest("Artist - Title/song.mp3")
	require.True(t, ok)
	assert.Equal(t, "deadbeef", entry.Digest)

	parsedEntry, ok := reloaded.GetParsed("Artist - Title/song.osu")
	require.True(t, ok)
	assert.Equal(t, []byte("encoded-record"), parsedEntry.Record)

	totalSets, parsed := reloaded.Counts()
	assert.Equal(t, 1, totalSets)
	assert.Equal(t, 1, parsed)
}

func TestCache_SaveThenLoad_RoundTripsSetList(t *testing.T) {
	l := applog.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.bin")

	c := &Cache{doc: emptyDocument(), path: path}
	c.PutSetList(3, []byte("encoded-sets"))
	c.Save(l)

	reloaded := Load(path, l)

	blob, ok := reloaded.CachedSetList(3)
	require.True(t, ok)
	assert.Equal(t, []byte("encoded-sets"), blob)
}

func TestCache_CachedSetList_MissesWhenDirCountChanged(t *testing.T) {
	l := applog.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.bin")

	c := &Cache{doc: emptyDocument(), path: path}
	c.PutSetList(3, []byte("encoded-sets"))
	c.Save(l)

	reloaded := Load(path, l)

	_, ok := reloaded.CachedSetList(4)
	assert.False(t, ok)
}

func TestCache_CachedSetList_ConsumedOnlyOnce(t *testing.T) {
	l := applog.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.bin")

	c := &Cache{doc: emptyDocument(), path: path}
	c.PutSetList(3, []byte("encoded-sets"))
	c.Save(l)

	reloaded := Load(path, l)

	_, ok := reloaded.CachedSetList(3)
	require.True(t, ok)

	// A second call against the same in-process Cache must never serve the
	// set list again, even though dirCount still matches — otherwise a
	// long-lived Cache reused across several Scan calls in one run would
	// keep returning a now-stale set list (spec.md §4.2's P4 invariant).
	_, ok = reloaded.CachedSetList(3)
	assert.False(t, ok)
}

func TestCache_New_NeverServesACachedSetList(t *testing.T) {
	c := New()
	c.PutSetList(0, []byte("encoded-sets"))

	_, ok := c.CachedSetList(0)
	assert.False(t, ok)
}

func TestCache_Load_MissingFileReturnsEmptyCache(t *testing.T) {
	l := applog.Discard()
	path := filepath.Join(t.TempDir(), "does-not-exist.bin")

	c := Load(path, l)

	_, ok := c.GetDigest("anything")
	assert.False(t, ok)
}

func TestCache_Load_CorruptFileFallsBackToEmpty(t *testing.T) {
	l := applog.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	c := Load(path, l)

	_, ok := c.GetDigest("anything")
	assert.False(t, ok)
}

func TestCache_Load_VersionMismatchFallsBackToEmpty(t *testing.T) {
	l := applog.Discard()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.bin")

	stale := &Cache{doc: document{
		Version: CurrentVersion + 1,
		Digests: map[string]DigestEntry{"x": {Digest: "y"}},
		Parsed:  map[string]ParsedEntry{},
	}, path: path}
	stale.Save(l)

	c := Load(path, l)

	_, ok := c.GetDigest("x")
	assert.False(t, ok)
}

func TestDigestEntry_Valid_DetectsStatMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.mp3")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	fresh := DigestEntry{MtimeSecs: info.ModTime().Unix(), Size: info.Size(), Digest: "abc"}
	assert.True(t, fresh.Valid(info))

	stale := DigestEntry{MtimeSecs: info.ModTime().Unix() - 1, Size: info.Size(), Digest: "abc"}
	assert.False(t, stale.Valid(info))

	require.NoError(t, os.WriteFile(path, []byte("hello world, longer now"), 0o644))
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, fresh.Valid(info2))
}

func TestPathFor_SiblingOfSongsRoot(t *testing.T) {
	got := PathFor("/home/user/osu!/Songs")
	assert.Equal(t, "/home/user/osu!/.osu-sync-stable-cache.bin", got)
}
