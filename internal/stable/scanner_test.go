package stable

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osu-libsync/osu-libsync/internal/applog"
	"github.com/osu-libsync/osu-libsync/internal/hashcache"
)

const sampleOsu = `osu file format v14

[General]
AudioFilename: audio.mp3
Mode: 0

[Metadata]
Title:Sample Title
TitleUnicode:Sample Title
Artist:Sample Artist
ArtistUnicode:Sample Artist
Creator:Mapper
Source:
Tags:tag1 tag2
BeatmapID:123
BeatmapSetID:456
Version:Normal

[Difficulty]
HPDrainRate:5
CircleSize:4
OverallDifficulty:6
ApproachRate:7
SliderMultiplier:1.4

[Events]
//Background and Video events
0,0,"bg.jpg",0,0
`

func writeSet(t *testing.T, root, folder string) string {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Normal.osu"), []byte(sampleOsu), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audio.mp3"), []byte("fake-audio-bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bg.jpg"), []byte("fake-image-bytes"), 0o644))

	return dir
}

func TestScan_ParsesSingleSet(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "456 Sample Artist - Sample Title")

	sets, timing, err := Scan(context.Background(), root, Options{Logger: applog.Discard()})
	require.NoError(t, err)
	require.Len(t, sets, 1)

	s := sets[0]
	require.Len(t, s.Difficulties, 1)
	assert.Equal(t, "Sample Artist", s.Artist)
	assert.Equal(t, "Mapper", s.Creator)
	require.NotNil(t, s.SetID)
	assert.EqualValues(t, 456, *s.SetID)
	require.NotNil(t, s.Difficulties[0].BeatmapID)
	assert.EqualValues(t, 123, *s.Difficulties[0].BeatmapID)
	assert.NotEmpty(t, s.Difficulties[0].Digest)
	require.NotNil(t, s.Difficulties[0].AudioFile)
	assert.Equal(t, "audio.mp3", s.Difficulties[0].AudioFile.Filename)
	require.NotNil(t, s.Difficulties[0].Background)
	assert.Equal(t, "bg.jpg", s.Difficulties[0].Background.Filename)
	assert.Equal(t, 1, timing.DirsScanned)
	assert.Equal(t, 1, timing.OsuFilesParsed)
}

func TestScan_FolderWithoutOsuFilesIsSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-set"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "not-a-set", "readme.txt"), []byte("hi"), 0o644))

	sets, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard()})
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestScan_EveryDifficultyHasNonEmptyDigest(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "1 A - B")
	writeSet(t, root, "2 C - D")

	sets, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard()})
	require.NoError(t, err)

	for _, s := range sets {
		require.NoError(t, s.Validate())

		for _, d := range s.Difficulties {
			assert.NotEmpty(t, d.Digest)
		}
	}
}

func TestScan_ReproducibleAcrossRuns(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "1 A - B")

	first, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard()})
	require.NoError(t, err)

	second, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard()})
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Difficulties[0].Digest, second[0].Difficulties[0].Digest)
}

func TestScan_UsesCacheToAvoidRehash(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "1 A - B")

	cache := hashcache.New()

	sets1, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache})
	require.NoError(t, err)
	require.Len(t, sets1, 1)

	sets2, timing2, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache})
	require.NoError(t, err)
	require.Len(t, sets2, 1)

	assert.Equal(t, sets1[0].Difficulties[0].Digest, sets2[0].Difficulties[0].Digest)
	assert.Zero(t, timing2.FilesHashed)
}

// TestScan_ReloadedCacheShortCircuitsWhenDirCountMatches exercises spec.md
// §4.3 step 2: a scan whose persisted cache was loaded from disk with the
// same top-level folder count returns the stored set list directly,
// without reprocessing a single folder — simulating two separate process
// runs against the same installation via separate Load/Save round trips
// rather than reusing one in-process Cache (see
// TestScan_ParsedMetadataCacheIsInvalidationSound for why that distinction
// matters).
func TestScan_ReloadedCacheShortCircuitsWhenDirCountMatches(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "1 A - B")
	writeSet(t, root, "2 C - D")

	cachePath := filepath.Join(t.TempDir(), "cache.bin")

	cache1 := hashcache.Load(cachePath, applog.Discard())
	sets1, timing1, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache1})
	require.NoError(t, err)
	require.Len(t, sets1, 2)
	assert.False(t, timing1.FromCache)
	cache1.Save(applog.Discard())

	// Removing a referenced file would make a real rescan fail to hash it;
	// the short-circuited scan below must never touch the filesystem past
	// directory enumeration, so this has no effect on its result.
	require.NoError(t, os.Remove(filepath.Join(root, "1 A - B", "audio.mp3")))

	cache2 := hashcache.Load(cachePath, applog.Discard())
	sets2, timing2, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache2})
	require.NoError(t, err)
	require.True(t, timing2.FromCache)
	require.Len(t, sets2, 2)
	assert.Equal(t, sets1[0].Difficulties[0].Digest, sets2[0].Difficulties[0].Digest)
	assert.Equal(t, sets1[1].Difficulties[0].Digest, sets2[1].Difficulties[0].Digest)
}

// TestScan_ReloadedCacheRescansWhenDirCountChanged covers spec.md §4.2's
// complementary rule: when the folder count no longer matches, the stored
// set list is discarded and a fresh scan runs (while the per-file digest
// cache still accelerates it — TestScan_UsesCacheToAvoidRehash covers that
// half separately).
func TestScan_ReloadedCacheRescansWhenDirCountChanged(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "1 A - B")

	cachePath := filepath.Join(t.TempDir(), "cache.bin")

	cache1 := hashcache.Load(cachePath, applog.Discard())
	_, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache1})
	require.NoError(t, err)
	cache1.Save(applog.Discard())

	writeSet(t, root, "2 C - D")

	cache2 := hashcache.Load(cachePath, applog.Discard())
	sets2, timing2, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache2})
	require.NoError(t, err)
	assert.False(t, timing2.FromCache)
	require.Len(t, sets2, 2)
}

func TestScan_ParsedMetadataCacheIsInvalidationSound(t *testing.T) {
	root := t.TempDir()
	dir := writeSet(t, root, "1 A - B")

	cache := hashcache.New()

	sets1, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache})
	require.NoError(t, err)
	require.Len(t, sets1, 1)
	assert.Equal(t, "Sample Title", sets1[0].Title)

	// Reusing the same cache should return identical metadata when the file
	// is untouched (the cached parse, not a fresh one).
	sets2, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, "Sample Title", sets2[0].Title)

	edited := strings.Replace(sampleOsu, "Title:Sample Title", "Title:Edited Title", 1)
	osuPath := filepath.Join(dir, "Normal.osu")
	require.NoError(t, os.WriteFile(osuPath, []byte(edited), 0o644))

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(osuPath, future, future))

	sets3, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard(), Cache: cache})
	require.NoError(t, err)
	require.Len(t, sets3, 1)
	assert.Equal(t, "Edited Title", sets3[0].Title)
}

func TestScan_ContextCancellationAborts(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeSet(t, root, string(rune('a'+i))+" set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Scan(ctx, root, Options{Logger: applog.Discard(), Concurrency: 1})
	assert.Error(t, err)
}

func TestScan_MalformedSetDoesNotAbortWholeScan(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "1 good set")

	brokenDir := filepath.Join(root, "2 broken set")
	require.NoError(t, os.MkdirAll(brokenDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(brokenDir, "broken.osu"), []byte(sampleOsu), 0o644))
	// audio.mp3/bg.jpg are deliberately missing; hashing them should fail but
	// the difficulty itself still survives with digest from the .osu body.

	sets, _, err := Scan(context.Background(), root, Options{Logger: applog.Discard()})
	require.NoError(t, err)
	assert.Len(t, sets, 2)
}

func TestScan_ProgressReportsEveryFolder(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "1 A - B")
	writeSet(t, root, "2 C - D")
	writeSet(t, root, "3 E - F")

	var updates []Progress

	_, _, err := Scan(context.Background(), root, Options{
		Logger:      applog.Discard(),
		Concurrency: 1,
		Progress:    func(p Progress) { updates = append(updates, p) },
	})
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.Equal(t, 3, updates[2].Processed)
	assert.Equal(t, 3, updates[2].Total)
}

func TestTimingReport_ReportDoesNotPanic(t *testing.T) {
	r := TimingReport{FromCache: true, DirsScanned: 2, OsuFilesParsed: 3}
	assert.Contains(t, r.Report(), "cache-accelerated")

	r2 := TimingReport{}
	assert.Contains(t, r2.Report(), "scan completed")
}
