// Package stable implements the osu!stable folder scanner (SPEC_FULL.md
// §6.3): it walks a Songs directory, treats each immediate subdirectory as
// one beatmap Set, parses every .osu file it contains, hashes every file
// that a difficulty references, and emits a []beatmap.Set.
//
// The walk/hash/cache structure is grounded on the teacher's
// internal/sync/scanner.go: a top-level Scan entry point, a per-entry
// classify-then-dispatch walk, and a mtime-gated hash fast path backed by a
// persistent cache. Unlike the teacher's single-threaded directory walk,
// each Set here is independent of every other, so sets are fanned out over
// a bounded worker pool with golang.org/x/sync/errgroup (spec.md §5's
// "parallelism is scoped per set").
package stable

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/osu-libsync/osu-libsync/internal/applog"
	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/hashcache"
	"github.com/osu-libsync/osu-libsync/pkg/blake3fs"
)

// TimingReport breaks down where a scan spent its time, mirroring
// original_source's ScanTiming (stable/scanner.rs) so a CLI can print the
// same kind of report the Rust tool did (SPEC_FULL.md §12).
type TimingReport struct {
	Total          time.Duration
	DirEnumeration time.Duration
	OsuParsing     time.Duration
	FileHashing    time.Duration
	DirsScanned    int
	OsuFilesParsed int
	FilesHashed    int
	BytesHashed    int64
	FromCache      bool
}

// Report renders a human-readable summary, in the spirit of the original
// tool's ScanTiming::report.
func (t TimingReport) Report() string {
	if t.FromCache {
		return fmt.Sprintf("scan completed in %s (cache-accelerated): %d dirs, %d beatmaps",
			t.Total.Round(time.Millisecond), t.DirsScanned, t.OsuFilesParsed)
	}

	mbHashed := float64(t.BytesHashed) / (1024 * 1024)
	speed := 0.0

	if t.FileHashing.Seconds() > 0 {
		speed = mbHashed / t.FileHashing.Seconds()
	}

	return fmt.Sprintf(
		"scan completed in %s: dir enum %s (%d dirs), osu parsing %s (%d files), hashing %s (%d files, %.1f MB, %.1f MB/s)",
		t.Total.Round(time.Millisecond), t.DirEnumeration.Round(time.Millisecond), t.DirsScanned,
		t.OsuParsing.Round(time.Millisecond), t.OsuFilesParsed,
		t.FileHashing.Round(time.Millisecond), t.FilesHashed, mbHashed, speed,
	)
}

// Progress reports scan advancement; Processed/Total count beatmap set
// folders, and LastFolder names the most recently completed one (spec.md
// §6's progress event shape).
type Progress struct {
	Processed  int
	Total      int
	LastFolder string
}

// ProgressFunc receives one Progress update per completed set. May be nil.
type ProgressFunc func(Progress)

// Options configures a Scan.
type Options struct {
	// Logger defaults to a discard logger when nil.
	Logger *slog.Logger
	// Cache is the persistent digest/parse cache. A nil Cache behaves as an
	// always-empty one (every file is freshly hashed and parsed).
	Cache *hashcache.Cache
	// Concurrency bounds how many sets are processed at once. Defaults to 4.
	Concurrency int
	// SkipHashing disables content hashing entirely, used by callers that
	// only need metadata (spec.md §6's "metadata-only scan" mode).
	SkipHashing bool
	// Progress, if non-nil, is called once per completed set; it is not
	// throttled.
	Progress ProgressFunc
}

// osuExt is the extension identifying a beatmap difficulty file.
const osuExt = ".osu"

// Scan walks songsRoot, treating each immediate child directory as one
// beatmap set, and returns every set it could parse along with a timing
// report. Scan never fails because of a single malformed set or file —
// only a failure to read songsRoot itself, or context cancellation, aborts
// the whole scan (spec.md §9).
func Scan(ctx context.Context, songsRoot string, opts Options) ([]beatmap.Set, TimingReport, error) {
	logger := applog.OrDiscard(opts.Logger)
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	start := time.Now()

	dirStart := time.Now()

	entries, err := os.ReadDir(songsRoot)
	if err != nil {
		return nil, TimingReport{}, fmt.Errorf("stable: reading songs root %q: %w", songsRoot, err)
	}

	var folders []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, e)
		}
	}

	dirEnum := time.Since(dirStart)

	total := len(folders)

	if !opts.SkipHashing && opts.Cache != nil {
		if sets, ok := loadCachedSetList(opts.Cache, total, logger); ok {
			_, beatmapsParsed := opts.Cache.Counts()

			return sets, TimingReport{
				Total:          time.Since(start),
				DirEnumeration: dirEnum,
				DirsScanned:    total,
				OsuFilesParsed: beatmapsParsed,
				FromCache:      true,
			}, nil
		}
	}

	results := make([]*beatmap.Set, total)

	var (
		osuParsingNS int64
		fileHashNS   int64
		osuFilesN    int64
		filesHashedN int64
		bytesHashedN int64
		tracker      progressTracker
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, entry := range folders {
		i, entry := i, entry

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			folderPath := filepath.Join(songsRoot, entry.Name())

			set, timing, err := scanSetFolder(songsRoot, folderPath, entry.Name(), opts)
			if err != nil {
				logger.Warn("stable: skipping unreadable set folder", "folder", entry.Name(), "error", err)

				return nil
			}

			if set == nil {
				return nil
			}

			results[i] = set

			atomicAdd(&osuParsingNS, timing.osuParsingNS)
			atomicAdd(&fileHashNS, timing.fileHashNS)
			atomicAddInt(&osuFilesN, timing.osuFiles)
			atomicAddInt(&filesHashedN, timing.filesHashed)
			atomicAddInt(&bytesHashedN, timing.bytesHashed)

			done := tracker.increment()
			if opts.Progress != nil {
				opts.Progress(Progress{Processed: done, Total: total, LastFolder: entry.Name()})
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, TimingReport{}, fmt.Errorf("stable: scan cancelled: %w", err)
	}

	sets := make([]beatmap.Set, 0, total)
	for _, s := range results {
		if s != nil {
			sets = append(sets, *s)
		}
	}

	sort.Slice(sets, func(i, j int) bool { return sets[i].FolderName < sets[j].FolderName })

	if opts.Cache != nil {
		opts.Cache.SetCounts(len(sets), int(osuFilesN))

		if !opts.SkipHashing {
			storeCachedSetList(opts.Cache, total, sets, logger)
		}
	}

	report := TimingReport{
		Total:          time.Since(start),
		DirEnumeration: dirEnum,
		OsuParsing:     time.Duration(osuParsingNS),
		FileHashing:    time.Duration(fileHashNS),
		DirsScanned:    total,
		OsuFilesParsed: int(osuFilesN),
		FilesHashed:    int(filesHashedN),
		BytesHashed:    bytesHashedN,
	}

	return sets, report, nil
}

// loadCachedSetList returns cache's stored set list if it is still valid for
// a scan that just enumerated dirCount top-level folders (spec.md §4.3 step
// 2). A decode failure is treated the same as "no cached set list" — it is
// logged and the caller falls through to a full scan, never surfaced as an
// error.
func loadCachedSetList(cache *hashcache.Cache, dirCount int, logger *slog.Logger) ([]beatmap.Set, bool) {
	blob, ok := cache.CachedSetList(dirCount)
	if !ok {
		return nil, false
	}

	var sets []beatmap.Set
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&sets); err != nil {
		logger.Warn("stable: cached set list unreadable, rescanning", "error", err)

		return nil, false
	}

	return sets, true
}

// storeCachedSetList persists sets as cache's set-level result cache, keyed
// on dirCount so the next scan can only reuse it if the folder count still
// matches (spec.md §4.3 step 2). Encoding failure is logged and discarded —
// the per-file digest/parsed maps are saved regardless (spec.md §4.2).
func storeCachedSetList(cache *hashcache.Cache, dirCount int, sets []beatmap.Set, logger *slog.Logger) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sets); err != nil {
		logger.Warn("stable: failed to encode set list for caching", "error", err)

		return
	}

	cache.PutSetList(dirCount, buf.Bytes())
}

// perSetTiming accumulates timing contributions from one set folder, summed
// into the aggregate TimingReport by the caller.
type perSetTiming struct {
	osuParsingNS int64
	fileHashNS   int64
	osuFiles     int64
	filesHashed  int64
	bytesHashed  int64
}

// scanSetFolder parses every .osu file directly inside folderPath and hashes
// every file any difficulty references. A folder with no .osu files at all
// is not a beatmap set and is skipped (returns nil, nil).
func scanSetFolder(
	songsRoot, folderPath, folderName string, opts Options,
) (*beatmap.Set, perSetTiming, error) {
	var timing perSetTiming

	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, timing, err
	}

	set := &beatmap.Set{FolderName: norm.NFC.String(folderName)}
	filesSeen := map[string]bool{}

	var sawOsu bool

	// Cancellation is checked per-set, at the start of Scan's per-goroutine
	// dispatch — never inside this loop. Once a set's processing begins it
	// runs to completion, per spec.md §5: "an in-flight set is not
	// preempted mid-hash."
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != osuExt {
			continue
		}

		sawOsu = true

		parseStart := time.Now()

		parsed, err := parseOsuCached(songsRoot, filepath.Join(folderPath, entry.Name()), opts.Cache)
		if err != nil {
			applog.OrDiscard(opts.Logger).Warn("stable: skipping unreadable .osu file",
				"path", filepath.Join(folderPath, entry.Name()), "error", err)

			continue
		}

		timing.osuParsingNS += int64(time.Since(parseStart))
		timing.osuFiles++

		applyMetadata(set, parsed)

		digFile, digTiming, err := hashReferenced(songsRoot, folderPath, entry.Name(), opts)
		if err != nil {
			return nil, timing, err
		}

		timing.fileHashNS += digTiming.fileHashNS
		timing.filesHashed += digTiming.filesHashed
		timing.bytesHashed += digTiming.bytesHashed

		diff := beatmap.Difficulty{
			Digest:    digFile.Digest,
			BeatmapID: parsed.BeatmapID,
			Mode:      parsed.Mode,
			Name:      parsed.Version,
			Params: &beatmap.DifficultyParams{
				HPDrainRate:       parsed.HPDrainRate,
				CircleSize:        parsed.CircleSize,
				OverallDifficulty: parsed.OverallDifficulty,
				ApproachRate:      parsed.ApproachRate,
				SliderMultiplier:  parsed.SliderMultiplier,
			},
		}

		addSetFile(set, filesSeen, entry.Name(), digFile)

		if parsed.AudioFilename != "" {
			audioRef, audTiming, err := hashReferenced(songsRoot, folderPath, parsed.AudioFilename, opts)
			if err == nil {
				diff.AudioFile = &audioRef
				addSetFile(set, filesSeen, parsed.AudioFilename, audioRef)
				timing.fileHashNS += audTiming.fileHashNS
				timing.filesHashed += audTiming.filesHashed
				timing.bytesHashed += audTiming.bytesHashed
			}
		}

		if parsed.BackgroundFile != "" {
			bgRef, bgTiming, err := hashReferenced(songsRoot, folderPath, parsed.BackgroundFile, opts)
			if err == nil {
				diff.Background = &bgRef
				addSetFile(set, filesSeen, parsed.BackgroundFile, bgRef)
				timing.fileHashNS += bgTiming.fileHashNS
				timing.filesHashed += bgTiming.filesHashed
				timing.bytesHashed += bgTiming.bytesHashed
			}
		}

		set.Difficulties = append(set.Difficulties, diff)
	}

	if !sawOsu {
		return nil, timing, nil
	}

	// With SkipHashing every digest is empty, so only the
	// at-least-one-difficulty half of Validate applies.
	if opts.SkipHashing {
		if len(set.Difficulties) == 0 {
			return nil, timing, beatmap.ErrEmptySet
		}

		return set, timing, nil
	}

	if err := set.Validate(); err != nil {
		return nil, timing, err
	}

	return set, timing, nil
}

func applyMetadata(set *beatmap.Set, parsed osuFile) {
	if set.Title == "" {
		set.Title = parsed.Title
	}

	if set.TitleUnicode == "" {
		set.TitleUnicode = parsed.TitleUnicode
	}

	if set.Artist == "" {
		set.Artist = parsed.Artist
	}

	if set.ArtistUnicode == "" {
		set.ArtistUnicode = parsed.ArtistUnicode
	}

	if set.Creator == "" {
		set.Creator = parsed.Creator
	}

	if set.Source == "" {
		set.Source = parsed.Source
	}

	if set.Tags == "" {
		set.Tags = parsed.Tags
	}

	if set.SetID == nil && parsed.BeatmapSetID != nil {
		set.SetID = parsed.BeatmapSetID
	}
}

func addSetFile(set *beatmap.Set, seen map[string]bool, name string, ref beatmap.FileReference) {
	normName := norm.NFC.String(name)
	if seen[normName] {
		return
	}

	seen[normName] = true
	set.Files = append(set.Files, ref)
}

// hashReferenced resolves relName inside folderPath, consulting and
// updating opts.Cache on the (songsRoot-relative path, mtime, size) key.
// It does not observe ctx: once a set has started, its files hash to
// completion regardless of cancellation (spec.md §5).
func hashReferenced(
	songsRoot, folderPath, relName string, opts Options,
) (beatmap.FileReference, perSetTiming, error) {
	var timing perSetTiming

	fullPath := filepath.Join(folderPath, relName)

	info, err := os.Stat(fullPath)
	if err != nil {
		return beatmap.FileReference{}, timing, err
	}

	cacheKey, relErr := filepath.Rel(songsRoot, fullPath)
	if relErr != nil {
		cacheKey = fullPath
	}

	if opts.SkipHashing {
		return beatmap.FileReference{Filename: relName, Size: info.Size()}, timing, nil
	}

	if opts.Cache != nil {
		if entry, ok := opts.Cache.GetDigest(cacheKey); ok && entry.Valid(info) {
			return beatmap.FileReference{Filename: relName, Digest: entry.Digest, Size: info.Size()}, timing, nil
		}
	}

	hashStart := time.Now()

	res, err := blake3fs.HashFile(fullPath)
	if err != nil {
		return beatmap.FileReference{}, timing, err
	}

	timing.fileHashNS = int64(time.Since(hashStart))
	timing.filesHashed = 1
	timing.bytesHashed = res.Size

	if opts.Cache != nil {
		opts.Cache.PutDigest(cacheKey, newDigestEntry(info, res.Digest))
	}

	return beatmap.FileReference{Filename: relName, Digest: res.Digest, Size: res.Size}, timing, nil
}
