// Package hashcache implements the persistent scan cache described in
// SPEC_FULL.md §6.2: a versioned, gob-encoded side file mapping a stable
// installation's relative file paths to digests and parsed .osu metadata,
// keyed for O(1) reuse across scans by (mtime, size).
//
// The teacher keeps its equivalent state (a full item graph, not just a
// digest cache) in a SQLite database opened by internal/sync/state.go. This
// cache has a much narrower shape — two flat maps plus a small header, no
// relational queries — so it is serialized directly with encoding/gob
// instead of standing up a database for it (see DESIGN.md).
package hashcache

import (
	"bytes"
	"encoding/gob"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// CurrentVersion is the on-disk format version this code writes and reads.
// Load treats any other value as "absent" per spec.md §4.2.
const CurrentVersion uint32 = 1

// DigestEntry is one cached file digest, valid only while a fresh stat of
// RelPath returns the same MtimeSecs and Size (spec.md §3's validity rule —
// re-checked at point of use, never cached across a stat).
type DigestEntry struct {
	MtimeSecs int64
	Size      int64
	Digest    string
}

// Valid reports whether this entry still matches the file's current stat.
func (e DigestEntry) Valid(info os.FileInfo) bool {
	return e.Size == info.Size() && e.MtimeSecs == info.ModTime().Unix()
}

// ParsedEntry is one cached parsed-metadata result (spec.md §4.2's
// ParsedMetadataCache), valid under the same (mtime, size) rule. Record
// holds the gob-encoded parsed record in whatever shape the caller (the
// stable scanner) chose to parse a metadata file into; hashcache stores it
// opaquely so this package never needs to import the scanner's internal
// parse-result type.
type ParsedEntry struct {
	MtimeSecs int64
	Size      int64
	Record    []byte
}

// Valid reports whether this entry still matches the file's current stat.
func (e ParsedEntry) Valid(info os.FileInfo) bool {
	return e.Size == info.Size() && e.MtimeSecs == info.ModTime().Unix()
}

// document is the on-disk (and in-memory) representation persisted by Save
// and produced by Load.
type document struct {
	Version          uint32
	TotalSetsScanned int
	BeatmapsParsed   int
	Digests          map[string]DigestEntry
	Parsed           map[string]ParsedEntry
	// DirCount is the number of top-level set folders the scanner enumerated
	// the run that produced SetsBlob. HasSetList distinguishes "no set list
	// ever stored" from "stored a set list for zero directories" (spec.md
	// §4.2/§4.3: the set-level result cache is only reusable when a fresh
	// directory enumeration yields the same count).
	DirCount   int
	SetsBlob   []byte
	HasSetList bool
}

// Cache is a concurrency-safe, persistent mapping used by exactly one
// scanner instance at a time (spec.md §3 "ScanCache is exclusive to its
// scanner"). The coarse mutex matches the teacher's own comment that
// per-set lock contention during a scan is negligible.
type Cache struct {
	mu  sync.Mutex
	doc document
	// path is where Save persists; empty means in-memory only (tests).
	path string
	// pendingSetList is the set list loaded from disk by Load, consumed by
	// at most one CachedSetList call — mirroring original_source's
	// Scanner::cached_load, a field taken (Option::take) by the first scan
	// a freshly-loaded Scanner runs and never consulted again afterwards.
	// A Cache built by New never has one, so an in-process cache reused
	// across several Scan calls within the same run always rescans fully
	// rather than serving a now-stale set list (spec.md §4.2 P4).
	pendingSetList    []byte
	pendingDirCount   int
	hasPendingSetList bool
}

// New returns an empty Cache ready to accumulate entries during a scan.
func New() *Cache {
	return &Cache{doc: emptyDocument()}
}

func emptyDocument() document {
	return document{
		Version: CurrentVersion,
		Digests: make(map[string]DigestEntry),
		Parsed:  make(map[string]ParsedEntry),
	}
}

// Load reads the cache file at path. Per spec.md §4.2's load contract: a
// missing file, a corrupt file, or an older/newer version all produce an
// empty, usable Cache rather than an error — Load logs a rebuild notice and
// the caller proceeds with a full scan.
func Load(path string, logger *slog.Logger) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info("hashcache: no existing cache, starting fresh", "path", path)

		return &Cache{doc: emptyDocument(), path: path}
	}

	var doc document

	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		logger.Warn("hashcache: cache file corrupt, rebuilding", "path", path, "error", err)

		return &Cache{doc: emptyDocument(), path: path}
	}

	if doc.Version != CurrentVersion {
		logger.Info("hashcache: cache version mismatch, rebuilding",
			"path", path, "found_version", doc.Version, "current_version", CurrentVersion)

		return &Cache{doc: emptyDocument(), path: path}
	}

	if doc.Digests == nil {
		doc.Digests = make(map[string]DigestEntry)
	}

	if doc.Parsed == nil {
		doc.Parsed = make(map[string]ParsedEntry)
	}

	c := &Cache{doc: doc, path: path}

	if doc.HasSetList {
		c.pendingSetList = doc.SetsBlob
		c.pendingDirCount = doc.DirCount
		c.hasPendingSetList = true
	}

	return c
}

// GetDigest returns the cached digest entry for relPath, if present.
func (c *Cache) GetDigest(relPath string) (DigestEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.doc.Digests[relPath]

	return e, ok
}

// PutDigest stores (or replaces) the digest entry for relPath.
func (c *Cache) PutDigest(relPath string, entry DigestEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Digests[relPath] = entry
}

// GetParsed returns the cached parsed-metadata entry for relPath, if present.
func (c *Cache) GetParsed(relPath string) (ParsedEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.doc.Parsed[relPath]

	return e, ok
}

// PutParsed stores (or replaces) the parsed-metadata entry for relPath.
func (c *Cache) PutParsed(relPath string, entry ParsedEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Parsed[relPath] = entry
}

// SetCounts records the set-level summary counters persisted alongside the
// per-file maps.
func (c *Cache) SetCounts(totalSets, beatmapsParsed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.TotalSetsScanned = totalSets
	c.doc.BeatmapsParsed = beatmapsParsed
}

// Counts returns the currently recorded set-level summary counters.
func (c *Cache) Counts() (totalSets, beatmapsParsed int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.doc.TotalSetsScanned, c.doc.BeatmapsParsed
}

// CachedSetList returns the gob-encoded set list loaded from disk by Load,
// if it is usable for a scan that just enumerated dirCount top-level set
// folders (spec.md §4.3 step 2: "If the scan cache is valid (same dir count,
// version matches), return its stored set list"). It is consumed at most
// once per Cache — the first call always clears the pending set list,
// whether or not dirCount matched, so a Cache reused for several Scan calls
// within one process (as opposed to reloaded from disk between separate
// runs) never serves a stale set list on a later call (spec.md §4.2's P4
// invalidation-soundness invariant). The caller (internal/stable) owns
// decoding the blob, since hashcache does not import the beatmap package it
// describes.
func (c *Cache) CachedSetList(dirCount int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasPendingSetList {
		return nil, false
	}

	blob, storedDirCount := c.pendingSetList, c.pendingDirCount
	c.pendingSetList = nil
	c.hasPendingSetList = false

	if storedDirCount != dirCount {
		return nil, false
	}

	return blob, true
}

// PutSetList stores the gob-encoded set list produced by a full scan that
// enumerated dirCount top-level set folders, so the next scan can skip
// reprocessing entirely if the folder count still matches (spec.md §4.3).
// When dirCount later changes, the next PutSetList call simply overwrites
// this blob with the new count — the per-file Digests/Parsed maps are
// untouched either way, matching spec.md §4.2's "discard the set-level
// result cache but keep the per-file caches" rule.
func (c *Cache) PutSetList(dirCount int, blob []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.DirCount = dirCount
	c.doc.SetsBlob = blob
	c.doc.HasSetList = true
}

// Save persists the cache to its configured path using a write-to-temp,
// rename-into-place sequence, matching spec.md §5's "create-new-or-replace"
// contract for the on-disk side artifacts. Save is only ever called once, at
// the end of a successful scan (spec.md §4.2: "do not persist partial state
// mid-scan"). Any failure is logged and discarded, never surfaced as a
// scan-level error (spec.md §9 "Global mutable caches").
func (c *Cache) Save(logger *slog.Logger) {
	if c.path == "" {
		return
	}

	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(doc); err != nil {
		logger.Warn("hashcache: failed to encode cache, discarding", "error", err)

		return
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		logger.Warn("hashcache: failed to write cache, discarding", "path", tmp, "error", err)

		return
	}

	if err := os.Rename(tmp, c.path); err != nil {
		logger.Warn("hashcache: failed to rename cache into place, discarding", "error", err)

		return
	}

	logger.Debug("hashcache: saved", "path", c.path, "digests", len(doc.Digests), "parsed", len(doc.Parsed))
}

// PathFor returns the conventional cache file path for a stable songs root:
// "<songs_root>/../.osu-sync-stable-cache.bin" per spec.md §6, stored
// alongside (not inside) the installation root.
func PathFor(songsRoot string) string {
	return filepath.Join(filepath.Dir(songsRoot), ".osu-sync-stable-cache.bin")
}
