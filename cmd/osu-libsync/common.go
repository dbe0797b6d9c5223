package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/config"
	"github.com/osu-libsync/osu-libsync/internal/dedupe"
	"github.com/osu-libsync/osu-libsync/internal/filterx"
	"github.com/osu-libsync/osu-libsync/internal/hashcache"
	"github.com/osu-libsync/osu-libsync/internal/lazerdb"
	"github.com/osu-libsync/osu-libsync/internal/stable"
	"github.com/osu-libsync/osu-libsync/internal/syncengine"
)

// buildCriteria translates the TOML-friendly config.FilterConfig into
// filterx.Criteria, the one place string-to-beatmap-type parsing happens.
func buildCriteria(fc config.FilterConfig) (filterx.Criteria, error) {
	criteria := filterx.Criteria{
		StarMin: fc.StarMin,
		StarMax: fc.StarMax,
		Artist:  fc.Artist,
		Mapper:  fc.Mapper,
		Query:   fc.Query,
	}

	for _, m := range fc.Modes {
		mode, err := parseMode(m)
		if err != nil {
			return filterx.Criteria{}, err
		}

		criteria.Modes = append(criteria.Modes, mode)
	}

	for _, s := range fc.Statuses {
		status, err := parseStatus(s)
		if err != nil {
			return filterx.Criteria{}, err
		}

		criteria.Statuses = append(criteria.Statuses, status)
	}

	return criteria, nil
}

func parseMode(s string) (beatmap.Mode, error) {
	switch strings.ToLower(s) {
	case "osu", "standard":
		return beatmap.ModeStandard, nil
	case "taiko":
		return beatmap.ModeTaiko, nil
	case "catch", "fruits":
		return beatmap.ModeCatch, nil
	case "mania":
		return beatmap.ModeMania, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

func parseStatus(s string) (beatmap.RankedStatus, error) {
	switch strings.ToLower(s) {
	case "graveyard":
		return beatmap.StatusGraveyard, nil
	case "pending", "wip":
		return beatmap.StatusPending, nil
	case "ranked":
		return beatmap.StatusRanked, nil
	case "approved":
		return beatmap.StatusApproved, nil
	case "qualified":
		return beatmap.StatusQualified, nil
	case "loved":
		return beatmap.StatusLoved, nil
	default:
		return 0, fmt.Errorf("unknown ranked status %q", s)
	}
}

// buildStrategy translates config.DedupeConfig into a dedupe.MatchStrategy.
func buildStrategy(dc config.DedupeConfig) dedupe.MatchStrategy {
	switch dc.Strategy {
	case "exact":
		return dedupe.ExactOnly
	case "id_or_digest":
		return dedupe.IDOrDigest
	case "fuzzy":
		threshold := dc.FuzzyThreshold
		if threshold <= 0 {
			threshold = dedupe.DefaultFuzzyThreshold
		}

		return dedupe.Fuzzy(threshold)
	case "composite", "":
		return dedupe.Composite
	default:
		return dedupe.Composite
	}
}

// buildSetIDFilter and buildFolderFilter turn the CLI's --set-ids/--folders
// flags (or the config file's equivalents) into the map[...]bool the engine
// expects.
func buildSetIDFilter(ids []int32) map[int32]bool {
	if len(ids) == 0 {
		return nil
	}

	out := make(map[int32]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}

	return out
}

func buildFolderFilter(folders []string) map[string]bool {
	if len(folders) == 0 {
		return nil
	}

	out := make(map[string]bool, len(folders))
	for _, f := range folders {
		out[f] = true
	}

	return out
}

// stableScanFunc wraps stable.Scan as a syncengine.ScanFunc, loading and
// saving the on-disk hash cache around the scan.
func stableScanFunc(cc *CLIContext, songsRoot string) syncengine.ScanFunc {
	return func(ctx context.Context) ([]beatmap.Set, error) {
		cache := hashcache.Load(hashcache.PathFor(songsRoot), cc.Logger)

		sets, report, err := stable.Scan(ctx, songsRoot, stable.Options{
			Logger: cc.Logger,
			Cache:  cache,
		})
		if err != nil {
			return nil, err
		}

		cache.SetCounts(len(sets), report.OsuFilesParsed)
		cache.Save(cc.Logger)

		cc.Logger.Info("stable scan complete", "sets", len(sets), "timing", report.Report())

		return sets, nil
	}
}

// stableFileSource reads a file straight off disk, relative to the set's
// folder under songsRoot, implementing syncengine.FileSource for the stable
// side of a sync.
type stableFileSource struct {
	songsRoot string
}

func (s stableFileSource) ReadFile(set beatmap.Set, ref beatmap.FileReference) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.songsRoot, set.FolderName, ref.Filename))
}

// lazerScanFunc wraps an open lazerdb.DB's ListSets as a syncengine.ScanFunc.
func lazerScanFunc(db *lazerdb.DB) syncengine.ScanFunc {
	return func(ctx context.Context) ([]beatmap.Set, error) {
		return db.ListSets(ctx)
	}
}

// lazerFileSource reads a file from the lazer content-addressed store by
// digest, implementing syncengine.FileSource for the lazer side of a sync.
type lazerFileSource struct {
	db *lazerdb.DB
}

func (s lazerFileSource) ReadFile(_ beatmap.Set, ref beatmap.FileReference) ([]byte, error) {
	return s.db.ReadFile(ref.Digest)
}
