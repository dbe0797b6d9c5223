package main

import (
	"fmt"
	"time"

	"github.com/osu-libsync/osu-libsync/internal/config"
	"github.com/osu-libsync/osu-libsync/internal/exporter"
	"github.com/osu-libsync/osu-libsync/internal/importer"
	"github.com/osu-libsync/osu-libsync/internal/lazerdb"
	"github.com/osu-libsync/osu-libsync/internal/syncengine"
)

// direction, strategy, selection, progress and resolver knobs shared by
// dry-run and sync.
type syncOptions struct {
	direction      string
	strategy       string
	fuzzyThreshold float64
	setIDs         []int32
	folders        []string
	progress       syncengine.ProgressFunc
	resolver       syncengine.ConflictResolver
}

// buildEngine opens the lazer database, resolves the config-driven
// direction/strategy/filter settings, and assembles a ready syncengine.Engine
// together with a closer for the opened resources.
func buildEngine(cc *CLIContext, opts syncOptions) (*syncengine.Engine, func(), error) {
	if err := config.ValidateForOperation(cc.Cfg); err != nil {
		return nil, nil, err
	}

	db, err := lazerdb.Open(cc.Cfg.Lazer.Root, cc.Logger)
	if err != nil {
		return nil, nil, err
	}

	closer := func() { db.Close() }

	criteria, err := buildCriteria(cc.Cfg.Filter)
	if err != nil {
		closer()

		return nil, nil, fmt.Errorf("filter config: %w", err)
	}

	direction := opts.direction
	if direction == "" {
		direction = cc.Cfg.Sync.Direction
	}

	strategyName := opts.strategy
	dedupeCfg := cc.Cfg.Dedupe
	if strategyName != "" {
		dedupeCfg.Strategy = strategyName
	}

	if opts.fuzzyThreshold > 0 {
		dedupeCfg.FuzzyThreshold = opts.fuzzyThreshold
	}

	strategy := buildStrategy(dedupeCfg)

	progressInterval, err := time.ParseDuration(cc.Cfg.Sync.ProgressInterval)
	if err != nil || progressInterval <= 0 {
		progressInterval = 50 * time.Millisecond
	}

	builder := syncengine.Builder{
		Filter:          criteria,
		Strategy:        strategy,
		SelectedSetIDs:  buildSetIDFilter(firstNonEmptyInt32(opts.setIDs, cc.Cfg.Sync.SelectedSetIDs)),
		SelectedFolders: buildFolderFilter(firstNonEmptyString(opts.folders, cc.Cfg.Sync.SelectedFolders)),
		ProgressEvery:   progressInterval,
		AssumedMBPerSec: cc.Cfg.Sync.AssumedMBPerSec,
		Progress:        opts.progress,
		Resolver:        opts.resolver,
		Logger:          cc.Logger,
	}

	switch direction {
	case "lazer_to_stable":
		builder.Direction = syncengine.LazerToStable
		builder.ScanSource = lazerScanFunc(db)
		builder.ScanDestination = stableScanFunc(cc, cc.Cfg.Stable.SongsRoot)
		builder.SourceReader = lazerFileSource{db: db}
		builder.Writer = importer.New(cc.Cfg.Stable.SongsRoot, 4, cc.Logger)
	default:
		builder.Direction = syncengine.StableToLazer
		builder.ScanSource = stableScanFunc(cc, cc.Cfg.Stable.SongsRoot)
		builder.ScanDestination = lazerScanFunc(db)
		builder.SourceReader = stableFileSource{songsRoot: cc.Cfg.Stable.SongsRoot}
		builder.Writer = exporter.New(cc.Cfg.Lazer.Root, nil, cc.Logger)
	}

	engine, err := builder.Build()
	if err != nil {
		closer()

		return nil, nil, err
	}

	return engine, closer, nil
}

func firstNonEmptyInt32(flagValue, configValue []int32) []int32 {
	if len(flagValue) > 0 {
		return flagValue
	}

	return configValue
}

func firstNonEmptyString(flagValue, configValue []string) []string {
	if len(flagValue) > 0 {
		return flagValue
	}

	return configValue
}
