package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/osu-libsync/osu-libsync/internal/applog"
	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/dedupe"
	"github.com/osu-libsync/osu-libsync/internal/filterx"
	"github.com/osu-libsync/osu-libsync/internal/syncerr"
)

// Direction selects which installation is the source of truth for one run.
type Direction int

// Directions.
const (
	StableToLazer Direction = iota
	LazerToStable
)

func (d Direction) String() string {
	if d == LazerToStable {
		return "lazer-to-stable"
	}

	return "stable-to-lazer"
}

// FileSource reads the bytes of one file belonging to a scanned Set. Stable
// and lazer each get their own implementation (reading from a folder on
// disk, or from the lazer content-addressed store by digest).
type FileSource interface {
	ReadFile(set beatmap.Set, ref beatmap.FileReference) ([]byte, error)
}

// SetWriter persists one Set to a destination installation. internal/importer
// (stable destination) and internal/exporter (lazer destination) both
// implement this so the engine never needs to know which side it is
// writing to.
type SetWriter interface {
	WriteSet(ctx context.Context, set beatmap.Set, source FileSource) error
}

// ScanFunc produces the current set list for one installation. Builder
// wires the real stable.Scan / lazerdb.DB.ListSets implementations;
// tests substitute fakes.
type ScanFunc func(ctx context.Context) ([]beatmap.Set, error)

// Builder assembles an Engine. Every field has a sensible zero value except
// ScanSource, ScanDestination, SourceReader, and Writer, which are
// required — Build returns a ConfigError naming the first missing one.
type Builder struct {
	Direction       Direction
	ScanSource      ScanFunc
	ScanDestination ScanFunc
	SourceReader    FileSource
	Writer          SetWriter
	Filter          filterx.Criteria
	Strategy        dedupe.MatchStrategy
	Resolver        ConflictResolver
	SelectedSetIDs  map[int32]bool
	SelectedFolders map[string]bool
	Concurrency     int
	ProgressEvery   time.Duration
	AssumedMBPerSec float64
	Progress        ProgressFunc
	Logger          *slog.Logger
}

// Build validates the builder and returns a ready Engine.
func (b Builder) Build() (*Engine, error) {
	if b.ScanSource == nil {
		return nil, syncerr.NewConfigError("syncengine: ScanSource is required")
	}

	if b.ScanDestination == nil {
		return nil, syncerr.NewConfigError("syncengine: ScanDestination is required")
	}

	if b.SourceReader == nil {
		return nil, syncerr.NewConfigError("syncengine: SourceReader is required")
	}

	if b.Writer == nil {
		return nil, syncerr.NewConfigError("syncengine: Writer is required")
	}

	if b.Resolver == nil {
		b.Resolver = AutoSkip{}
	}

	if b.Concurrency <= 0 {
		b.Concurrency = 4
	}

	if b.AssumedMBPerSec <= 0 {
		b.AssumedMBPerSec = 40.0
	}

	return &Engine{builder: b, logger: applog.OrDiscard(b.Logger), sm: newStateMachine()}, nil
}

// Engine runs one sync or dry-run pass. An Engine is single-use: build a
// new one (or call Build again) per invocation, matching the teacher's
// one-shot session semantics rather than a long-lived reusable object.
type Engine struct {
	builder Builder
	logger  *slog.Logger
	sm      *stateMachine
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.sm.get() }

// scanBoth runs both installation scans concurrently and returns the
// source-side and destination-side set lists. If ctx is already cancelled,
// or becomes cancelled while scanning, that is reported via the cancelled
// return rather than err — cancellation is not a failure (spec.md §4.9, P9).
// progress reports PhaseScanning: ScanFunc has no per-item callback, so the
// finest grain available is "one side finished" — Total is always 2, and the
// final update fires once both sides have returned (spec.md §4.7 step 1).
func (e *Engine) scanBoth(
	ctx context.Context, progress *progressThrottle,
) (source, destination []beatmap.Set, cancelled bool, err error) {
	if err := e.sm.transition(StateScanning); err != nil {
		return nil, nil, false, err
	}

	if ctx.Err() != nil {
		return nil, nil, true, nil
	}

	progress.emit(Progress{Phase: PhaseScanning, Processed: 0, Total: 2}, false)

	var sidesDone int32

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := e.builder.ScanSource(gctx)
		if err != nil {
			return fmt.Errorf("syncengine: scanning source: %w", err)
		}

		source = s

		n := atomic.AddInt32(&sidesDone, 1)
		progress.emit(Progress{Phase: PhaseScanning, Processed: int(n), Total: 2}, n == 2)

		return nil
	})

	g.Go(func() error {
		d, err := e.builder.ScanDestination(gctx)
		if err != nil {
			return fmt.Errorf("syncengine: scanning destination: %w", err)
		}

		destination = d

		n := atomic.AddInt32(&sidesDone, 1)
		progress.emit(Progress{Phase: PhaseScanning, Processed: int(n), Total: 2}, n == 2)

		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return nil, nil, true, nil
		}

		e.sm.transition(StateFailed) //nolint:errcheck // best-effort terminal marker

		return nil, nil, false, err
	}

	return source, destination, false, nil
}

func (e *Engine) filterAndSelect(sets []beatmap.Set) []beatmap.Set {
	var out []beatmap.Set

	for _, s := range sets {
		if !filterx.Matches(s, e.builder.Filter) {
			continue
		}

		if len(e.builder.SelectedSetIDs) > 0 {
			if s.SetID == nil || !e.builder.SelectedSetIDs[*s.SetID] {
				continue
			}
		}

		if len(e.builder.SelectedFolders) > 0 && !e.builder.SelectedFolders[s.FolderName] {
			continue
		}

		out = append(out, s)
	}

	return out
}

// classifyAll builds the duplicate index over destination and classifies
// every filtered source set against it, in the exact sequence Sync later
// uses to decide what to do — so Plan's output is a faithful preview
// (spec.md §4.8). Cancellation is checked at every set boundary; it stops
// classification early rather than failing the call (spec.md §4.9, P9).
// progress reports PhaseDeduplicating once per classified set (spec.md §4.7
// step 3).
func (e *Engine) classifyAll(
	ctx context.Context, source, destination []beatmap.Set, progress *progressThrottle,
) ([]PlanItem, error) {
	if err := e.sm.transition(StateDeduplicating); err != nil {
		return nil, err
	}

	idx := dedupe.BuildIndex(destination)
	resolver := newResolverState(e.builder.Resolver)

	filtered := e.filterAndSelect(source)

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].FolderName < filtered[j].FolderName })

	items := make([]PlanItem, 0, len(filtered))

	total := len(filtered)

	progress.emit(Progress{Phase: PhaseDeduplicating, Processed: 0, Total: total}, total == 0)

	for i, s := range filtered {
		if ctx.Err() != nil {
			break
		}

		items = append(items, classify(ctx, s, idx, e.builder.Strategy, resolver))

		progress.emit(Progress{Phase: PhaseDeduplicating, Processed: i + 1, Total: total}, i == total-1)
	}

	return items, nil
}

// Plan runs the scan and classification phases only, producing a dry-run
// preview with no filesystem mutation (spec.md §4.8).
func (e *Engine) Plan(ctx context.Context) (DryRunResult, error) {
	throttle := newProgressThrottle(e.builder.Progress, e.builder.ProgressEvery)

	source, destination, cancelled, err := e.scanBoth(ctx, throttle)
	if err != nil {
		return DryRunResult{}, err
	}

	if cancelled {
		if err := e.sm.transition(StateComplete); err != nil {
			return DryRunResult{}, err
		}

		return DryRunResult{}, nil
	}

	items, err := e.classifyAll(ctx, source, destination, throttle)
	if err != nil {
		return DryRunResult{}, err
	}

	result := DryRunResult{Items: items}

	for _, item := range items {
		switch item.Action {
		case ActionImport, ActionReplace, ActionKeepBoth:
			result.ImportCount++
			result.TotalBytes += item.Bytes
		default:
			result.SkipCount++
		}
	}

	if err := e.sm.transition(StateComplete); err != nil {
		return result, err
	}

	return result, nil
}

// SyncResult is the outcome of a live Sync pass.
type SyncResult struct {
	Imported int
	Skipped  int
	Failed   int
	Errors   []error
}

// Sync runs the full pipeline: scan, classify, then write every set
// classified as Import/Replace/KeepBoth through the configured SetWriter.
// A single set's write failure is recorded in Errors and counted against
// Failed; it never aborts the run (spec.md §9's per-set failure isolation).
// Cancellation is checked before each set and returns immediately with
// whatever has already completed counted (spec.md §7's cancellation
// idempotence invariant, P9).
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	throttle := newProgressThrottle(e.builder.Progress, e.builder.ProgressEvery)

	source, destination, cancelled, err := e.scanBoth(ctx, throttle)
	if err != nil {
		return SyncResult{}, err
	}

	if cancelled {
		if err := e.sm.transition(StateComplete); err != nil {
			return SyncResult{}, err
		}

		return SyncResult{}, nil
	}

	items, err := e.classifyAll(ctx, source, destination, throttle)
	if err != nil {
		return SyncResult{}, err
	}

	if err := e.sm.transition(StateImporting); err != nil {
		return SyncResult{}, err
	}

	var toWrite []PlanItem

	var totalBytes int64

	for _, item := range items {
		if item.Action == ActionImport || item.Action == ActionReplace || item.Action == ActionKeepBoth {
			toWrite = append(toWrite, item)
			totalBytes += item.Bytes
		}
	}

	var result SyncResult

	var bytesDone int64

	for i, item := range toWrite {
		if ctx.Err() != nil {
			break
		}

		if err := e.builder.Writer.WriteSet(ctx, item.Source, e.builder.SourceReader); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, syncerr.NewSetError(item.Source.DisplayName(), err))
			e.logger.Warn("syncengine: set failed to write", "set", item.Source.DisplayName(), "error", err)
		} else {
			result.Imported++
		}

		bytesDone += item.Bytes

		throttle.emit(Progress{
			Phase:      PhaseImporting,
			Processed:  i + 1,
			Total:      len(toWrite),
			BytesDone:  bytesDone,
			BytesTotal: totalBytes,
			ETA:        estimateETA(totalBytes-bytesDone, e.builder.AssumedMBPerSec),
		}, i == len(toWrite)-1)
	}

	for _, item := range items {
		if item.Action == ActionSkip {
			result.Skipped++
		}
	}

	if err := e.sm.transition(StateComplete); err != nil {
		return result, err
	}

	return result, nil
}
