package syncengine

import (
	"context"

	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/dedupe"
)

// Action classifies what the engine decided to do with one source set.
type Action int

// Actions, per spec.md §4.8's dry-run classification.
const (
	ActionImport Action = iota
	ActionSkip
	ActionReplace
	ActionKeepBoth
)

func (a Action) String() string {
	switch a {
	case ActionImport:
		return "import"
	case ActionSkip:
		return "skip"
	case ActionReplace:
		return "replace"
	case ActionKeepBoth:
		return "keep_both"
	default:
		return "unknown"
	}
}

// PlanItem is one source set's classification against the destination
// index, produced by both Plan and the live Sync pass (Sync reuses the
// exact same classification logic so a dry run is a trustworthy preview —
// spec.md §4.8's core guarantee).
type PlanItem struct {
	Source      beatmap.Set
	Action      Action
	MatchedWith *beatmap.Set
	MatchReason dedupe.MatchReason
	Bytes       int64
}

// DryRunResult is the full output of a Plan call.
type DryRunResult struct {
	Items       []PlanItem
	ImportCount int
	SkipCount   int
	TotalBytes  int64
}

// classify decides the Action for one source set against idx, consulting
// resolver only when a duplicate is found.
func classify(ctx context.Context, source beatmap.Set, idx *dedupe.Index, strategy dedupe.MatchStrategy, resolver *resolverState) PlanItem {
	report := dedupe.FindDuplicate(source, idx, strategy)

	item := PlanItem{Source: source, Bytes: source.TotalSize()}

	if !report.IsDuplicate() {
		item.Action = ActionImport

		return item
	}

	item.MatchedWith = report.Matched
	item.MatchReason = report.Reason

	resolution := resolver.decide(ctx, source, *report.Matched)

	switch resolution {
	case ResolutionReplace:
		item.Action = ActionReplace
	case ResolutionKeepBoth:
		item.Action = ActionKeepBoth
	default:
		item.Action = ActionSkip
	}

	return item
}
