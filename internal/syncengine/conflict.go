package syncengine

import (
	"context"

	"github.com/osu-libsync/osu-libsync/internal/beatmap"
)

// Resolution names how a conflicting duplicate is handled, per spec.md
// §4.7.
type Resolution int

// Resolutions.
const (
	ResolutionSkip Resolution = iota
	ResolutionReplace
	ResolutionKeepBoth
)

func (r Resolution) String() string {
	switch r {
	case ResolutionSkip:
		return "skip"
	case ResolutionReplace:
		return "replace"
	case ResolutionKeepBoth:
		return "keep_both"
	default:
		return "unknown"
	}
}

// Decision is a ConflictResolver's verdict for one conflicting pair.
// ApplyToAll, once true, tells the engine to reuse Resolution for every
// later conflict in the same run without consulting the resolver again
// (spec.md §4.7's "apply to all" escape hatch).
type Decision struct {
	Resolution Resolution
	ApplyToAll bool
}

// ConflictResolver decides what happens when a source set matches an
// existing destination set. Grounded on the teacher's ConflictHandler
// (internal/sync/conflict.go), generalized from a fixed keep-both policy to
// an injectable interface so a CLI can back it with an interactive prompt.
type ConflictResolver interface {
	Resolve(ctx context.Context, source, destination beatmap.Set) Decision
}

// AutoSkip always resolves to Skip, leaving the destination set untouched.
// This is the conservative default (spec.md §4.7).
type AutoSkip struct{}

// Resolve implements ConflictResolver.
func (AutoSkip) Resolve(context.Context, beatmap.Set, beatmap.Set) Decision {
	return Decision{Resolution: ResolutionSkip, ApplyToAll: true}
}

// AutoKeepBoth always resolves to KeepBoth, importing the source alongside
// the existing destination set rather than replacing or skipping it.
type AutoKeepBoth struct{}

// Resolve implements ConflictResolver.
func (AutoKeepBoth) Resolve(context.Context, beatmap.Set, beatmap.Set) Decision {
	return Decision{Resolution: ResolutionKeepBoth, ApplyToAll: true}
}

// resolverState tracks a per-run "apply to all" override once the resolver
// has returned one, so the engine stops consulting ConflictResolver for the
// remainder of the run.
type resolverState struct {
	resolver ConflictResolver
	pinned   *Resolution
}

func newResolverState(r ConflictResolver) *resolverState {
	return &resolverState{resolver: r}
}

func (s *resolverState) decide(ctx context.Context, source, destination beatmap.Set) Resolution {
	if s.pinned != nil {
		return *s.pinned
	}

	d := s.resolver.Resolve(ctx, source, destination)
	if d.ApplyToAll {
		r := d.Resolution
		s.pinned = &r
	}

	return d.Resolution
}
