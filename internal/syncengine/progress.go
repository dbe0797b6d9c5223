package syncengine

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase names the portion of a sync run a Progress event belongs to.
type Phase int

// Phases, mirroring State but scoped to what's user-facing (spec.md §6).
const (
	PhaseScanning Phase = iota
	PhaseDeduplicating
	PhaseImporting
)

func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseDeduplicating:
		return "deduplicating"
	case PhaseImporting:
		return "importing"
	default:
		return "unknown"
	}
}

// Progress is one throttled status update, reported during Sync or Plan.
type Progress struct {
	Phase      Phase
	Processed  int
	Total      int
	BytesDone  int64
	BytesTotal int64
	ETA        time.Duration
}

// Summary renders a short human-readable line, used by CLI progress output.
func (p Progress) Summary() string {
	if p.BytesTotal == 0 {
		return humanize.Comma(int64(p.Processed)) + "/" + humanize.Comma(int64(p.Total)) + " " + p.Phase.String()
	}

	return humanize.Bytes(uint64(p.BytesDone)) + " / " + humanize.Bytes(uint64(p.BytesTotal)) +
		" (" + p.Phase.String() + ", ETA " + p.ETA.Round(time.Second).String() + ")"
}

// ProgressFunc receives throttled Progress updates. May be nil.
type ProgressFunc func(Progress)

// progressThrottle emits at most one update per interval, plus always the
// final update for a phase, matching spec.md §6's "50ms + final event"
// contract (grounded on the teacher's bandwidth.go rate-limited reporting).
// scanBoth emits from two goroutines at once, so the throttle guards its
// own state with a mutex rather than assuming a single caller.
type progressThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	fn       ProgressFunc
}

func newProgressThrottle(fn ProgressFunc, interval time.Duration) *progressThrottle {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	return &progressThrottle{interval: interval, fn: fn}
}

func (t *progressThrottle) emit(p Progress, final bool) {
	if t.fn == nil {
		return
	}

	t.mu.Lock()

	now := time.Now()
	if !final && now.Sub(t.last) < t.interval {
		t.mu.Unlock()

		return
	}

	t.last = now

	t.mu.Unlock()

	t.fn(p)
}

// estimateETA projects remaining duration from the bytes still to write and
// an assumed throughput in MB/s. Sync's importing-phase ETA always comes
// from this fixed rate; the observed transfer rate is not measured.
func estimateETA(bytesRemaining int64, assumedMBPerSec float64) time.Duration {
	if assumedMBPerSec <= 0 || bytesRemaining <= 0 {
		return 0
	}

	mb := float64(bytesRemaining) / (1024 * 1024)

	return time.Duration(mb / assumedMBPerSec * float64(time.Second))
}
