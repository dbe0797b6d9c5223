// Package watch provides an optional filesystem-event trigger for re-running
// a sync when an installation's folder changes, instead of polling on a
// fixed interval.
//
// Grounded on the teacher's internal/sync/observer_local.go: an FsWatcher
// interface abstracting *fsnotify.Watcher (Add()/Close()/Events()/Errors()
// as methods rather than fsnotify's public fields, so tests can inject a
// fake), plus a debounce window collapsing a burst of events (e.g. an
// archive extracting many files at once) into a single trigger.
package watch

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/osu-libsync/osu-libsync/internal/applog"
)

// FsWatcher abstracts filesystem event monitoring. Satisfied by
// *fsnotify.Watcher; tests inject a fake.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWrapper struct{ w *fsnotify.Watcher }

func (fw *fsnotifyWrapper) Add(name string) error         { return fw.w.Add(name) }
func (fw *fsnotifyWrapper) Close() error                  { return fw.w.Close() }
func (fw *fsnotifyWrapper) Events() <-chan fsnotify.Event { return fw.w.Events }
func (fw *fsnotifyWrapper) Errors() <-chan error          { return fw.w.Errors }

// NewOSWatcher opens a real *fsnotify.Watcher wrapped as an FsWatcher.
func NewOSWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWrapper{w: w}, nil
}

// DebounceInterval collapses a burst of filesystem events (a folder being
// copied in, an archive extracting) into a single trigger.
const DebounceInterval = 2 * time.Second

// Trigger calls fn once events on watcher have stopped arriving for
// DebounceInterval: every event restarts the wait, so a burst of events
// produces a single call after its last event. Trigger blocks until stop is
// closed.
func Trigger(watcher FsWatcher, stop <-chan struct{}, fn func(), logger *slog.Logger) {
	logger = applog.OrDiscard(logger)

	var timer *time.Timer

	for {
		select {
		case <-stop:
			if timer != nil {
				timer.Stop()
			}

			return
		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}

			logger.Debug("watch: event observed", "path", ev.Name, "op", ev.Op.String())

			if timer == nil {
				timer = time.AfterFunc(DebounceInterval, fn)
			} else {
				timer.Reset(DebounceInterval)
			}
		case err, ok := <-watcher.Errors():
			if !ok {
				return
			}

			logger.Warn("watch: watcher error", "error", err)
		}
	}
}
