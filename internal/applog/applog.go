// Package applog builds the *slog.Logger used throughout osu-libsync,
// following the same config-then-flags precedence the teacher CLI used for
// its own logger construction (root.go's buildLogger).
package applog

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the slog handler used for output.
type Format string

// Supported log formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures New. Level's zero value is slog.LevelInfo; Format defaults
// to FormatText; Writer defaults to os.Stderr.
type Options struct {
	Level  slog.Level
	Format Format
	Writer io.Writer
}

// New builds a configured *slog.Logger. Library-internal constructors
// should accept a *slog.Logger and fall back to Discard when nil, rather
// than calling New themselves — only cmd/osu-libsync calls New.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}

	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// Discard returns a logger that drops everything, the default every
// component falls back to when constructed with a nil logger (matches the
// teacher's NewScanner/NewConflictHandler nil-guard pattern).
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns logger unchanged if non-nil, otherwise Discard().
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}

	return logger
}

// LevelFromString maps a config/CLI log-level string to an slog.Level,
// defaulting to Warn for empty or unrecognized values — the same default
// the teacher's buildLogger used.
func LevelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
