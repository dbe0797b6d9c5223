// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for osu-libsync, following the
// teacher's internal/config package shape (nested toml-tagged sections, a
// Load/Validate pair, an environment-variable override layer) scaled down to
// this tool's single-library-pair scope — there are no per-drive profiles
// or OAuth tokens here, so that machinery is dropped (see DESIGN.md).
package config

import "time"

// Config is the top-level configuration structure, loaded from a single
// TOML file.
type Config struct {
	Stable  StableConfig  `toml:"stable"`
	Lazer   LazerConfig   `toml:"lazer"`
	Filter  FilterConfig  `toml:"filter"`
	Dedupe  DedupeConfig  `toml:"dedupe"`
	Sync    SyncConfig    `toml:"sync"`
	Logging LoggingConfig `toml:"logging"`
}

// StableConfig locates the osu!stable installation.
type StableConfig struct {
	SongsRoot   string `toml:"songs_root"`
	SkipSymlink bool   `toml:"skip_symlinks"`
}

// LazerConfig locates the osu!lazer installation.
type LazerConfig struct {
	Root string `toml:"root"`
}

// FilterConfig mirrors filterx.Criteria in TOML-friendly form.
type FilterConfig struct {
	Modes    []string `toml:"modes"`
	StarMin  *float64 `toml:"star_min"`
	StarMax  *float64 `toml:"star_max"`
	Statuses []string `toml:"statuses"`
	Artist   string   `toml:"artist"`
	Mapper   string   `toml:"mapper"`
	Query    string   `toml:"query"`
}

// DedupeConfig selects the duplicate-matching strategy.
type DedupeConfig struct {
	// Strategy is one of "exact", "id_or_digest", "composite", "fuzzy".
	Strategy string `toml:"strategy"`
	// FuzzyThreshold is only consulted when Strategy == "fuzzy".
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
}

// SyncConfig controls sync engine behavior.
type SyncConfig struct {
	// Direction is one of "stable_to_lazer", "lazer_to_stable", "bidirectional".
	// The engine has only the two one-way directions: "bidirectional" passes
	// Validate, but the CLI runs it as a single stable_to_lazer pass; no
	// lazer_to_stable pass is made and no combined result is produced.
	Direction        string   `toml:"direction"`
	SelectedSetIDs   []int32  `toml:"selected_set_ids"`
	SelectedFolders  []string `toml:"selected_folders"`
	ProgressInterval string   `toml:"progress_interval"`
	AssumedMBPerSec  float64  `toml:"assumed_throughput_mb_per_sec"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config populated with the same defaults the
// zero-config first run of the teacher CLI produced for its own settings.
func DefaultConfig() *Config {
	return &Config{
		Dedupe: DedupeConfig{
			Strategy:       "composite",
			FuzzyThreshold: defaultFuzzyThreshold,
		},
		Sync: SyncConfig{
			Direction:        "stable_to_lazer",
			ProgressInterval: defaultProgressInterval.String(),
			AssumedMBPerSec:  defaultAssumedThroughputMBPerSec,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Defaults recorded as DESIGN.md decisions for the spec's two Open Questions.
const (
	defaultFuzzyThreshold            = 0.85
	defaultAssumedThroughputMBPerSec = 40.0
)

const defaultProgressInterval = 50 * time.Millisecond
