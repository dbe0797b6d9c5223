package config

import (
	"errors"
	"fmt"
)

// Validation sentinel errors.
var (
	ErrMissingStableRoot  = errors.New("config: stable.songs_root is required")
	ErrMissingLazerRoot   = errors.New("config: lazer.root is required")
	ErrInvalidDedupe      = errors.New("config: invalid dedupe.strategy")
	ErrInvalidFuzzyRange  = errors.New("config: dedupe.fuzzy_threshold must be within [0,1]")
	ErrInvalidDirection   = errors.New("config: invalid sync.direction")
	ErrInvalidStarRange   = errors.New("config: filter.star_min must be <= filter.star_max")
)

var validDedupeStrategies = map[string]bool{
	"exact": true, "id_or_digest": true, "composite": true, "fuzzy": true,
}

var validDirections = map[string]bool{
	"stable_to_lazer": true, "lazer_to_stable": true, "bidirectional": true,
}

// Validate checks structural invariants on cfg. It does not require the
// Stable/Lazer roots to be set; ValidateForOperation adds that check. Neither
// function checks that the roots exist on disk.
func Validate(cfg *Config) error {
	if cfg.Dedupe.Strategy != "" && !validDedupeStrategies[cfg.Dedupe.Strategy] {
		return fmt.Errorf("%w: %q", ErrInvalidDedupe, cfg.Dedupe.Strategy)
	}

	if cfg.Dedupe.FuzzyThreshold < 0 || cfg.Dedupe.FuzzyThreshold > 1 {
		return ErrInvalidFuzzyRange
	}

	if cfg.Sync.Direction != "" && !validDirections[cfg.Sync.Direction] {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, cfg.Sync.Direction)
	}

	if cfg.Filter.StarMin != nil && cfg.Filter.StarMax != nil && *cfg.Filter.StarMin > *cfg.Filter.StarMax {
		return ErrInvalidStarRange
	}

	return nil
}

// ValidateForOperation additionally requires both installation roots to be
// configured, returning ErrMissingStableRoot or ErrMissingLazerRoot
// otherwise. The CLI calls it before building an engine for dry-run or sync.
func ValidateForOperation(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	if cfg.Stable.SongsRoot == "" {
		return ErrMissingStableRoot
	}

	if cfg.Lazer.Root == "" {
		return ErrMissingLazerRoot
	}

	return nil
}
