package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, Validate(cfg))

	assert.Equal(t, "composite", cfg.Dedupe.Strategy)
	assert.InDelta(t, 0.85, cfg.Dedupe.FuzzyThreshold, 0.0001)
	assert.Equal(t, "stable_to_lazer", cfg.Sync.Direction)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateForOperation_RequiresBothRoots(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorIs(t, ValidateForOperation(cfg), ErrMissingStableRoot)

	cfg.Stable.SongsRoot = "/songs"
	assert.ErrorIs(t, ValidateForOperation(cfg), ErrMissingLazerRoot)

	cfg.Lazer.Root = "/lazer"
	assert.NoError(t, ValidateForOperation(cfg))
}

func TestValidate_RejectsUnknownDedupeStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dedupe.Strategy = "telepathy"
	assert.ErrorIs(t, Validate(cfg), ErrInvalidDedupe)
}

func TestValidate_RejectsBadStarRange(t *testing.T) {
	cfg := DefaultConfig()
	lo, hi := 5.0, 2.0
	cfg.Filter.StarMin = &lo
	cfg.Filter.StarMax = &hi
	assert.ErrorIs(t, Validate(cfg), ErrInvalidStarRange)
}

func TestLoadOrDefault_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(filepath.Join(dir, "absent.toml"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesFileAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	const body = `
[stable]
songs_root = "/home/user/osu!/Songs"

[lazer]
root = "/home/user/.local/share/osu"

[dedupe]
strategy = "fuzzy"
fuzzy_threshold = 0.9
`
	require.NoError(t, writeFile(path, body))

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "/home/user/osu!/Songs", cfg.Stable.SongsRoot)
	assert.Equal(t, "/home/user/.local/share/osu", cfg.Lazer.Root)
	assert.Equal(t, "fuzzy", cfg.Dedupe.Strategy)
	assert.InDelta(t, 0.9, cfg.Dedupe.FuzzyThreshold, 0.0001)
}

func TestApplyEnv_OverridesRoots(t *testing.T) {
	cfg := DefaultConfig()
	ApplyEnv(cfg, EnvOverrides{StableRoot: "/a", LazerRoot: "/b", LogLevel: "debug"})
	assert.Equal(t, "/a", cfg.Stable.SongsRoot)
	assert.Equal(t, "/b", cfg.Lazer.Root)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
