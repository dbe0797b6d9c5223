package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Follows the teacher's Load: decode-then-validate, with
// unknown keys surfaced as a warning rather than a hard failure (this tool
// has far fewer sections than the teacher's per-drive config, so the "did
// you mean?" suggestion machinery in the teacher's unknown.go is dropped —
// see DESIGN.md).
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	for _, key := range md.Undecoded() {
		logger.Warn("config: unknown key ignored", "key", key.String())
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully", "path", path)

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns DefaultConfig(),
// supporting the same zero-config first-run experience as the teacher's
// LoadOrDefault.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// ApplyEnv overlays environment-variable overrides onto cfg, following the
// teacher's env.go precedence contract (env overrides the file, CLI flags
// override env — CLI overrides are applied by the caller after ApplyEnv).
func ApplyEnv(cfg *Config, env EnvOverrides) {
	if env.StableRoot != "" {
		cfg.Stable.SongsRoot = env.StableRoot
	}

	if env.LazerRoot != "" {
		cfg.Lazer.Root = env.LazerRoot
	}

	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
}

// EnvOverrides holds the subset of configuration that may be supplied via
// environment variables, read by the caller (cmd/osu-libsync) with
// os.Getenv and passed in — config itself performs no process-global reads,
// matching the teacher's EnvOverrides/CLIOverrides separation.
type EnvOverrides struct {
	StableRoot string
	LazerRoot  string
	LogLevel   string
}

// EnvFromEnvironment reads the osu-libsync environment variables into an
// EnvOverrides value.
func EnvFromEnvironment() EnvOverrides {
	return EnvOverrides{
		StableRoot: os.Getenv("OSU_LIBSYNC_STABLE_ROOT"),
		LazerRoot:  os.Getenv("OSU_LIBSYNC_LAZER_ROOT"),
		LogLevel:   os.Getenv("OSU_LIBSYNC_LOG_LEVEL"),
	}
}
