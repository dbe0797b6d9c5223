package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/osu-libsync/osu-libsync/internal/applog"
	"github.com/osu-libsync/osu-libsync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd.
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// CLIContext bundles the resolved config and logger built once in
// PersistentPreRunE, so subcommand RunE handlers never repeat that work.
type CLIContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc
}

// mustCLIContext extracts the CLIContext or panics — every subcommand is
// registered under the root's PersistentPreRunE, so a nil context here is
// always a programmer error in command wiring, never a user-reachable path.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context")
	}

	return cc
}

// newRootCmd builds the fully-assembled root command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "osu-libsync",
		Short:   "Sync beatmap libraries between osu!stable and osu!lazer",
		Long:    "osu-libsync compares an osu!stable Songs folder against an osu!lazer installation and imports or exports the difference.",
		Version: version,
		// Silence cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadCLIContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default: platform config dir)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show info-level logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "show debug-level logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only show errors")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newDryRunCmd())
	cmd.AddCommand(newSyncCmd())

	return cmd
}

// loadCLIContext resolves config (file, then env overrides) and builds the
// logger, storing both on the command's context for RunE handlers.
func loadCLIContext(cmd *cobra.Command) error {
	bootstrapLogger := buildLogger(config.DefaultConfig())

	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path, bootstrapLogger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	config.ApplyEnv(cfg, config.EnvFromEnvironment())

	logger := buildLogger(cfg)
	cc := &CLIContext{Cfg: cfg, Logger: logger}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger layers CLI verbosity flags (highest priority) over the
// config file's logging.level (lowest priority), mirroring the teacher's
// buildLogger precedence chain.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := applog.LevelFromString(cfg.Logging.Level)

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	format := applog.FormatText
	if cfg.Logging.Format == "json" {
		format = applog.FormatJSON
	}

	return applog.New(applog.Options{Level: level, Format: format, Writer: os.Stderr})
}
