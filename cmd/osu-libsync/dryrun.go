package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osu-libsync/osu-libsync/internal/syncengine"
)

var (
	flagDirection      string
	flagStrategy       string
	flagFuzzyThreshold float64
	flagSetIDs         []int32
	flagFolders        []string
)

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDirection, "direction", "", "\"stable-to-lazer\" or \"lazer-to-stable\" (default: config file)")
	cmd.Flags().StringVar(&flagStrategy, "strategy", "", "duplicate match strategy: exact, id_or_digest, composite, fuzzy")
	cmd.Flags().Float64Var(&flagFuzzyThreshold, "fuzzy-threshold", 0, "similarity threshold in [0,1] when --strategy=fuzzy")
	cmd.Flags().Int32SliceVar(&flagSetIDs, "set-ids", nil, "restrict to these source BeatmapSetIds")
	cmd.Flags().StringSliceVar(&flagFolders, "folders", nil, "restrict to these source folder names")
}

// directionFlag translates the CLI's hyphenated --direction value into the
// config package's underscored form, leaving an unset flag as "" so
// buildEngine falls back to the config file's sync.direction.
func directionFlag() string {
	switch flagDirection {
	case "lazer-to-stable":
		return "lazer_to_stable"
	case "stable-to-lazer":
		return "stable_to_lazer"
	default:
		return ""
	}
}

func newDryRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dry-run",
		Short: "Preview what a sync would do without writing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			engine, closer, err := buildEngine(cc, syncOptions{
				direction:      directionFlag(),
				strategy:       flagStrategy,
				fuzzyThreshold: flagFuzzyThreshold,
				setIDs:         flagSetIDs,
				folders:        flagFolders,
			})
			if err != nil {
				return err
			}
			defer closer()

			result, err := engine.Plan(cmd.Context())
			if err != nil {
				return err
			}

			return printDryRun(cmd, result, flagJSON)
		},
	}

	addSyncFlags(cmd)

	return cmd
}

func printDryRun(cmd *cobra.Command, result syncengine.DryRunResult, asJSON bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(result)
	}

	for _, item := range result.Items {
		line := fmt.Sprintf("%-8s %s", item.Action, item.Source.DisplayName())
		if item.MatchedWith != nil {
			line += fmt.Sprintf(" (matched %s via %s)", item.MatchedWith.DisplayName(), item.MatchReason)
		}

		fmt.Fprintln(out, line)
	}

	fmt.Fprintf(out, "\n%d to import, %d to skip, %d bytes total\n", result.ImportCount, result.SkipCount, result.TotalBytes)

	return nil
}
