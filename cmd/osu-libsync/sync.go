package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/osu-libsync/osu-libsync/internal/syncengine"
	"github.com/osu-libsync/osu-libsync/internal/watch"
)

var (
	flagOnConflict string
	flagWatch      bool
)

// newSyncCmd runs the full scan/classify/write pipeline. Per-set write
// failures are reported but never abort the run and never produce a
// nonzero exit code on their own — only an unrecoverable error (bad config,
// a failed scan of either installation) does. A cancelled run exits
// successfully with the counts reached so far.
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import or export the difference between the two installations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			resolver, err := resolverFromFlag(flagOnConflict)
			if err != nil {
				return err
			}

			if flagWatch {
				return runSyncWatchLoop(cmd, cc, resolver)
			}

			result, err := runOneSync(cmd, cc, resolver)
			if err != nil {
				return err
			}

			return printSyncResult(cmd, result, flagJSON)
		},
	}

	addSyncFlags(cmd)
	cmd.Flags().StringVar(&flagOnConflict, "on-conflict", "skip", "what to do with a matched duplicate: skip or keep-both")
	cmd.Flags().BoolVar(&flagWatch, "watch", false, "re-run sync automatically when the source installation changes, instead of exiting after one pass")

	return cmd
}

func resolverFromFlag(name string) (syncengine.ConflictResolver, error) {
	switch name {
	case "keep-both":
		return syncengine.AutoKeepBoth{}, nil
	case "skip", "":
		return syncengine.AutoSkip{}, nil
	default:
		return nil, fmt.Errorf("unknown --on-conflict %q, want \"skip\" or \"keep-both\"", name)
	}
}

// runOneSync builds a fresh engine and runs a single sync pass. A fresh
// Engine is required per run since Engine is single-use (its state machine
// does not allow replaying Scanning after Complete).
func runOneSync(cmd *cobra.Command, cc *CLIContext, resolver syncengine.ConflictResolver) (syncengine.SyncResult, error) {
	progress := func(p syncengine.Progress) {
		if !flagJSON {
			fmt.Fprintf(cmd.ErrOrStderr(), "\r%s", p.Summary())
		}
	}

	engine, closer, err := buildEngine(cc, syncOptions{
		direction:      directionFlag(),
		strategy:       flagStrategy,
		fuzzyThreshold: flagFuzzyThreshold,
		setIDs:         flagSetIDs,
		folders:        flagFolders,
		progress:       progress,
		resolver:       resolver,
	})
	if err != nil {
		return syncengine.SyncResult{}, err
	}
	defer closer()

	result, err := engine.Sync(cmd.Context())
	if !flagJSON {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	return result, err
}

// runSyncWatchLoop runs one sync immediately, then watches the configured
// source installation's root and re-runs sync whenever it settles after a
// burst of filesystem activity, until interrupted (SIGINT/SIGTERM).
func runSyncWatchLoop(cmd *cobra.Command, cc *CLIContext, resolver syncengine.ConflictResolver) error {
	result, err := runOneSync(cmd, cc, resolver)
	if err != nil {
		return err
	}

	if err := printSyncResult(cmd, result, flagJSON); err != nil {
		return err
	}

	watchRoot := cc.Cfg.Stable.SongsRoot
	if directionFlag() == "lazer_to_stable" {
		watchRoot = cc.Cfg.Lazer.Root
	}

	w, err := watch.NewOSWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(watchRoot); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	stop := make(chan struct{})

	go func() {
		<-sig
		close(stop)
	}()

	watch.Trigger(w, stop, func() {
		result, err := runOneSync(cmd, cc, resolver)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "watch: sync failed:", err)

			return
		}

		printSyncResult(cmd, result, flagJSON) //nolint:errcheck // best-effort report inside watch loop
	}, cc.Logger)

	return nil
}

func printSyncResult(cmd *cobra.Command, result syncengine.SyncResult, asJSON bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(struct {
			Imported int      `json:"imported"`
			Skipped  int      `json:"skipped"`
			Failed   int      `json:"failed"`
			Errors   []string `json:"errors,omitempty"`
		}{
			Imported: result.Imported,
			Skipped:  result.Skipped,
			Failed:   result.Failed,
			Errors:   errorStrings(result.Errors),
		})
	}

	fmt.Fprintf(out, "imported %d, skipped %d, failed %d\n", result.Imported, result.Skipped, result.Failed)

	for _, e := range result.Errors {
		fmt.Fprintf(out, "  error: %v\n", e)
	}

	return nil
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}

	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}

	return out
}
