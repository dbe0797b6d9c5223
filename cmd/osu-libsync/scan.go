package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osu-libsync/osu-libsync/internal/lazerdb"
)

var flagScanSide string

// newScanCmd lists every set found on one installation, without comparing
// against the other side — useful for inspecting a library or warming the
// stable hash cache ahead of a sync.
func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List beatmap sets found on one installation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var scan func(cmd *cobra.Command) ([]scanRow, error)

			switch flagScanSide {
			case "lazer":
				scan = scanLazer
			case "stable", "":
				scan = scanStable
			default:
				return fmt.Errorf("unknown --side %q, want \"stable\" or \"lazer\"", flagScanSide)
			}

			rows, err := scan(cmd)
			if err != nil {
				return err
			}

			return printScanRows(cmd, rows, flagJSON)
		},
	}

	cmd.Flags().StringVar(&flagScanSide, "side", "stable", "installation to scan: \"stable\" or \"lazer\"")

	return cmd
}

type scanRow struct {
	Folder        string `json:"folder"`
	Display       string `json:"display"`
	Difficulties  int    `json:"difficulties"`
	TotalBytes    int64  `json:"total_bytes"`
}

func scanStable(cmd *cobra.Command) ([]scanRow, error) {
	cc := mustCLIContext(cmd.Context())

	sets, err := stableScanFunc(cc, cc.Cfg.Stable.SongsRoot)(cmd.Context())
	if err != nil {
		return nil, err
	}

	rows := make([]scanRow, 0, len(sets))
	for _, s := range sets {
		rows = append(rows, scanRow{Folder: s.FolderName, Display: s.DisplayName(), Difficulties: len(s.Difficulties), TotalBytes: s.TotalSize()})
	}

	return rows, nil
}

func scanLazer(cmd *cobra.Command) ([]scanRow, error) {
	cc := mustCLIContext(cmd.Context())

	db, err := lazerdb.Open(cc.Cfg.Lazer.Root, cc.Logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	sets, err := db.ListSets(cmd.Context())
	if err != nil {
		return nil, err
	}

	rows := make([]scanRow, 0, len(sets))
	for _, s := range sets {
		rows = append(rows, scanRow{Folder: s.FolderName, Display: s.DisplayName(), Difficulties: len(s.Difficulties), TotalBytes: s.TotalSize()})
	}

	return rows, nil
}

func printScanRows(cmd *cobra.Command, rows []scanRow, asJSON bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(rows)
	}

	for _, r := range rows {
		fmt.Fprintf(out, "%-40s  %2d difficulties  %8d bytes\n", r.Display, r.Difficulties, r.TotalBytes)
	}

	fmt.Fprintf(out, "%d sets\n", len(rows))

	return nil
}
