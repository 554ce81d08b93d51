package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/contribgate/internal/report"
	"github.com/ShayCichocki/contribgate/internal/state"
)

var (
	historyLimit int
	historyPurge time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded validation runs",
	Long: `Display validation runs recorded in the run ledger.

Without arguments, lists the most recent runs.
With a run ID, shows that run's stage results and pruned features.
With --purge, deletes runs older than the given age first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list (0 for all)")
	historyCmd.Flags().DurationVar(&historyPurge, "purge", 0, "delete runs older than this age, e.g. 720h")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.openRepo(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := report.New(out, report.Options{})

	dbPath := s.statePath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprint(out, r.RenderRuns(nil))
		return nil
	}

	db, err := state.OpenMigrated(dbPath)
	if err != nil {
		return runtimeErr(err)
	}
	defer db.Close()

	if historyPurge > 0 {
		n, err := db.PurgeOldRuns(historyPurge)
		if err != nil {
			return runtimeErr(err)
		}
		printStatus(out, "✓", fmt.Sprintf("Purged %d runs older than %s", n, historyPurge), color.FgGreen)
	}

	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return runtimeErr(err)
		}
		fmt.Fprint(out, r.RenderRun(run))
		return nil
	}

	runs, err := db.ListRuns(ctx, historyLimit)
	if err != nil {
		return runtimeErr(err)
	}
	fmt.Fprint(out, r.RenderRuns(runs))
	return nil
}
