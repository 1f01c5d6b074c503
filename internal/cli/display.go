package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mission-runner/internal/display"
	"mission-runner/internal/history"
	"mission-runner/internal/metrics"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered missions in menu order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), display.FormatCatalog(reg, -1))
		return nil
	},
}

var (
	historyLimit   int
	historySummary bool
)

var historyCmd = &cobra.Command{
	Use:   "history [mission]",
	Short: "Show recorded runs, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		missionID := ""
		if len(args) > 0 {
			missionID = args[0]
		}
		runs, err := store.Recent(cmd.Context(), missionID, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, display.FormatHistory(runs))
		if historySummary && len(runs) > 0 {
			fmt.Fprintln(out)
			fmt.Fprint(out, display.FormatSummary(metrics.Summarize(runs)))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "print totals and best times")
}
