package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/pipeline"
	"github.com/theirongolddev/ralphopt/internal/store"
)

var (
	historyLimit  int
	historyDelete int64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved analysis runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of runs to show (0 for all)")
	historyCmd.Flags().Int64Var(&historyDelete, "delete", 0, "Delete the run with this id")
	rootCmd.AddCommand(historyCmd)
}

func saveRun(res *pipeline.Result) (int64, error) {
	h, err := store.Open(cfg.HistoryPath())
	if err != nil {
		return 0, err
	}
	defer func() { _ = h.Close() }()
	return h.Save(store.RunFromAnalysis(res.Analysis, time.Now()))
}

func runHistory(cmd *cobra.Command, _ []string) error {
	h, err := store.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer func() { _ = h.Close() }()

	out := cmd.OutOrStdout()

	if historyDelete > 0 {
		if err := h.Delete(historyDelete); err != nil {
			return err
		}
		fmt.Fprintf(out, "  Deleted run %d\n", historyDelete)
		return nil
	}

	runs, err := h.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "\n  No saved runs. Use --save, or set history.auto_save in the config.")
		return nil
	}

	total, err := h.Count()
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("RUN HISTORY  (showing %d of %d)", len(runs), total)))
	fmt.Fprintln(out)

	logW := historyLogWidth(cli.TerminalWidth(os.Stdout, 100))
	rows := make([][]string, 0, len(runs))
	costs := make([]float64, len(runs))
	for i, r := range runs {
		costs[len(runs)-1-i] = r.TotalCost.InexactFloat64()
		topPattern := "-"
		if len(r.Patterns) > 0 {
			topPattern = r.Patterns[0].Name
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			r.AnalyzedAt.Local().Format("Jan 02 15:04"),
			truncate(filepath.Base(r.LogPath), logW),
			cli.FormatNumber(int64(r.Sessions)),
			cli.FormatNumber(int64(r.ErrorCount)),
			cli.FormatCost(r.TotalCost),
			cli.FormatTokens(r.WasteTokens),
			truncate(topPattern, 24),
		})
	}

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers:  []string{"ID", "Analyzed", "Log", "Sessions", "Errors", "Cost", "Waste", "Top Pattern"},
		Rows:     rows,
		LeftCols: 3,
	}))
	if len(costs) > 1 {
		fmt.Fprintf(out, "\n  Cost trend (oldest → newest): %s\n", cli.RenderSparkline(costs))
	}
	return nil
}

// historyLogWidth gives the log column whatever the fixed columns leave of
// the terminal, within [16, 48].
func historyLogWidth(termW int) int {
	return min(max(termW-84, 16), 48)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
