package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/model"
	"github.com/theirongolddev/ralphopt/internal/pipeline"
)

var (
	sessionsLimit  int
	sessionsByCost bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [log-file]",
	Short: "Per-session cost, tokens, and tool calls",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "l", 0, "Number of sessions to show (0 for all)")
	sessionsCmd.Flags().BoolVar(&sessionsByCost, "by-cost", false, "Sort by estimated cost, most expensive first")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	res, err := loadAnalysis(cmd.Context(), args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	results := res.Results
	if len(results) == 0 {
		fmt.Fprintln(out, "\n  No iterations carried a session id.")
		return nil
	}
	if sessionsByCost {
		results = pipeline.RankByCost(results)
	}
	if sessionsLimit > 0 && len(results) > sessionsLimit {
		results = results[:sessionsLimit]
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("SESSIONS  %d of %d", len(results), len(res.Results))))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(results)+2)
	for _, r := range results {
		status := "ok"
		if kind := r.Iteration.ErrorKind(); kind != model.ErrorNone {
			status = string(kind)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d/%d", r.Iteration.Number, r.Iteration.Total),
			cli.ShortID(r.Iteration.SessionID),
			cli.FormatTokens(r.Cost.InputTokens),
			cli.FormatTokens(r.Cost.OutputTokens),
			cli.FormatNumber(int64(len(r.Session.ToolCalls))),
			cli.FormatNumber(int64(len(r.Session.Agents))),
			cli.FormatCost(r.Cost.EstimatedCost),
			status,
		})
	}

	sum := pipeline.Summarize(res.Analysis)
	rows = append(rows, []string{"---"}, []string{
		"Total", "",
		cli.FormatTokens(sum.InputTokens),
		cli.FormatTokens(sum.OutputTokens),
		"", cli.FormatNumber(int64(sum.Agents)),
		cli.FormatCost(sum.TotalCost),
		fmt.Sprintf("%d errors", sum.Errors),
	})

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers:  []string{"Iter", "Session", "Input", "Output", "Tools", "Agents", "Cost", "Status"},
		Rows:     rows,
		LeftCols: 2,
	}))
	return nil
}
