package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/detect"
	"github.com/theirongolddev/ralphopt/internal/model"
)

var (
	checkFirstMutation string
	checkReadBefore    []string
	checkNoTests       bool
)

var checkCmd = &cobra.Command{
	Use:   "check [log-file]",
	Short: "Run behavioural checks against each session's tool-call sequence",
	Long: "Check the ordering of tool calls in every session. By default each session is checked\n" +
		"for running tests before its first edit. Exits non-zero when any check fails.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFirstMutation, "first-mutation", "", "Require the first Edit/Write to touch a path containing FILE")
	checkCmd.Flags().StringArrayVar(&checkReadBefore, "read-before", nil, "Require A to be read before B (A:B, repeatable)")
	checkCmd.Flags().BoolVar(&checkNoTests, "skip-tests-check", false, "Skip the tests-before-first-edit check")
	rootCmd.AddCommand(checkCmd)
}

type readOrder struct{ before, after string }

func parseReadBefore(specs []string) ([]readOrder, error) {
	out := make([]readOrder, 0, len(specs))
	for _, s := range specs {
		before, after, ok := strings.Cut(s, ":")
		if !ok || before == "" || after == "" {
			return nil, fmt.Errorf("--read-before %q: want A:B", s)
		}
		out = append(out, readOrder{before: before, after: after})
	}
	return out, nil
}

// sessionChecks runs every configured check against one session.
func sessionChecks(calls []model.ToolCall, orders []readOrder) []detect.CheckResult {
	var results []detect.CheckResult
	if !checkNoTests {
		results = append(results, detect.TestsBeforeMutation(calls))
	}
	if checkFirstMutation != "" {
		results = append(results, detect.MutatesFirst(calls, checkFirstMutation))
	}
	for _, o := range orders {
		results = append(results, detect.ReadBefore(calls, o.before, o.after))
	}
	return results
}

func runCheck(cmd *cobra.Command, args []string) error {
	orders, err := parseReadBefore(checkReadBefore)
	if err != nil {
		return err
	}

	res, err := loadAnalysis(cmd.Context(), args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var rows [][]string
	failed, total := 0, 0
	for _, r := range res.Results {
		for _, c := range sessionChecks(r.Session.ToolCalls, orders) {
			total++
			verdict := "pass"
			if !c.Passed {
				verdict = "FAIL"
				failed++
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", r.Iteration.Number),
				cli.ShortID(r.Iteration.SessionID),
				c.Name,
				verdict,
				truncate(c.Detail, 40),
			})
		}
	}

	if total == 0 {
		fmt.Fprintln(out, "\n  No checks to run.")
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:    fmt.Sprintf("Behavioural checks: %d/%d passed", total-failed, total),
		Headers:  []string{"Iter", "Session", "Check", "Result", "Detail"},
		Rows:     rows,
		LeftCols: 5,
	}))

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, total)
	}
	return nil
}
