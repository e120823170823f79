package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/model"
	"github.com/theirongolddev/ralphopt/internal/pipeline"
)

var costsCmd = &cobra.Command{
	Use:   "costs [log-file]",
	Short: "Cost breakdown by model tier and subagent share",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCosts,
}

func init() {
	rootCmd.AddCommand(costsCmd)
}

// tierTotals accumulates subagent usage for one tier.
type tierTotals struct {
	agents int
	input  int64
	output int64
	cost   decimal.Decimal
}

func runCosts(cmd *cobra.Command, args []string) error {
	res, err := loadAnalysis(cmd.Context(), args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	pricing := cfg.PricingTable()

	tiers := make(map[model.AgentTier]*tierTotals)
	mainCost := decimal.Zero
	var mainIn, mainOut int64
	for _, r := range res.Results {
		s := r.Session
		mainIn += s.TotalInputTokens
		mainOut += s.TotalOutputTokens
		mainCost = mainCost.Add(pricing.Top.Cost(s.TotalInputTokens, s.TotalOutputTokens))
		for _, a := range s.Agents {
			tt := tiers[a.Tier]
			if tt == nil {
				tt = &tierTotals{cost: decimal.Zero}
				tiers[a.Tier] = tt
			}
			tt.agents++
			tt.input += a.TotalInputTokens
			tt.output += a.TotalOutputTokens
			tt.cost = tt.cost.Add(pricing.ForTier(a.Tier).Cost(a.TotalInputTokens, a.TotalOutputTokens))
		}
	}

	total := res.TotalCost()
	share := func(d decimal.Decimal) string {
		if total.IsZero() {
			return "-"
		}
		return cli.FormatPercent(d.Div(total).InexactFloat64())
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("COST BY TIER"))
	fmt.Fprintln(out)

	rows := [][]string{{
		"Main sessions", cli.FormatNumber(int64(len(res.Results))),
		cli.FormatTokens(mainIn), cli.FormatTokens(mainOut),
		cli.FormatCost(mainCost), share(mainCost),
	}}
	counts := pipeline.TierBreakdown(res.Results)
	for _, tier := range []model.AgentTier{model.TierTop, model.TierMid, model.TierCheap, model.TierUnknown} {
		tt, ok := tiers[tier]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			"Agents: " + tier.String(), cli.FormatNumber(int64(counts[tier])),
			cli.FormatTokens(tt.input), cli.FormatTokens(tt.output),
			cli.FormatCost(tt.cost), share(tt.cost),
		})
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", "", "", cli.FormatCost(total), ""})

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Source", "Count", "Input", "Output", "Cost", "Share"},
		Rows:    rows,
	}))

	// Sessions where subagents dominate spend
	var heavy []string
	for _, r := range res.Results {
		if len(r.Session.Agents) == 0 {
			continue
		}
		if s := pipeline.AgentCostShare(r.Session, pricing); s >= 0.5 {
			heavy = append(heavy, fmt.Sprintf("  %s  %s of cost in %d agents",
				cli.ShortID(r.Iteration.SessionID), cli.FormatPercent(s), len(r.Session.Agents)))
		}
	}
	if len(heavy) > 0 {
		fmt.Fprintln(out, "\n  Agent-heavy sessions:")
		for _, line := range heavy {
			fmt.Fprintln(out, line)
		}
	}

	fmt.Fprintln(out)
	printPricing(cmd, pricing)
	return nil
}

func printPricing(cmd *cobra.Command, p config.PricingTable) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "  Rates per million tokens (input / output):")
	for _, row := range []struct {
		label string
		rate  config.TierPricing
	}{
		{"top", p.Top},
		{"mid", p.Mid},
		{"cheap", p.Cheap},
	} {
		fmt.Fprintf(out, "    %-6s $%s / $%s\n", row.label,
			row.rate.InputPerMTok.StringFixed(2), row.rate.OutputPerMTok.StringFixed(2))
	}
	fmt.Fprintln(out, "  Mid-tier agents are billed at top rates.")
}
