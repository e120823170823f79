package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/model"
)

// EstimateCost prices one session together with its subagents.
//
// Top-level tokens are billed at top-tier rates. Each agent is billed at
// cheap rates when it ran on the cheap tier and at top rates otherwise.
// Tool calls are counted by name, with agent calls keyed "Agent:<name>".
func EstimateCost(s model.Session, pricing config.PricingTable) model.CostBreakdown {
	breakdown := model.CostBreakdown{
		InputTokens:   s.TotalInputTokens,
		OutputTokens:  s.TotalOutputTokens,
		EstimatedCost: pricing.Top.Cost(s.TotalInputTokens, s.TotalOutputTokens),
		ByTool:        make(model.ToolCounts),
	}

	for _, tc := range s.ToolCalls {
		breakdown.ByTool.Add(tc.Name, 1)
	}

	for _, a := range s.Agents {
		rate := pricing.ForTier(a.Tier)
		breakdown.EstimatedCost = breakdown.EstimatedCost.Add(rate.Cost(a.TotalInputTokens, a.TotalOutputTokens))
		breakdown.InputTokens += a.TotalInputTokens
		breakdown.OutputTokens += a.TotalOutputTokens
		for _, tc := range a.ToolCalls {
			breakdown.ByTool.Add(model.AgentToolPrefix+tc.Name, 1)
		}
	}

	return breakdown
}

// AgentCostShare returns the fraction of a session's estimated cost spent in subagents.
func AgentCostShare(s model.Session, pricing config.PricingTable) float64 {
	total := EstimateCost(s, pricing).EstimatedCost
	if total.IsZero() {
		return 0
	}
	agents := decimal.Zero
	for _, a := range s.Agents {
		agents = agents.Add(pricing.ForTier(a.Tier).Cost(a.TotalInputTokens, a.TotalOutputTokens))
	}
	share, _ := agents.Div(total).Float64()
	return share
}
