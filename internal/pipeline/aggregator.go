// Package pipeline orchestrates log parsing, cost estimation, and
// cross-session aggregation.
package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ralphopt/internal/model"
)

// Summary holds the top-level aggregate across one analysis.
type Summary struct {
	Iterations int
	Sessions   int
	Agents     int

	InputTokens  int64
	OutputTokens int64
	TotalCost    decimal.Decimal
	AvgCost      decimal.Decimal

	Errors       int
	ErrorsByKind map[model.ErrorKind]int

	Tools     []model.ToolCount
	ToolCalls int

	WasteTokens int64
}

// Summarize folds an analysis into report-ready totals.
func Summarize(a model.Analysis) Summary {
	s := Summary{
		Iterations:   len(a.Iterations),
		Sessions:     len(a.Results),
		TotalCost:    a.TotalCost(),
		Errors:       a.ErrorCount(),
		ErrorsByKind: a.ErrorsByKind(),
	}
	s.InputTokens, s.OutputTokens = a.TotalTokens()

	for _, r := range a.Results {
		s.Agents += len(r.Session.Agents)
	}
	if s.Sessions > 0 {
		s.AvgCost = s.TotalCost.Div(decimal.NewFromInt(int64(s.Sessions)))
	}

	tools := a.ToolDistribution()
	s.Tools = tools.Sorted()
	s.ToolCalls = tools.Total()

	for _, p := range a.Patterns {
		s.WasteTokens += p.EstimatedWasteTokens
	}
	return s
}

// RankByCost returns the session results ordered by estimated cost, most
// expensive first. Ties keep iteration order.
func RankByCost(results []model.SessionResult) []model.SessionResult {
	out := make([]model.SessionResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Cost.EstimatedCost.GreaterThan(out[j].Cost.EstimatedCost)
	})
	return out
}

// TierBreakdown counts subagents per tier across all sessions.
func TierBreakdown(results []model.SessionResult) map[model.AgentTier]int {
	out := make(map[model.AgentTier]int)
	for _, r := range results {
		for _, a := range r.Session.Agents {
			out[a.Tier]++
		}
	}
	return out
}
