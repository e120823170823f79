package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/model"
)

func sampleSession() model.Session {
	return model.Session{
		SessionID:         "s1",
		TotalInputTokens:  1_000_000,
		TotalOutputTokens: 100_000,
		ToolCalls: []model.ToolCall{
			{Name: "Read"}, {Name: "Read"}, {Name: "Task"},
		},
		Agents: []model.AgentSession{
			{
				AgentID:           "cheap",
				Tier:              model.TierCheap,
				TotalInputTokens:  500_000,
				TotalOutputTokens: 50_000,
				ToolCalls:         []model.ToolCall{{Name: "Read"}, {Name: "Grep"}},
			},
			{
				AgentID:           "mid",
				Tier:              model.TierMid,
				TotalInputTokens:  10_000,
				TotalOutputTokens: 1_000,
				ToolCalls:         []model.ToolCall{{Name: "Read"}},
			},
		},
	}
}

func TestEstimateCost(t *testing.T) {
	got := EstimateCost(sampleSession(), config.DefaultPricing())

	assert.Equal(t, int64(1_510_000), got.InputTokens)
	assert.Equal(t, int64(151_000), got.OutputTokens)

	// top: 15 + 7.5; cheap: 0.4 + 0.2; mid at top rates: 0.15 + 0.075
	want := decimal.RequireFromString("23.325")
	assert.True(t, got.EstimatedCost.Equal(want), "cost = %s, want %s", got.EstimatedCost, want)

	assert.Equal(t, model.ToolCounts{
		"Read":       2,
		"Task":       1,
		"Agent:Read": 2,
		"Agent:Grep": 1,
	}, got.ByTool)
}

func TestEstimateCost_Deterministic(t *testing.T) {
	s := sampleSession()
	a := EstimateCost(s, config.DefaultPricing())
	b := EstimateCost(s, config.DefaultPricing())
	assert.Equal(t, a.EstimatedCost.String(), b.EstimatedCost.String())
}

func TestEstimateCost_DoublesWithTokens(t *testing.T) {
	s := sampleSession()
	base := EstimateCost(s, config.DefaultPricing())

	s.TotalInputTokens *= 2
	s.TotalOutputTokens *= 2
	for i := range s.Agents {
		s.Agents[i].TotalInputTokens *= 2
		s.Agents[i].TotalOutputTokens *= 2
	}
	doubled := EstimateCost(s, config.DefaultPricing())

	require.True(t, doubled.EstimatedCost.Equal(base.EstimatedCost.Mul(decimal.NewFromInt(2))),
		"doubled = %s, base = %s", doubled.EstimatedCost, base.EstimatedCost)
}

func TestEstimateCost_EmptySession(t *testing.T) {
	got := EstimateCost(model.Session{SessionID: "empty"}, config.DefaultPricing())
	assert.True(t, got.EstimatedCost.IsZero())
	assert.Zero(t, got.TotalTokens())
	assert.Empty(t, got.ByTool)
}

func TestAgentCostShare(t *testing.T) {
	share := AgentCostShare(sampleSession(), config.DefaultPricing())
	// agents: 0.6 + 0.225 = 0.825 of 23.325
	assert.InDelta(t, 0.825/23.325, share, 1e-9)
	assert.Zero(t, AgentCostShare(model.Session{}, config.DefaultPricing()))
}
