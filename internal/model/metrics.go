package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AgentToolPrefix marks subagent tool calls in a ToolCounts map.
const AgentToolPrefix = "Agent:"

// ToolCounts maps tool name to invocation count.
type ToolCounts map[string]int

// Add records n invocations of name.
func (tc ToolCounts) Add(name string, n int) {
	tc[name] += n
}

// Merge folds other into tc.
func (tc ToolCounts) Merge(other ToolCounts) {
	for name, n := range other {
		tc[name] += n
	}
}

// Total returns the number of invocations across all tools.
func (tc ToolCounts) Total() int {
	total := 0
	for _, n := range tc {
		total += n
	}
	return total
}

// ToolCount is one row of a sorted ToolCounts.
type ToolCount struct {
	Name  string
	Count int
}

// Sorted returns the counts ordered by count descending, then name.
func (tc ToolCounts) Sorted() []ToolCount {
	out := make([]ToolCount, 0, len(tc))
	for name, n := range tc {
		out = append(out, ToolCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CostBreakdown is the estimated spend of one Session including its agents.
type CostBreakdown struct {
	InputTokens   int64
	OutputTokens  int64
	EstimatedCost decimal.Decimal
	ByTool        ToolCounts
}

// TotalTokens returns input plus output.
func (c CostBreakdown) TotalTokens() int64 {
	return c.InputTokens + c.OutputTokens
}

// Pattern is an aggregated waste finding across sessions.
type Pattern struct {
	Name                 string `json:"name" yaml:"name"`
	Description          string `json:"description" yaml:"description"`
	Occurrences          int    `json:"occurrences" yaml:"occurrences"`
	EstimatedWasteTokens int64  `json:"estimated_waste_tokens" yaml:"estimated_waste_tokens"`
	Suggestion           string `json:"suggestion" yaml:"suggestion"`
}

// RedundantRead is a file re-read with no intervening modification.
type RedundantRead struct {
	FilePath       string
	ReadCount      int
	FirstReadIndex int
	WastedTokens   int64
}

// LargeFileRead is a file read in full more than once.
type LargeFileRead struct {
	FilePath  string
	LinesRead int // 0: not recoverable from the transcript
	ReadCount int
}

// LateTestRun records a session that edited heavily before running tests.
// FirstTestIndex is -1 when no test ever ran.
type LateTestRun struct {
	EditsBeforeTest int
	FirstTestIndex  int
	TotalToolCalls  int
}

// AgentOverhead flags a subagent that did too little to justify launching it.
type AgentOverhead struct {
	AgentID       string
	Tier          AgentTier
	ToolCallCount int
}

// SessionResult pairs an iteration with its reconstructed session and cost.
type SessionResult struct {
	Iteration Iteration
	Session   Session
	Cost      CostBreakdown
}

// Analysis is the full outcome of analysing one orchestrator log.
type Analysis struct {
	LogPath    string
	Project    string // short label of the loop's working directory
	Iterations []Iteration
	Results    []SessionResult
	Patterns   []Pattern
}

// Sessions returns the reconstructed sessions in iteration order.
func (a Analysis) Sessions() []Session {
	out := make([]Session, len(a.Results))
	for i, r := range a.Results {
		out[i] = r.Session
	}
	return out
}

// TotalCost sums the estimated cost across sessions.
func (a Analysis) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, r := range a.Results {
		total = total.Add(r.Cost.EstimatedCost)
	}
	return total
}

// TotalTokens returns summed input and output tokens across sessions.
func (a Analysis) TotalTokens() (input, output int64) {
	for _, r := range a.Results {
		input += r.Cost.InputTokens
		output += r.Cost.OutputTokens
	}
	return input, output
}

// ErrorCount returns how many analysed iterations ended in error.
func (a Analysis) ErrorCount() int {
	n := 0
	for _, it := range a.Iterations {
		if it.IsError {
			n++
		}
	}
	return n
}

// ErrorsByKind buckets the errored iterations.
func (a Analysis) ErrorsByKind() map[ErrorKind]int {
	out := make(map[ErrorKind]int)
	for _, it := range a.Iterations {
		if it.IsError {
			out[it.ErrorKind()]++
		}
	}
	return out
}

// LatestRateLimitReset returns the reset time announced by the most recent
// rate-limited iteration.
func (a Analysis) LatestRateLimitReset() (RateLimitReset, bool) {
	for i := len(a.Iterations) - 1; i >= 0; i-- {
		it := a.Iterations[i]
		if it.ErrorKind() != ErrorRateLimit {
			continue
		}
		if reset, ok := ParseRateLimitReset(it.Result); ok {
			return reset, true
		}
	}
	return RateLimitReset{}, false
}

// ToolDistribution folds every session's ByTool counts.
func (a Analysis) ToolDistribution() ToolCounts {
	out := make(ToolCounts)
	for _, r := range a.Results {
		out.Merge(r.Cost.ByTool)
	}
	return out
}
