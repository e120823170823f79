// Package detect runs waste heuristics over reconstructed sessions.
package detect

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/theirongolddev/ralphopt/internal/model"
)

// Estimated token cost of each kind of waste.
const (
	RedundantReadTokens = 500
	LateTestTokens      = 5000
	AgentOverheadTokens = 2000

	// LateTestThreshold is the edit count at which a first test run is late.
	LateTestThreshold = 5
	// MinAgentToolCalls is the fewest tool calls that justify an agent launch.
	MinAgentToolCalls = 3
)

// testCommands are substrings of Bash commands that run a test suite.
var testCommands = []string{
	"go test", "npm test", "vitest", "verify-all",
	"test-backend", "test-frontend", "test-e2e",
}

// Pattern names.
const (
	PatternRedundantReads = "Redundant File Reads"
	PatternLateTests      = "Late Test Execution"
	PatternAgentOverhead  = "Low-Value Agent Launches"
)

func isMutation(name string) bool { return name == "Edit" || name == "Write" }

// readLedger groups Read and mutation indices by file path, remembering
// the order in which read paths were first seen.
type readLedger struct {
	order  []string
	reads  map[string][]int
	writes map[string][]int
}

func buildLedger(calls []model.ToolCall) readLedger {
	l := readLedger{
		reads:  make(map[string][]int),
		writes: make(map[string][]int),
	}
	for _, tc := range calls {
		fp := tc.StringInput("file_path")
		if fp == "" {
			continue
		}
		switch {
		case tc.Name == "Read":
			if _, seen := l.reads[fp]; !seen {
				l.order = append(l.order, fp)
			}
			l.reads[fp] = append(l.reads[fp], tc.Index)
		case isMutation(tc.Name):
			l.writes[fp] = append(l.writes[fp], tc.Index)
		}
	}
	return l
}

// mutatedBetween reports whether fp was edited strictly between lo and hi.
func (l readLedger) mutatedBetween(fp string, lo, hi int) bool {
	for _, w := range l.writes[fp] {
		if lo < w && w < hi {
			return true
		}
	}
	return false
}

// RedundantReads finds files read again with no Edit or Write to the same
// path between consecutive reads. Results are ordered by wasted tokens.
func RedundantReads(s model.Session) []model.RedundantRead {
	l := buildLedger(s.ToolCalls)

	var out []model.RedundantRead
	for _, fp := range l.order {
		idx := l.reads[fp]
		if len(idx) < 2 {
			continue
		}
		wasted := 0
		for i := 1; i < len(idx); i++ {
			if !l.mutatedBetween(fp, idx[i-1], idx[i]) {
				wasted++
			}
		}
		if wasted == 0 {
			continue
		}
		out = append(out, model.RedundantRead{
			FilePath:       fp,
			ReadCount:      len(idx),
			FirstReadIndex: idx[0],
			WastedTokens:   int64(wasted * RedundantReadTokens),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WastedTokens > out[j].WastedTokens
	})
	return out
}

// LargeFileReads finds files read in full (no offset or limit) more than once.
func LargeFileReads(s model.Session) []model.LargeFileRead {
	var order []string
	counts := make(map[string]int)
	for _, tc := range s.ToolCalls {
		if tc.Name != "Read" || tc.HasInput("offset") || tc.HasInput("limit") {
			continue
		}
		fp := tc.StringInput("file_path")
		if fp == "" {
			continue
		}
		if _, seen := counts[fp]; !seen {
			order = append(order, fp)
		}
		counts[fp]++
	}

	var out []model.LargeFileRead
	for _, fp := range order {
		if counts[fp] > 1 {
			out = append(out, model.LargeFileRead{FilePath: fp, ReadCount: counts[fp]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReadCount > out[j].ReadCount
	})
	return out
}

// IsTestCommand reports whether a shell command runs a test suite.
func IsTestCommand(cmd string) bool {
	for _, p := range testCommands {
		if strings.Contains(cmd, p) {
			return true
		}
	}
	return false
}

// LateTestRuns reports a session that ran its first test only after
// LateTestThreshold or more edits, or that edited and never tested.
// FirstTestIndex is a position in s.ToolCalls, not a ToolCall.Index.
func LateTestRuns(s model.Session) []model.LateTestRun {
	edits := 0
	first := -1
	for i, tc := range s.ToolCalls {
		if isMutation(tc.Name) {
			edits++
			continue
		}
		if tc.Name == "Bash" && IsTestCommand(tc.StringInput("command")) {
			first = i
			break
		}
	}

	if first == -1 && edits == 0 {
		return nil
	}
	if first != -1 && edits < LateTestThreshold {
		return nil
	}
	return []model.LateTestRun{{
		EditsBeforeTest: edits,
		FirstTestIndex:  first,
		TotalToolCalls:  len(s.ToolCalls),
	}}
}

// AgentOverhead flags subagents that made fewer than MinAgentToolCalls calls.
func AgentOverhead(s model.Session) []model.AgentOverhead {
	var out []model.AgentOverhead
	for _, a := range s.Agents {
		if len(a.ToolCalls) < MinAgentToolCalls {
			out = append(out, model.AgentOverhead{
				AgentID:       a.AgentID,
				Tier:          a.Tier,
				ToolCallCount: len(a.ToolCalls),
			})
		}
	}
	return out
}

// DetectAll runs every detector over sessions and aggregates the findings
// into at most one Pattern per kind, ordered by estimated waste.
// Large-file reads are reported per session only.
func DetectAll(sessions []model.Session) []model.Pattern {
	var (
		redundantReads  int
		redundantTokens int64
		lateTests       int
		overheadAgents  int
		fileOrder       []string
	)
	fileReads := make(map[string]int)

	for _, s := range sessions {
		for _, r := range RedundantReads(s) {
			redundantReads += r.ReadCount - 1
			redundantTokens += r.WastedTokens
			if _, seen := fileReads[r.FilePath]; !seen {
				fileOrder = append(fileOrder, r.FilePath)
			}
			fileReads[r.FilePath] += r.ReadCount
		}
		lateTests += len(LateTestRuns(s))
		overheadAgents += len(AgentOverhead(s))
	}

	var patterns []model.Pattern

	if redundantReads > 0 {
		sort.SliceStable(fileOrder, func(i, j int) bool {
			return fileReads[fileOrder[i]] > fileReads[fileOrder[j]]
		})
		if len(fileOrder) > 3 {
			fileOrder = fileOrder[:3]
		}
		top := make([]string, len(fileOrder))
		for i, fp := range fileOrder {
			top[i] = fmt.Sprintf("%s (%dx)", filepath.Base(fp), fileReads[fp])
		}
		patterns = append(patterns, model.Pattern{
			Name:                 PatternRedundantReads,
			Description:          fmt.Sprintf("%d redundant reads across %d sessions. Top: %s", redundantReads, len(sessions), strings.Join(top, ", ")),
			Occurrences:          redundantReads,
			EstimatedWasteTokens: redundantTokens,
			Suggestion:           "Pre-load frequently read files into prompt or use subagent summaries",
		})
	}

	if lateTests > 0 {
		patterns = append(patterns, model.Pattern{
			Name:                 PatternLateTests,
			Description:          fmt.Sprintf("%d sessions ran tests only after %d+ edits", lateTests, LateTestThreshold),
			Occurrences:          lateTests,
			EstimatedWasteTokens: int64(lateTests * LateTestTokens),
			Suggestion:           "Run tests after every 2-3 edits to catch issues sooner",
		})
	}

	if overheadAgents > 0 {
		patterns = append(patterns, model.Pattern{
			Name:                 PatternAgentOverhead,
			Description:          fmt.Sprintf("%d agents with <%d tool calls (could use direct tools)", overheadAgents, MinAgentToolCalls),
			Occurrences:          overheadAgents,
			EstimatedWasteTokens: int64(overheadAgents * AgentOverheadTokens),
			Suggestion:           "Use direct Grep/Read instead of launching agents for simple lookups",
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].EstimatedWasteTokens > patterns[j].EstimatedWasteTokens
	})
	return patterns
}
