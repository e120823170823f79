// Package model defines domain types for reconstructed ralph runs.
package model

import "strings"

// ToolCall is one tool invocation extracted from an assistant turn.
type ToolCall struct {
	Name         string
	Input        map[string]any
	OutputTokens int64 // output tokens of the whole turn that issued the call
	Index        int   // position among every tool_use block in the transcript
}

// StringInput returns the string value of an input key, or "" if absent or not a string.
func (c ToolCall) StringInput(key string) string {
	v, ok := c.Input[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// HasInput reports whether the input map carries key, even with a null value.
func (c ToolCall) HasInput(key string) bool {
	_, ok := c.Input[key]
	return ok
}

// Iteration is one pass of the outer loop as recorded in the orchestrator log.
type Iteration struct {
	Number    int
	Total     int
	SessionID string
	Timestamp string
	IsError   bool
	Result    string
}

// ErrorKind classifies why an iteration failed.
func (it Iteration) ErrorKind() ErrorKind {
	if !it.IsError {
		return ErrorNone
	}
	return ClassifyError(it.Result)
}

// Session is a top-level agent conversation reconstructed from its transcript.
type Session struct {
	SessionID         string
	ToolCalls         []ToolCall // top-level calls only
	TotalInputTokens  int64
	TotalOutputTokens int64
	Agents            []AgentSession
}

// TotalTokens returns input plus output for the top-level transcript.
func (s Session) TotalTokens() int64 {
	return s.TotalInputTokens + s.TotalOutputTokens
}

// AgentToolCalls returns the number of tool calls made by all subagents.
func (s Session) AgentToolCalls() int {
	n := 0
	for _, a := range s.Agents {
		n += len(a.ToolCalls)
	}
	return n
}

// AgentSession is a subagent transcript spawned by a Session.
type AgentSession struct {
	AgentID           string
	Tier              AgentTier
	Model             string
	ToolCalls         []ToolCall
	TotalInputTokens  int64
	TotalOutputTokens int64
}

// TotalTokens returns input plus output for the agent.
func (a AgentSession) TotalTokens() int64 {
	return a.TotalInputTokens + a.TotalOutputTokens
}

// AgentTier is the capability class of the model a subagent ran on.
type AgentTier int

const (
	TierUnknown AgentTier = iota
	TierCheap
	TierMid
	TierTop
)

// String returns the label shown in reports.
func (t AgentTier) String() string {
	switch t {
	case TierCheap:
		return "Explore/Haiku"
	case TierMid:
		return "Sonnet"
	case TierTop:
		return "Opus"
	default:
		return "unknown"
	}
}

// ClassifyTier maps a model identifier onto a tier by case-sensitive
// substring, checking haiku, then sonnet, then opus.
func ClassifyTier(modelID string) AgentTier {
	switch {
	case strings.Contains(modelID, "haiku"):
		return TierCheap
	case strings.Contains(modelID, "sonnet"):
		return TierMid
	case strings.Contains(modelID, "opus"):
		return TierTop
	default:
		return TierUnknown
	}
}
