package source

import (
	"encoding/json"
	"strings"
)

// Record is a single JSON line from the orchestrator log or a transcript.
// Only the fields the analyser reads are decoded.
type Record struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
	Model     string `json:"model,omitempty"`

	// For result records emitted at the end of an orchestrated run
	IsError bool            `json:"is_error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`

	// nil when absent or null; set on records produced inside a subagent
	ParentToolUseID any `json:"parent_tool_use_id,omitempty"`

	Message *RawMessage `json:"message,omitempty"`
}

// IsInit reports whether r is the system record that opens a conversation.
func (r Record) IsInit() bool {
	return r.Type == "system" && r.Subtype == "init"
}

// ResultText returns the result payload as text. Non-string payloads are
// returned in their raw JSON form.
func (r Record) ResultText() string {
	if len(r.Result) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r.Result))
}

// RawMessage represents the assistant's message envelope.
type RawMessage struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Usage   *RawUsage       `json:"usage,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ToolUses decodes the content array and returns its tool_use blocks.
// Content that is not an array of blocks yields nothing.
func (m *RawMessage) ToolUses() []RawContentBlock {
	if m == nil || len(m.Content) == 0 || m.Content[0] != '[' {
		return nil
	}
	var blocks []json.RawMessage
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil
	}
	var out []RawContentBlock
	for _, raw := range blocks {
		var b RawContentBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			continue
		}
		if b.Type == "tool_use" {
			out = append(out, b)
		}
	}
	return out
}

// RawContentBlock is one element of an assistant message's content array.
type RawContentBlock struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// InputMap decodes the tool input as an object. Anything else yields an empty map.
func (b RawContentBlock) InputMap() map[string]any {
	out := make(map[string]any)
	if len(b.Input) == 0 {
		return out
	}
	if err := json.Unmarshal(b.Input, &out); err != nil || out == nil {
		return make(map[string]any)
	}
	return out
}

// RawUsage holds token counts from the API response.
type RawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// Input returns fresh plus cache-write plus cache-read input tokens.
func (u *RawUsage) Input() int64 {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// Output returns the output token count.
func (u *RawUsage) Output() int64 {
	if u == nil {
		return 0
	}
	return u.OutputTokens
}

// AgentFile is a subagent transcript found beside a session transcript.
type AgentFile struct {
	Path    string
	AgentID string // file stem
}

// Stats counts what the parser saw and skipped across all files.
type Stats struct {
	Lines           int
	SkippedLines    int
	MissingSessions int
	AgentFiles      int
}
