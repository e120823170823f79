package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/ralphopt/internal/model"
)

const testCwd = "/home/dev/pub_musings/peekaboo"

// writeLines creates path (and its parents) holding lines joined by newlines.
func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

// writeLog creates an orchestrator log in a temp dir and returns its path.
func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ralph-test.log")
	writeLines(t, path, lines...)
	return path
}

func initLine(sessionID string) string {
	return `{"type":"system","subtype":"init","session_id":"` + sessionID + `","cwd":"` + testCwd + `"}`
}

// newSessionParser returns a parser whose execution directory already
// points at a temp projects tree, plus that session directory.
func newSessionParser(t *testing.T) (*Parser, string) {
	t.Helper()
	projects := t.TempDir()
	p := NewParser(projects, nil)
	p.SetExecDir(EncodeProjectDir(testCwd))
	return p, filepath.Join(projects, p.ExecDir())
}

func TestParseOrchestratorLog_Iterations(t *testing.T) {
	path := writeLog(t,
		"=== Iteration 1/3 === 2025-06-01 10:00 | 2025-06-01 17:00 UTC | 1748797200",
		initLine("sess-aaa"),
		`{"type":"assistant","message":{"content":[]}}`,
		"Result: all tasks done  ",
		"=== Iteration 2/3 === 2025-06-01 10:30",
		initLine("sess-bbb"),
		`{"type":"result","is_error":true,"result":"API Error: 529 overloaded"}`,
	)

	p := NewParser(t.TempDir(), nil)
	iters, err := p.ParseOrchestratorLog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iters) != 2 {
		t.Fatalf("len(iters) = %d, want 2", len(iters))
	}

	first := iters[0]
	if first.Number != 1 || first.Total != 3 {
		t.Errorf("first = %d/%d, want 1/3", first.Number, first.Total)
	}
	if first.SessionID != "sess-aaa" {
		t.Errorf("first.SessionID = %q, want sess-aaa", first.SessionID)
	}
	if first.Timestamp != "2025-06-01 10:00 | 2025-06-01 17:00 UTC | 1748797200" {
		t.Errorf("first.Timestamp = %q", first.Timestamp)
	}
	if first.Result != "all tasks done" {
		t.Errorf("first.Result = %q, want trimmed text", first.Result)
	}
	if first.IsError {
		t.Error("first iteration should not be an error")
	}

	second := iters[1]
	if !second.IsError {
		t.Error("second iteration should be an error")
	}
	if second.Result != "API Error: 529 overloaded" {
		t.Errorf("second.Result = %q", second.Result)
	}

	if got, want := p.ExecDir(), "-home-dev-pub-musings-peekaboo"; got != want {
		t.Errorf("ExecDir = %q, want %q", got, want)
	}
}

func TestParseOrchestratorLog_FirstCwdWins(t *testing.T) {
	path := writeLog(t,
		"=== Iteration 1/2 === t1",
		`{"type":"system","subtype":"init","session_id":"a","cwd":"/first"}`,
		"=== Iteration 2/2 === t2",
		`{"type":"system","subtype":"init","session_id":"b","cwd":"/second"}`,
	)

	p := NewParser(t.TempDir(), nil)
	if _, err := p.ParseOrchestratorLog(path); err != nil {
		t.Fatal(err)
	}
	if p.ExecDir() != "-first" {
		t.Errorf("ExecDir = %q, want -first", p.ExecDir())
	}
}

func TestParseOrchestratorLog_MalformedLines(t *testing.T) {
	path := writeLog(t,
		"=== Iteration 1/1 === now",
		`{"type":"system","subtype":"init","session_id":`,
		`{not json`,
		"plain chatter from the loop",
		initLine("sess-ok"),
		`{"type":"system","subtype":"init" broken`,
	)

	p := NewParser(t.TempDir(), nil)
	iters, err := p.ParseOrchestratorLog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iters) != 1 || iters[0].SessionID != "sess-ok" {
		t.Fatalf("iters = %+v, want single sess-ok", iters)
	}
	if p.Stats().SkippedLines != 2 {
		t.Errorf("SkippedLines = %d, want 2", p.Stats().SkippedLines)
	}
}

func TestParseOrchestratorLog_ResultBeforeAnyIteration(t *testing.T) {
	path := writeLog(t,
		"Result: orphan",
		`{"type":"result","is_error":true,"result":"orphan"}`,
	)

	iters, err := NewParser(t.TempDir(), nil).ParseOrchestratorLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(iters) != 0 {
		t.Errorf("len(iters) = %d, want 0", len(iters))
	}
}

func TestParseOrchestratorLog_MissingFile(t *testing.T) {
	_, err := NewParser(t.TempDir(), nil).ParseOrchestratorLog(filepath.Join(t.TempDir(), "nope.log"))
	if err == nil {
		t.Fatal("expected error for missing log")
	}
}

func TestParseSession_TokensAndToolCalls(t *testing.T) {
	p, dir := newSessionParser(t)
	writeLines(t, filepath.Join(dir, "s1.jsonl"),
		`{"type":"user","message":{"role":"user","content":"go"}}`,
		`{"type":"assistant","message":{"model":"claude-opus-4","usage":{"input_tokens":10,"cache_creation_input_tokens":20,"cache_read_input_tokens":30,"output_tokens":5},"content":[{"type":"text","text":"hi"},{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/a.go"}},{"type":"tool_use","id":"t2","name":"Grep","input":{"pattern":"x"}}]}}`,
		`{"type":"assistant","parent_tool_use_id":"t9","message":{"usage":{"input_tokens":1,"output_tokens":2},"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/nested.go"}}]}}`,
		`{"type":"assistant","parent_tool_use_id":null,"message":{"usage":{"input_tokens":100,"output_tokens":7},"content":[{"type":"tool_use","name":"Edit","input":{"file_path":"/a.go"}}]}}`,
		`{"type":"assistant", truncated`,
	)

	s := p.ParseSession("s1")

	if s.TotalInputTokens != 161 {
		t.Errorf("TotalInputTokens = %d, want 161", s.TotalInputTokens)
	}
	if s.TotalOutputTokens != 14 {
		t.Errorf("TotalOutputTokens = %d, want 14", s.TotalOutputTokens)
	}
	if len(s.ToolCalls) != 3 {
		t.Fatalf("len(ToolCalls) = %d, want 3", len(s.ToolCalls))
	}

	wantIdx := []int{0, 1, 3}
	wantNames := []string{"Read", "Grep", "Edit"}
	for i, tc := range s.ToolCalls {
		if tc.Index != wantIdx[i] {
			t.Errorf("ToolCalls[%d].Index = %d, want %d", i, tc.Index, wantIdx[i])
		}
		if tc.Name != wantNames[i] {
			t.Errorf("ToolCalls[%d].Name = %q, want %q", i, tc.Name, wantNames[i])
		}
	}
	if s.ToolCalls[0].OutputTokens != 5 || s.ToolCalls[1].OutputTokens != 5 {
		t.Error("calls from one turn should carry that turn's output tokens")
	}
	if got := s.ToolCalls[0].StringInput("file_path"); got != "/a.go" {
		t.Errorf("file_path = %q, want /a.go", got)
	}
}

func TestParseSession_MissingTranscript(t *testing.T) {
	p, _ := newSessionParser(t)
	s := p.ParseSession("ghost")
	if s.SessionID != "ghost" {
		t.Errorf("SessionID = %q, want ghost", s.SessionID)
	}
	if len(s.ToolCalls) != 0 || s.TotalInputTokens != 0 || len(s.Agents) != 0 {
		t.Errorf("expected empty session, got %+v", s)
	}
	if p.Stats().MissingSessions != 1 {
		t.Errorf("MissingSessions = %d, want 1", p.Stats().MissingSessions)
	}
}

func TestParseSession_NoExecDir(t *testing.T) {
	p := NewParser(t.TempDir(), nil)
	s := p.ParseSession("any")
	if len(s.ToolCalls) != 0 {
		t.Error("expected empty session without an execution directory")
	}
}

func TestParseSession_Agents(t *testing.T) {
	p, dir := newSessionParser(t)
	writeLines(t, filepath.Join(dir, "s1.jsonl"),
		`{"type":"assistant","message":{"usage":{"input_tokens":1,"output_tokens":1},"content":[{"type":"tool_use","name":"Task","input":{"description":"look around"}}]}}`,
	)
	writeLines(t, filepath.Join(dir, "s1", "agent-b.jsonl"),
		`{"type":"system","subtype":"init","model":"claude-haiku-4-5"}`,
		`{"type":"assistant","message":{"usage":{"input_tokens":40,"output_tokens":4},"content":[{"type":"tool_use","name":"Glob","input":{"pattern":"*.go"}},{"type":"tool_use","name":"Read","input":{"file_path":"/x"}}]}}`,
		`{"type":"assistant","parent_tool_use_id":"p","message":{"usage":{"input_tokens":2,"output_tokens":2},"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/y"}}]}}`,
	)
	writeLines(t, filepath.Join(dir, "s1", "agent-a.jsonl"),
		`{"type":"system","subtype":"init","model":"claude-sonnet-4-6"}`,
	)
	writeLines(t, filepath.Join(dir, "s1", "subagents", "agent-c.jsonl"),
		`{"type":"assistant","message":{"model":"claude-opus-4-1","usage":{"input_tokens":3,"output_tokens":3},"content":[]}}`,
	)
	writeLines(t, filepath.Join(dir, "s1", "notes.txt"), "ignored")

	s := p.ParseSession("s1")
	if len(s.Agents) != 3 {
		t.Fatalf("len(Agents) = %d, want 3", len(s.Agents))
	}

	a, b, c := s.Agents[0], s.Agents[1], s.Agents[2]
	if a.AgentID != "agent-a" || a.Tier != model.TierMid {
		t.Errorf("agent a = %s/%v, want agent-a/Sonnet", a.AgentID, a.Tier)
	}
	if b.AgentID != "agent-b" || b.Tier != model.TierCheap {
		t.Errorf("agent b = %s/%v, want agent-b/Explore/Haiku", b.AgentID, b.Tier)
	}
	if len(b.ToolCalls) != 3 {
		t.Errorf("agent b tool calls = %d, want 3 (all calls kept)", len(b.ToolCalls))
	}
	for i, tc := range b.ToolCalls {
		if tc.Index != i {
			t.Errorf("agent b call %d Index = %d", i, tc.Index)
		}
	}
	if b.TotalInputTokens != 42 || b.TotalOutputTokens != 6 {
		t.Errorf("agent b tokens = %d/%d, want 42/6", b.TotalInputTokens, b.TotalOutputTokens)
	}
	if c.AgentID != "agent-c" || c.Tier != model.TierUnknown {
		t.Errorf("agent c = %s/%v, want agent-c/unknown without an init record", c.AgentID, c.Tier)
	}
	if c.Model != "" {
		t.Errorf("agent c Model = %q, want empty", c.Model)
	}
}

func TestParseSession_AgentMalformedLinesSkipped(t *testing.T) {
	p, dir := newSessionParser(t)
	writeLines(t, filepath.Join(dir, "s1.jsonl"), `{"type":"user"}`)
	writeLines(t, filepath.Join(dir, "s1", "agent-m.jsonl"),
		`{"type":"system","subtype":"init","model":"claude-haiku-4-5"}`,
		`{"type":"assistant","message":{"usage":{"input_tokens":10,"output_tokens":1},"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/a"}}]}}`,
		`{"type":"assistant","message":{"usage":{"input_tokens":`,
		`{"type":"assistant","message":{"usage":{"input_tokens":5,"output_tokens":2},"content":[{"type":"tool_use","name":"Grep","input":{"pattern":"x"}}]}}`,
	)

	s := p.ParseSession("s1")
	if len(s.Agents) != 1 {
		t.Fatalf("len(Agents) = %d, want 1", len(s.Agents))
	}
	a := s.Agents[0]
	if a.TotalInputTokens != 15 || a.TotalOutputTokens != 3 {
		t.Errorf("tokens = %d/%d, want 15/3", a.TotalInputTokens, a.TotalOutputTokens)
	}
	if len(a.ToolCalls) != 2 || a.ToolCalls[0].Name != "Read" || a.ToolCalls[1].Name != "Grep" {
		t.Errorf("ToolCalls = %+v, want Read then Grep", a.ToolCalls)
	}
	if a.ToolCalls[1].Index != 1 {
		t.Errorf("second call Index = %d, want 1", a.ToolCalls[1].Index)
	}
	if p.Stats().SkippedLines != 1 {
		t.Errorf("SkippedLines = %d, want 1", p.Stats().SkippedLines)
	}
}

func TestParseOrchestratorLog_OverlongLineSkipped(t *testing.T) {
	huge := `{"type":"user","message":{"content":"` + strings.Repeat("x", 4096) + `"}}`
	path := writeLog(t,
		"=== Iteration 1/2 === t1",
		initLine("sess-a"),
		huge,
		"=== Iteration 2/2 === t2",
		initLine("sess-b"),
		"Result: done",
	)

	p := NewParser(t.TempDir(), nil)
	p.maxLine = 512
	iters, err := p.ParseOrchestratorLog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iters) != 2 {
		t.Fatalf("len(iters) = %d, want 2", len(iters))
	}
	if iters[1].SessionID != "sess-b" || iters[1].Number != 2 || iters[1].Result != "done" {
		t.Errorf("second iteration = %+v", iters[1])
	}
	if p.Stats().SkippedLines != 1 {
		t.Errorf("SkippedLines = %d, want 1", p.Stats().SkippedLines)
	}
	if p.Stats().Lines != 6 {
		t.Errorf("Lines = %d, want 6", p.Stats().Lines)
	}
}

func TestParseSession_OverlongLineSkipped(t *testing.T) {
	p, dir := newSessionParser(t)
	p.maxLine = 512
	writeLines(t, filepath.Join(dir, "s1.jsonl"),
		`{"type":"assistant","message":{"usage":{"input_tokens":1,"output_tokens":1},"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/a"}}]}}`,
		`{"type":"user","message":{"content":"`+strings.Repeat("y", 2048)+`"}}`,
		`{"type":"assistant","message":{"usage":{"input_tokens":2,"output_tokens":2},"content":[{"type":"tool_use","name":"Edit","input":{"file_path":"/a"}}]}}`,
	)

	s := p.ParseSession("s1")
	if s.TotalInputTokens != 3 || s.TotalOutputTokens != 3 {
		t.Errorf("tokens = %d/%d, want 3/3", s.TotalInputTokens, s.TotalOutputTokens)
	}
	if len(s.ToolCalls) != 2 {
		t.Errorf("len(ToolCalls) = %d, want 2", len(s.ToolCalls))
	}
}

func TestReadLines_NoTrailingNewline(t *testing.T) {
	p := NewParser(t.TempDir(), nil)
	var got []string
	err := p.readLines(strings.NewReader("one\r\ntwo\n\nthree"), func(line []byte) {
		got = append(got, string(line))
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"one", "two", "", "three"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestParseSession_AgentWithoutModelIsUnknown(t *testing.T) {
	p, dir := newSessionParser(t)
	writeLines(t, filepath.Join(dir, "s1.jsonl"), `{"type":"user"}`)
	writeLines(t, filepath.Join(dir, "s1", "agent-z.jsonl"),
		`{"type":"assistant","message":{"usage":{"input_tokens":1,"output_tokens":1},"content":[]}}`,
	)

	s := p.ParseSession("s1")
	if len(s.Agents) != 1 {
		t.Fatalf("len(Agents) = %d, want 1", len(s.Agents))
	}
	if s.Agents[0].Tier != model.TierUnknown {
		t.Errorf("Tier = %v, want unknown", s.Agents[0].Tier)
	}
}

func TestRecordResultText(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"string", `{"type":"result","result":"boom"}`, "boom"},
		{"absent", `{"type":"result"}`, ""},
		{"object", `{"type":"result","result":{"code":500}}`, `{"code":500}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := parseRecord([]byte(tt.line))
			if err != nil {
				t.Fatal(err)
			}
			if got := rec.ResultText(); got != tt.want {
				t.Errorf("ResultText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTopLevelType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"user", `{"type":"user","foo":"bar"}`, "user"},
		{"assistant", `{"type":"assistant","message":{}}`, "assistant"},
		{"system", `{"type": "system","subtype":"init"}`, "system"},
		{"result", `{"type":"result","is_error":true}`, "result"},
		{"nested type ignored", `{"message":{"content":[{"type":"tool_use"}]},"type":"assistant"}`, "assistant"},
		{"unknown type", `{"type":"progress","data":{}}`, ""},
		{"type as value", `{"kind":"type","type":"system"}`, "system"},
		{"no type field", `{"message":"hello"}`, ""},
		{"empty", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTopLevelType([]byte(tt.input))
			if got != tt.want {
				t.Errorf("extractTopLevelType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// FuzzExtractTopLevelType checks that the byte-level scanner never panics
// on arbitrary input, since it runs over untrusted files.
func FuzzExtractTopLevelType(f *testing.F) {
	f.Add([]byte(`{"type":"system","subtype":"init","session_id":"x"}`))
	f.Add([]byte(`{"type":"assistant","message":{"content":[{"type":"tool_use"}]}}`))
	f.Add([]byte(`{"type":"result","is_error":true}`))
	f.Add([]byte(`{"data":{"type":"nested"},"type":"user"}`))
	f.Add([]byte(`not json`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"type":null}`))
	f.Add([]byte(`{"type":123}`))
	f.Add([]byte(``))
	f.Add([]byte(`{"type":"user`))

	f.Fuzz(func(t *testing.T, data []byte) {
		switch result := extractTopLevelType(data); result {
		case "", "user", "assistant", "system", "result":
		default:
			t.Errorf("unexpected type %q from input %q", result, data)
		}
	})
}
