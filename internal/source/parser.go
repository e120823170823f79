// Package source discovers and parses ralph orchestrator logs and the
// Claude Code transcripts they point at.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/theirongolddev/ralphopt/internal/model"
)

const (
	initialLineBuf = 64 * 1024
	maxLineSize    = 16 * 1024 * 1024
)

var (
	iterationHeader = regexp.MustCompile(`^=== Iteration (\d+)/(\d+) === (.+)`)
	resultPrefix    = []byte("Result:")
)

// Parser reconstructs iterations, sessions, and subagents from the three
// log tiers. It remembers the execution directory announced by the first
// init record of the orchestrator log, so ParseOrchestratorLog must run
// before ParseSession.
type Parser struct {
	projectsDir string
	execDir     string
	maxLine     int
	logger      *slog.Logger
	stats       Stats
}

// NewParser returns a Parser that resolves transcripts under projectsDir.
// A nil logger discards diagnostics.
func NewParser(projectsDir string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{projectsDir: projectsDir, maxLine: maxLineSize, logger: logger}
}

// ExecDir returns the encoded execution directory, or "" before any init record was seen.
func (p *Parser) ExecDir() string { return p.execDir }

// SetExecDir overrides the execution directory key.
func (p *Parser) SetExecDir(dir string) { p.execDir = dir }

// Stats returns line counters accumulated so far.
func (p *Parser) Stats() Stats { return p.stats }

// ParseOrchestratorLog reads a ralph log and returns one Iteration per init
// record, in file order. Lines that are neither headers, JSON records, nor
// "Result:" lines are ignored; malformed JSON is skipped.
func (p *Parser) ParseOrchestratorLog(path string) ([]model.Iteration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	iters, err := p.parseOrchestrator(f)
	if err != nil {
		return iters, fmt.Errorf("reading %s: %w", path, err)
	}
	return iters, nil
}

func (p *Parser) parseOrchestrator(r io.Reader) ([]model.Iteration, error) {
	var (
		iters     []model.Iteration
		number    int
		total     int
		timestamp string
	)

	err := p.readLines(r, func(line []byte) {
		if m := iterationHeader.FindSubmatch(line); m != nil {
			number, _ = strconv.Atoi(string(m[1]))
			total, _ = strconv.Atoi(string(m[2]))
			timestamp = string(m[3])
			return
		}

		if len(line) == 0 || line[0] != '{' {
			if bytes.HasPrefix(line, resultPrefix) && len(iters) > 0 {
				iters[len(iters)-1].Result = strings.TrimSpace(string(line[len(resultPrefix):]))
			}
			return
		}

		switch extractTopLevelType(line) {
		case "system", "result":
		default:
			return
		}

		rec, err := parseRecord(line)
		if err != nil {
			p.stats.SkippedLines++
			return
		}

		if rec.IsInit() {
			if p.execDir == "" && rec.Cwd != "" {
				p.execDir = EncodeProjectDir(rec.Cwd)
				p.logger.Debug("execution directory resolved", "cwd", rec.Cwd, "dir", p.execDir)
			}
			iters = append(iters, model.Iteration{
				Number:    number,
				Total:     total,
				SessionID: rec.SessionID,
				Timestamp: timestamp,
			})
		}

		if rec.Type == "result" && rec.IsError && len(iters) > 0 {
			last := &iters[len(iters)-1]
			last.IsError = true
			last.Result = rec.ResultText()
		}
	})
	return iters, err
}

// ParseSession reconstructs the transcript of sessionID together with its
// subagents. A missing transcript yields an empty Session.
func (p *Parser) ParseSession(sessionID string) model.Session {
	session := model.Session{SessionID: sessionID}
	if p.execDir == "" {
		p.stats.MissingSessions++
		return session
	}

	sessionDir := filepath.Join(p.projectsDir, p.execDir)
	path := filepath.Join(sessionDir, sessionID+".jsonl")

	f, err := os.Open(path)
	if err != nil {
		p.stats.MissingSessions++
		p.logger.Debug("session transcript unavailable", "session", sessionID, "err", err)
		return session
	}
	counter := 0
	err = p.scanTranscript(f, func(rec Record) {
		if rec.Type != "assistant" || rec.Message == nil {
			return
		}
		in, out := rec.Message.Usage.Input(), rec.Message.Usage.Output()
		session.TotalInputTokens += in
		session.TotalOutputTokens += out

		for _, block := range rec.Message.ToolUses() {
			tc := model.ToolCall{
				Name:         block.Name,
				Input:        block.InputMap(),
				OutputTokens: out,
				Index:        counter,
			}
			if rec.ParentToolUseID == nil {
				session.ToolCalls = append(session.ToolCalls, tc)
			}
			counter++
		}
	})
	_ = f.Close()
	if err != nil {
		p.logger.Warn("session transcript truncated", "session", sessionID, "err", err)
	}

	for _, af := range FindAgentFiles(sessionDir, sessionID) {
		agent, err := p.parseAgentFile(af)
		if err != nil {
			p.logger.Debug("skipping agent transcript", "path", af.Path, "err", err)
			continue
		}
		session.Agents = append(session.Agents, agent)
	}

	return session
}

// parseAgentFile reads a subagent transcript. Unlike the top-level
// transcript every tool call is kept, and the index counter starts over.
// The tier comes from the first init record only; without one it stays
// unknown.
func (p *Parser) parseAgentFile(af AgentFile) (model.AgentSession, error) {
	agent := model.AgentSession{AgentID: af.AgentID, Tier: model.TierUnknown}

	f, err := os.Open(af.Path)
	if err != nil {
		return agent, err
	}
	defer func() { _ = f.Close() }()
	p.stats.AgentFiles++

	var (
		counter int
		sawInit bool
	)
	err = p.scanTranscript(f, func(rec Record) {
		if rec.IsInit() && !sawInit {
			sawInit = true
			agent.Model = rec.Model
			agent.Tier = model.ClassifyTier(rec.Model)
			return
		}
		if rec.Type != "assistant" || rec.Message == nil {
			return
		}
		in, out := rec.Message.Usage.Input(), rec.Message.Usage.Output()
		agent.TotalInputTokens += in
		agent.TotalOutputTokens += out

		for _, block := range rec.Message.ToolUses() {
			agent.ToolCalls = append(agent.ToolCalls, model.ToolCall{
				Name:         block.Name,
				Input:        block.InputMap(),
				OutputTokens: out,
				Index:        counter,
			})
			counter++
		}
	})
	if err != nil {
		p.logger.Warn("agent transcript truncated", "path", af.Path, "err", err)
	}
	return agent, nil
}

// scanTranscript decodes each relevant JSON line of a transcript and hands
// it to fn. Malformed lines are counted and skipped. The returned error is
// only set when reading stopped early.
func (p *Parser) scanTranscript(r io.Reader, fn func(Record)) error {
	return p.readLines(r, func(line []byte) {
		if len(line) == 0 || line[0] != '{' {
			return
		}

		switch extractTopLevelType(line) {
		case "assistant", "system":
		default:
			return
		}

		rec, err := parseRecord(line)
		if err != nil {
			p.stats.SkippedLines++
			return
		}
		fn(rec)
	})
}

// readLines calls fn with every line of r, without its line terminator.
// The slice is only valid during the call. A line longer than the parser's
// limit is dropped whole and counted as skipped, and reading carries on
// with the next line.
func (p *Parser) readLines(r io.Reader, fn func([]byte)) error {
	br := bufio.NewReaderSize(r, initialLineBuf)
	limit := p.maxLine
	if limit <= 0 {
		limit = maxLineSize
	}

	var (
		buf      []byte
		overlong bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if !overlong {
			if len(buf)+len(chunk) > limit+1 {
				overlong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		switch {
		case overlong:
			p.stats.Lines++
			p.stats.SkippedLines++
			p.logger.Warn("skipping overlong line", "limit", limit)
		case err == nil || len(buf) > 0:
			p.stats.Lines++
			fn(bytes.TrimSuffix(bytes.TrimSuffix(buf, []byte("\n")), []byte("\r")))
		}
		buf = buf[:0]
		overlong = false

		if err != nil {
			return nil
		}
	}
}

// parseRecord decodes one JSON line.
func parseRecord(line []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a JSONL line.
// Tracks brace depth and string boundaries so nested "type" keys (such as
// those of content blocks) are ignored. Early-exits once found.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				val, isKey := classifyType(line, i+len(typeKey))
				if isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key (expects : then value).
// isKey=false means "type" appeared as a value, not a key.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	v := string(line[i : i+end])
	switch v {
	case "assistant", "user", "system", "result":
		return v, true
	}
	return "", true
}

// skipJSONString advances past a JSON string starting at the opening quote.
//
//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}
