package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/pipeline"
	"github.com/theirongolddev/ralphopt/internal/source"
)

const testCwd = "/work/app"

type env struct {
	root        string
	logsDir     string
	projectsDir string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	e := env{
		root:        root,
		logsDir:     filepath.Join(root, "logs"),
		projectsDir: filepath.Join(root, "projects"),
	}
	require.NoError(t, os.MkdirAll(e.logsDir, 0o755))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	return e
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func toolTurn(tool, key, value string) string {
	return fmt.Sprintf(`{"type":"assistant","message":{"usage":{"input_tokens":1000,"output_tokens":100},`+
		`"content":[{"type":"tool_use","name":%q,"input":{%q:%q}}]}}`, tool, key, value)
}

// writeLoop writes a two-iteration log. sess-a edits before testing;
// sess-b tests first.
func (e env) writeLoop(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(e.projectsDir, source.EncodeProjectDir(testCwd))
	writeLines(t, filepath.Join(dir, "sess-a.jsonl"),
		toolTurn("Read", "file_path", "/work/app/PLAN.md"),
		toolTurn("Edit", "file_path", "/work/app/main.go"),
		toolTurn("Bash", "command", "go test ./..."),
	)
	writeLines(t, filepath.Join(dir, "sess-b.jsonl"),
		toolTurn("Bash", "command", "go test ./..."),
		toolTurn("Read", "file_path", "/work/app/PLAN.md"),
		toolTurn("Edit", "file_path", "/work/app/PLAN.md"),
	)
	logPath := filepath.Join(e.logsDir, "ralph-1.log")
	writeLines(t, logPath,
		"=== Iteration 1/2 === t1",
		`{"type":"system","subtype":"init","session_id":"sess-a","cwd":"`+testCwd+`"}`,
		"=== Iteration 2/2 === t2",
		`{"type":"system","subtype":"init","session_id":"sess-b","cwd":"`+testCwd+`"}`,
	)
	return logPath
}

func resetFlags() {
	flagConfig, flagLogsDir, flagProjectsDir, flagLogLevel, flagLogFile = "", "", "", "", ""
	flagLast, flagQuiet = 0, true
	flagDetailed, flagJSON, flagFormat, flagSave = false, false, cli.FormatText, false
	sessionsLimit, sessionsByCost = 0, false
	checkFirstMutation, checkReadBefore, checkNoTests = "", nil, false
	historyLimit, historyDelete = 20, 0
}

func run(t *testing.T, e env, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, e, filepath.Join(e.root, "missing.toml"), args...)
}

func runWithConfig(t *testing.T, e env, configFile string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	base := []string{
		"--config", configFile,
		"--logs-dir", e.logsDir,
		"--projects-dir", e.projectsDir,
		"--quiet",
	}
	rootCmd.SetArgs(append(args, base...))
	rootCmd.SetOut(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoot_JSONReport(t *testing.T) {
	e := newEnv(t)
	e.writeLoop(t)

	out, err := run(t, e, "--json")
	require.NoError(t, err)

	var rep cli.StructuredReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 2, rep.Iterations)
	assert.Equal(t, 2, rep.Sessions)
	assert.Equal(t, int64(6000), rep.TotalInputTokens)
	assert.Len(t, rep.PerSession, 2)
	assert.Equal(t, "sess-a", rep.PerSession[0].SessionID)
}

func TestRoot_BrokenConfigKeepsFlagDirs(t *testing.T) {
	e := newEnv(t)
	e.writeLoop(t)
	bad := filepath.Join(e.root, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[paths\nlogs_dir = "), 0o600))

	out, err := runWithConfig(t, e, bad, "--json")
	require.NoError(t, err)

	var rep cli.StructuredReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 2, rep.Sessions)
	assert.Equal(t, e.logsDir, cfg.Paths.LogsDir)
	assert.Equal(t, e.projectsDir, cfg.Paths.ProjectsDir)
}

func TestRoot_TextReport(t *testing.T) {
	e := newEnv(t)
	logPath := e.writeLoop(t)

	out, err := run(t, e, logPath, "--detailed")
	require.NoError(t, err)
	assert.Contains(t, out, "Ralph Optimizer Report")
	assert.Contains(t, out, "Log: "+logPath)
	assert.Contains(t, out, "DETAILED SESSION BREAKDOWN")
}

func TestRoot_UnknownFormat(t *testing.T) {
	e := newEnv(t)
	e.writeLoop(t)
	_, err := run(t, e, "--format", "xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestRoot_Diagnostics(t *testing.T) {
	e := newEnv(t)

	_, err := run(t, e)
	require.Error(t, err)
	assert.Equal(t, "No ralph log files found in "+e.logsDir, err.Error())
	assert.ErrorIs(t, err, source.ErrNoLogs)

	missing := filepath.Join(e.root, "nope.log")
	_, err = run(t, e, missing)
	assert.Equal(t, "Log file not found: "+missing, err.Error())
	assert.ErrorIs(t, err, pipeline.ErrLogNotFound)

	empty := filepath.Join(e.logsDir, "ralph-empty.log")
	writeLines(t, empty, "nothing here")
	_, err = run(t, e, empty)
	assert.Equal(t, "No iterations found in "+empty, err.Error())
}

func TestSaveAndHistory(t *testing.T) {
	e := newEnv(t)
	e.writeLoop(t)

	_, err := run(t, e, "--save", "--json")
	require.NoError(t, err)

	out, err := run(t, e, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "RUN HISTORY")
	assert.Contains(t, out, "ralph-1.log")
}

func TestCheck(t *testing.T) {
	e := newEnv(t)
	e.writeLoop(t)

	out, err := run(t, e, "check")
	require.Error(t, err, "sess-a edits before testing")
	assert.Equal(t, "1 of 2 checks failed", err.Error())
	assert.Contains(t, out, "mutated first")

	_, err = run(t, e, "check", "--skip-tests-check", "--read-before", "PLAN.md:main.go")
	assert.NoError(t, err)

	_, err = run(t, e, "check", "--skip-tests-check", "--first-mutation", "PLAN.md")
	assert.ErrorContains(t, err, "1 of 2 checks failed")
}

func TestHistoryLogWidth(t *testing.T) {
	assert.Equal(t, 16, historyLogWidth(80))
	assert.Equal(t, 36, historyLogWidth(120))
	assert.Equal(t, 48, historyLogWidth(300))
}

func TestParseReadBefore(t *testing.T) {
	got, err := parseReadBefore([]string{"a.md:b.go"})
	require.NoError(t, err)
	assert.Equal(t, []readOrder{{before: "a.md", after: "b.go"}}, got)

	for _, bad := range []string{"nocolon", ":b", "a:"} {
		_, err := parseReadBefore([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestSessionsAndCosts(t *testing.T) {
	e := newEnv(t)
	e.writeLoop(t)

	out, err := run(t, e, "sessions", "--by-cost")
	require.NoError(t, err)
	assert.Contains(t, out, "SESSIONS")
	assert.Contains(t, out, "sess-a")

	out, err = run(t, e, "costs")
	require.NoError(t, err)
	assert.Contains(t, out, "Main sessions")
	assert.Contains(t, out, "$15.00 / $75.00")
}
