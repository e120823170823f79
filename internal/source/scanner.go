package source

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultLogGlob matches the files the ralph loop writes per run.
const DefaultLogGlob = "ralph-*.log"

// ErrNoLogs is returned when no orchestrator log can be found.
var ErrNoLogs = errors.New("no ralph log files found")

// FindLatestLog returns the most recently modified file in logsDir matching
// pattern. An empty pattern means DefaultLogGlob.
func FindLatestLog(logsDir, pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultLogGlob
	}
	matches, err := filepath.Glob(filepath.Join(logsDir, pattern))
	if err != nil {
		return "", err
	}

	var (
		latest  string
		latestT int64
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		t := info.ModTime().UnixNano()
		if latest == "" || t > latestT || (t == latestT && m > latest) {
			latest, latestT = m, t
		}
	}
	if latest == "" {
		return "", ErrNoLogs
	}
	return latest, nil
}

// EncodeProjectDir converts a working directory into the directory name
// Claude Code stores its transcripts under: "/" and "_" both become "-".
//
//	"/home/trevor/pub_musings/peekaboo" -> "-home-trevor-pub-musings-peekaboo"
func EncodeProjectDir(cwd string) string {
	return strings.NewReplacer("/", "-", "_", "-").Replace(cwd)
}

// FindAgentFiles lists subagent transcripts of a session. Two layouts exist:
//
//	<sessionDir>/<sessionID>/<agent>.jsonl
//	<sessionDir>/<sessionID>/subagents/<agent>.jsonl
//
// Results are sorted by path; an agent id present in both layouts is listed once.
func FindAgentFiles(sessionDir, sessionID string) []AgentFile {
	agentDir := filepath.Join(sessionDir, sessionID)
	info, err := os.Stat(agentDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	var paths []string
	for _, dir := range []string{agentDir, filepath.Join(agentDir, "subagents")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	seen := make(map[string]struct{}, len(paths))
	files := make([]AgentFile, 0, len(paths))
	for _, path := range paths {
		id := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		files = append(files, AgentFile{Path: path, AgentID: id})
	}
	return files
}

var projectParents = map[string]bool{
	"projects": true, "repos": true, "src": true,
	"code": true, "workspace": true, "dev": true,
}

// ProjectName turns an encoded execution directory back into a short label
// for report headers: the segments after the last well-known parent
// directory, or the final segment when none matches.
//
//	"-home-dev-projects-ralph-loop" -> "ralph-loop"
func ProjectName(execDir string) string {
	parts := strings.Split(strings.Trim(execDir, "-"), "-")
	for i := len(parts) - 2; i >= 0; i-- {
		if projectParents[strings.ToLower(parts[i])] {
			return strings.Join(parts[i+1:], "-")
		}
	}
	return parts[len(parts)-1]
}
