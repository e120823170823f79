package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/detect"
	"github.com/theirongolddev/ralphopt/internal/model"
	"github.com/theirongolddev/ralphopt/internal/source"
)

var (
	// ErrLogNotFound is returned when an explicit log path does not exist.
	ErrLogNotFound = errors.New("log file not found")
	// ErrNoIterations is returned when a log holds no init records.
	ErrNoIterations = errors.New("no iterations found")
)

// Options configures one analysis run.
type Options struct {
	LogPath     string // explicit log; empty selects the newest in LogsDir
	LogsDir     string
	LogGlob     string
	ProjectsDir string
	Last        int                 // keep only the final N iterations when > 0
	Pricing     config.PricingTable // zero value selects config.DefaultPricing
	Logger      *slog.Logger
}

// Result holds the output of the full analysis pipeline.
type Result struct {
	model.Analysis
	Stats source.Stats
}

// ProgressFunc is called after each session is parsed.
// current is the number of sessions processed so far, total is the total count.
type ProgressFunc func(current, total int)

// ResolveLog returns the log to analyse: path when given and present,
// otherwise the newest log in logsDir.
func ResolveLog(path, logsDir, glob string) (string, error) {
	if path == "" {
		latest, err := source.FindLatestLog(logsDir, glob)
		if err != nil {
			return "", fmt.Errorf("%w in %s", err, logsDir)
		}
		return latest, nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrLogNotFound, path)
	}
	return path, nil
}

// Analyze parses the orchestrator log, reconstructs every referenced
// session in iteration order, prices it, and runs the pattern detectors.
// Sessions are processed one at a time; ctx is checked between them.
func Analyze(ctx context.Context, opts Options, progressFn ProgressFunc) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pricing := opts.Pricing
	if pricing == (config.PricingTable{}) {
		pricing = config.DefaultPricing()
	}

	logPath, err := ResolveLog(opts.LogPath, opts.LogsDir, opts.LogGlob)
	if err != nil {
		return nil, err
	}

	parser := source.NewParser(opts.ProjectsDir, logger)
	iterations, err := parser.ParseOrchestratorLog(logPath)
	if err != nil {
		return nil, err
	}
	if len(iterations) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoIterations, logPath)
	}
	if opts.Last > 0 && opts.Last < len(iterations) {
		iterations = iterations[len(iterations)-opts.Last:]
	}

	total := 0
	for _, it := range iterations {
		if it.SessionID != "" {
			total++
		}
	}

	result := &Result{
		Analysis: model.Analysis{
			LogPath:    logPath,
			Project:    source.ProjectName(parser.ExecDir()),
			Iterations: iterations,
			Results:    make([]model.SessionResult, 0, total),
		},
	}

	for _, it := range iterations {
		if it.SessionID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		session := parser.ParseSession(it.SessionID)
		result.Results = append(result.Results, model.SessionResult{
			Iteration: it,
			Session:   session,
			Cost:      EstimateCost(session, pricing),
		})
		if progressFn != nil {
			progressFn(len(result.Results), total)
		}
	}

	result.Patterns = detect.DetectAll(result.Sessions())
	result.Stats = parser.Stats()

	logger.Info("analysis complete",
		"log", logPath,
		"iterations", len(iterations),
		"sessions", len(result.Results),
		"skipped_lines", result.Stats.SkippedLines,
		"missing_sessions", result.Stats.MissingSessions,
	)
	return result, nil
}
