// Package cmd implements the ralphopt CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ralphopt/internal/cli"
	"github.com/theirongolddev/ralphopt/internal/config"
	"github.com/theirongolddev/ralphopt/internal/logging"
	"github.com/theirongolddev/ralphopt/internal/pipeline"
	"github.com/theirongolddev/ralphopt/internal/source"
)

var (
	flagConfig      string
	flagLogsDir     string
	flagProjectsDir string
	flagLogLevel    string
	flagLogFile     string
	flagLast        int
	flagQuiet       bool

	flagDetailed bool
	flagJSON     bool
	flagFormat   string
	flagSave     bool
)

// Resolved once per invocation by the persistent pre-run hook.
var (
	cfg       = config.DefaultConfig()
	logger    = slog.New(slog.DiscardHandler)
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "ralphopt [log-file]",
	Short: "Ralph loop log analyzer",
	Long: "Analyze a ralph orchestrator log together with the Claude session transcripts it references:\n" +
		"estimated cost per session, tool-call distribution, and waste patterns with suggestions.",
	Args:               cobra.MaximumNArgs(1),
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  loadRuntime,
	PersistentPostRunE: closeRuntime,
	RunE:               runAnalyze,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	pf.StringVar(&flagLogsDir, "logs-dir", "", "Directory searched for ralph-*.log files")
	pf.StringVar(&flagProjectsDir, "projects-dir", "", "Claude projects directory holding session transcripts")
	pf.StringVar(&flagLogLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFile, "log-file", "", "Also write diagnostics to this rotating file")
	pf.IntVar(&flagLast, "last", 0, "Only analyze the last N iterations")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")

	rootCmd.Flags().BoolVar(&flagDetailed, "detailed", false, "Append per-session breakdowns")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "Shorthand for --format json")
	rootCmd.Flags().StringVar(&flagFormat, "format", cli.FormatText, "Output format: text, json, yaml")
	rootCmd.Flags().BoolVar(&flagSave, "save", false, "Save this run's totals to the history database")
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

// loadRuntime resolves configuration and logging. Flags override the config
// file; a broken config file is reported and defaults are used.
func loadRuntime(_ *cobra.Command, _ []string) error {
	loaded, cfgErr := config.LoadFrom(configPath())
	cfg = loaded
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	if flagLogsDir != "" {
		cfg.Paths.LogsDir = config.ExpandHome(flagLogsDir)
	}
	if flagProjectsDir != "" {
		cfg.Paths.ProjectsDir = config.ExpandHome(flagProjectsDir)
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFile != "" {
		cfg.Logging.File = flagLogFile
	}

	logger, logCloser = logging.New(cfg.Logging)
	if cfgErr != nil {
		logger.Warn("config unusable, using defaults", "path", configPath(), "err", cfgErr)
	}
	return nil
}

func closeRuntime(_ *cobra.Command, _ []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// loadError names the paths involved in a failed analysis.
type loadError struct {
	err     error
	logPath string
	logsDir string
}

func (e *loadError) Error() string {
	switch {
	case errors.Is(e.err, source.ErrNoLogs):
		return "No ralph log files found in " + e.logsDir
	case errors.Is(e.err, pipeline.ErrLogNotFound):
		return "Log file not found: " + e.logPath
	case errors.Is(e.err, pipeline.ErrNoIterations):
		return "No iterations found in " + e.logPath
	}
	return e.err.Error()
}

func (e *loadError) Unwrap() error { return e.err }

// analysisOptions builds pipeline options from the resolved config.
func analysisOptions(args []string) pipeline.Options {
	opts := pipeline.Options{
		LogsDir:     cfg.Paths.LogsDir,
		LogGlob:     cfg.Paths.LogGlob,
		ProjectsDir: cfg.Paths.ProjectsDir,
		Last:        flagLast,
		Pricing:     cfg.PricingTable(),
		Logger:      logger,
	}
	if len(args) > 0 {
		opts.LogPath = args[0]
	}
	return opts
}

// loadAnalysis is the shared analysis path used by all report commands.
func loadAnalysis(ctx context.Context, args []string) (*pipeline.Result, error) {
	opts := analysisOptions(args)

	logPath, err := pipeline.ResolveLog(opts.LogPath, opts.LogsDir, opts.LogGlob)
	if err != nil {
		return nil, &loadError{err: err, logPath: opts.LogPath, logsDir: opts.LogsDir}
	}
	opts.LogPath = logPath

	showProgress := !flagQuiet && cli.IsTerminal(os.Stderr)
	progressFn := func(current, total int) {
		if showProgress {
			fmt.Fprintf(os.Stderr, "\r  Parsing sessions %s", cli.RenderProgressBar(current, total, 20))
		}
	}

	res, err := pipeline.Analyze(ctx, opts, progressFn)
	if showProgress {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	if err != nil {
		return nil, &loadError{err: err, logPath: logPath, logsDir: opts.LogsDir}
	}
	if res.Stats.SkippedLines > 0 || res.Stats.MissingSessions > 0 {
		logger.Debug("input gaps",
			"skipped_lines", res.Stats.SkippedLines,
			"missing_sessions", res.Stats.MissingSessions)
	}
	return res, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format := flagFormat
	if flagJSON {
		format = cli.FormatJSON
	}
	switch format {
	case cli.FormatText, cli.FormatJSON, cli.FormatYAML:
	default:
		return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
	}

	res, err := loadAnalysis(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		rep := newReporter()
		if err := rep.Summary(out, res.Analysis); err != nil {
			return err
		}
		if flagDetailed {
			if err := rep.DetailedHeader(out); err != nil {
				return err
			}
			for _, r := range res.Results {
				if err := rep.Detailed(out, r); err != nil {
					return err
				}
			}
		}
	} else if err := cli.WriteStructured(out, res.Analysis, format); err != nil {
		return err
	}

	if flagSave || cfg.History.AutoSave {
		if id, err := saveRun(res); err != nil {
			logger.Warn("could not save run history", "err", err)
		} else {
			logger.Info("saved run", "id", id, "db", cfg.HistoryPath())
		}
	}
	return nil
}

func newReporter() *cli.Reporter {
	rep := cli.NewReporter(cli.IsTerminal(os.Stdout))
	rep.DetailLimit = cfg.Report.DetailLimit
	rep.TopTools = cfg.Report.TopTools
	return rep
}
