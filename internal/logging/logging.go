// Package logging provides structured logging setup for ralphopt.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/theirongolddev/ralphopt/internal/config"
)

// New creates a *slog.Logger from the given Logging config. Diagnostics go
// to stderr as text; when a file is configured they are also written, as
// JSON, to a size-rotated log file. The returned closer flushes that file.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	level := parseLevel(cfg.Level)
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	if cfg.File == "" {
		return slog.New(console), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   config.ExpandHome(cfg.File),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(fanout{console, fileHandler}), file
}

// NewFileOnly is New without the stderr sink, for full-screen callers
// that own the terminal. Without a configured file it discards everything.
func NewFileOnly(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	if cfg.File == "" {
		return slog.New(slog.DiscardHandler), nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   config.ExpandHome(cfg.File),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})), file
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
