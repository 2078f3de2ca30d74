package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenekeeper/internal/config"
)

// RunLogPattern matches the per-run log files written to the log directory.
const RunLogPattern = "scenekeeper-*.log"

const runLogStampLayout = "20060102T150405"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	Writer      io.Writer
	Development bool
}

// New constructs a slog logger using the provided options. Output defaults
// to stderr so job results printed on stdout stay machine readable.
func New(opts Options) (*slog.Logger, error) {
	handler, err := newHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

func newHandler(opts Options) (slog.Handler, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "console":
		return newConsoleHandler(writer, levelVar, addSource), nil
	case "json":
		return newJSONHandler(writer, levelVar, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// Session is a configured logger together with the run log file it tees to.
type Session struct {
	Logger *slog.Logger
	// Path is the run log location, empty when no log directory is configured.
	Path string
	file *os.File
}

// Close flushes and closes the run log file.
func (s *Session) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// NewFromConfig creates the CLI logger. Console output follows the configured
// level and format; the run log file always receives debug-level JSON so a
// failed run can be diagnosed after the fact.
func NewFromConfig(cfg *config.Config, started time.Time) (*Session, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console"})
		if err != nil {
			return nil, err
		}
		return &Session{Logger: logger}, nil
	}

	console, err := newHandler(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}

	logDir := strings.TrimSpace(cfg.Paths.LogDir)
	if logDir == "" {
		return &Session{Logger: slog.New(console)}, nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}

	if started.IsZero() {
		started = time.Now()
	}
	path := filepath.Join(logDir, "scenekeeper-"+started.Format(runLogStampLayout)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	fileLevel := new(slog.LevelVar)
	fileLevel.Set(slog.LevelDebug)
	handler := TeeHandler(console, newJSONHandler(file, fileLevel, true))
	return &Session{Logger: slog.New(handler), Path: path, file: file}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
