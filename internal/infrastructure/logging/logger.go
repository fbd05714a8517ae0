// Package logging provides structured logging utilities.
//
// Console logs are formatted in Maven-style with colors:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value
//
// A run can also tee its log into <dir>/<prefix>_<YYYY-MM-DD_HH-MM-SS>.log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AlanFontoura/myscripts/internal/infrastructure/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewHandler builds a handler writing to w in the configured format.
func NewHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		return slog.NewTextHandler(w, opts)
	}
	return NewMavenHandler(w, opts)
}

// NewLogger creates a structured logger based on config
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return slog.New(NewHandler(os.Stdout, cfg))
}

// NewLoggerWithSystem creates a logger with a system prefix (e.g., "navhistory", "positions")
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	return NewLogger(cfg).With("system", system)
}

// NewRunLogger logs to stdout and, when cfg.Dir is set, to a new timestamped
// file in that directory. The returned close function flushes the file.
func NewRunLogger(cfg config.LoggingConfig, system string) (*slog.Logger, func() error, error) {
	console := NewHandler(os.Stdout, cfg)
	if cfg.Dir == "" {
		return slog.New(console).With("system", system), func() error { return nil }, nil
	}

	path := LogFileName(cfg.Dir, system, time.Now())
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file: %w", err)
	}

	fileHandler := NewMavenHandler(f, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	logger := slog.New(NewTeeHandler(console, fileHandler)).With("system", system)
	logger.Debug("Logging to file", "path", path)
	return logger, f.Close, nil
}

// LogFileName returns <dir>/<prefix>_<YYYY-MM-DD_HH-MM-SS>.log.
func LogFileName(dir, prefix string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", prefix, at.Format("2006-01-02_15-04-05")))
}
