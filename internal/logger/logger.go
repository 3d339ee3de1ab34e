// Package logger builds the structured loggers used by the tzbundle command.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config selects where log records go.
type Config struct {
	// Path is the log file. Empty means the Writer passed to Setup.
	Path  string
	Debug bool
}

// New returns a JSON logger writing to w. Timestamps are UTC RFC 3339 with
// nanoseconds. Debug enables debug records and source locations.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	addSource := false
	if debug {
		level = slog.LevelDebug
		addSource = true
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
			}
			return a
		},
	})
	return slog.New(h)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Setup returns a logger for cfg and a cleanup function closing the log
// file, if one was opened. Records go to fallback when cfg.Path is empty.
func Setup(cfg Config, fallback io.Writer) (*slog.Logger, func() error, error) {
	if cfg.Path == "" {
		return New(fallback, cfg.Debug), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return Discard(), nil, err
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return Discard(), nil, err
	}
	l := New(f, cfg.Debug)
	l.Info("logger.initialized", "path", cfg.Path, "debug", cfg.Debug)
	return l, f.Close, nil
}
