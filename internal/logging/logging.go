// Package logging configures the zerolog logger used across hostdeps and
// carries it through context.Context so every component logs with the same
// sinks and run identifiers.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Level is a zerolog level name ("debug", "info", ...). Invalid values fall back to info.
	Level string
	// File, when set, receives a JSON copy of every log line.
	File string
	// Console is the human-readable sink. Defaults to os.Stderr.
	Console io.Writer
}

// Logger wraps a zerolog.Logger with the file handle it may own.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds a logger writing to the console and, if configured, to a log file.
func New(opts Options) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}}

	l := &Logger{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		writers = append(writers, f)
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// WithContext returns a copy of ctx carrying logger.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx. A disabled logger is returned
// when none was attached, so callers never need a nil check.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// Component returns the context logger tagged with a component name.
func Component(ctx context.Context, name string) *zerolog.Logger {
	l := FromContext(ctx).With().Str("component", name).Logger()
	return &l
}
