// Package logger provides structured logging for the mobileraker companion.
//
// The package wraps log/slog with a JSON handler writing to stderr so that
// stdout stays clean for commands that output data (e.g. version --format
// json). Initialize installs the handler as the process-wide default; the
// package-level helpers log through whatever default is installed, so
// libraries can use them without holding a logger instance.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Option configures the handler built by NewHandler.
type Option func(*handlerConfig)

type handlerConfig struct {
	level  slog.Leveler
	writer io.Writer
}

// WithLevel sets the minimum record level emitted by the handler.
func WithLevel(level slog.Leveler) Option {
	return func(cfg *handlerConfig) {
		cfg.level = level
	}
}

// WithWriter directs handler output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(cfg *handlerConfig) {
		cfg.writer = w
	}
}

// NewHandler returns a JSON slog.Handler configured by opts.
func NewHandler(opts ...Option) slog.Handler {
	cfg := &handlerConfig{
		level:  slog.LevelInfo,
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return slog.NewJSONHandler(cfg.writer, &slog.HandlerOptions{
		Level: cfg.level,
	})
}

// Initialize installs a handler built from opts as the process-wide default
// logger used by slog and by the package-level helpers.
func Initialize(opts ...Option) {
	slog.SetDefault(slog.New(NewHandler(opts...)))
}

// Debug logs a message at debug level with structured attributes.
func Debug(msg string, args ...any) {
	slog.Default().Debug(msg, args...)
}

// Info logs a message at info level with structured attributes.
func Info(msg string, args ...any) {
	slog.Default().Info(msg, args...)
}

// Warn logs a message at warn level with structured attributes.
func Warn(msg string, args ...any) {
	slog.Default().Warn(msg, args...)
}

// Error logs a message at error level with structured attributes.
func Error(msg string, args ...any) {
	slog.Default().Error(msg, args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) {
	slog.Default().Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) {
	slog.Default().Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) {
	slog.Default().Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) {
	slog.Default().Error(fmt.Sprintf(format, args...))
}

// Fatalf logs a formatted message at error level and exits the process.
func Fatalf(format string, args ...any) {
	slog.Default().Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
