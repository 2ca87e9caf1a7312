// Package logging provides structured logging for the gossip listener. It
// wraps log/slog with small conveniences — per-module child loggers and a
// process-wide default — in the same shape the rest of this codebase's
// subsystems expect.
package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with listener-specific context.
type Logger struct {
	inner *slog.Logger
}

// defaultLogger is the process-wide logger used by the package-level
// convenience functions.
var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo, "pretty")
}

// New creates a Logger writing to stderr at the given level. format selects
// between "pretty" (slog's built-in text handler) and "json"; any other
// value falls back to "pretty", matching the config default.
func New(level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler, for
// callers that need to capture or redirect output.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// Module returns a child logger tagged with a "module" attribute. This is
// the primary way subsystems (ingest, scheduler, store, transport, ...)
// obtain their own contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

// Slog returns the underlying *slog.Logger for callers that need to pass a
// plain slog.Logger into a third-party constructor.
func (l *Logger) Slog() *slog.Logger { return l.inner }

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// Trace logs at a level below Debug, matching the spec's "logged at trace
// level" drop-path for decode/store failures. slog has no trace level, so
// this maps to Debug-4, which is filtered out by any handler configured at
// Debug or above unless the level is explicitly lowered further.
func (l *Logger) Trace(msg string, args ...any) {
	l.inner.Log(nil, slog.LevelDebug-4, msg, args...)
}

// Package-level convenience functions delegating to defaultLogger.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
func Trace(msg string, args ...any) { defaultLogger.Trace(msg, args...) }

// Module returns a child of the default logger tagged with "module".
func Module(name string) *Logger { return defaultLogger.Module(name) }
