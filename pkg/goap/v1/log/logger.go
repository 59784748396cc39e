// Package log defines the logging contract shared by the planner, the worker
// pool and the command line tool.
package log

import (
	"context"
	"log/slog"
)

// Logger is the structured logger consumed by planner components. Embedders
// can plug their own implementation; internal/logger provides the default
// slog-backed one.
type Logger interface {
	// Debugf logs a printf-style message at DEBUG level. Search traces
	// (node expansion, goal selection) are emitted here.
	Debugf(format string, args ...interface{})
	// Infof logs a printf-style message at INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs a printf-style message at WARN level. A failed A* run is
	// reported at this level.
	Warnf(format string, args ...interface{})
	// Errorf logs a printf-style message at ERROR level. If the last argument
	// is an error, implementations should attach it as a structured attribute.
	Errorf(format string, args ...interface{})

	// Log emits a message at the given level with key-value attributes.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx is Log with a context, allowing trace and span IDs to be attached.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a child logger carrying the given attributes on every entry.
	With(args ...interface{}) Logger
	// IsEnabled reports whether a message at level would be written. Use it to
	// skip building expensive debug output such as full plan dumps.
	IsEnabled(level slog.Level) bool
}
