package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
	"go.opentelemetry.io/otel/trace"
)

const defaultLevel = slog.LevelInfo

// ParseLevel converts "debug", "info", "warn" or "error" (any case) to a
// slog.Level. Unknown strings map to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// defaultLogger implements goaplog.Logger on top of slog.
type defaultLogger struct {
	*slog.Logger
}

var _ goaplog.Logger = (*defaultLogger)(nil)

// NewLogger creates a logger writing "text" or "json" records at levelStr to
// writer (os.Stderr when nil). Records carry trace and span IDs when logged
// with a span context.
func NewLogger(levelStr string, formatStr string, writer io.Writer) goaplog.Logger {
	if writer == nil {
		writer = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(levelStr),
		ReplaceAttr: replaceLevelAttribute,
	}

	var baseHandler slog.Handler
	if strings.EqualFold(formatStr, "json") {
		baseHandler = slog.NewJSONHandler(writer, opts)
	} else {
		baseHandler = slog.NewTextHandler(writer, opts)
	}
	return &defaultLogger{Logger: slog.New(NewOtelHandler(baseHandler))}
}

// NewDefaultLogger returns a text logger on os.Stderr.
func NewDefaultLogger(levelStr string) goaplog.Logger {
	return NewLogger(levelStr, "text", os.Stderr)
}

// NewNopLogger returns a logger that discards everything, for tests and
// embedders that do their own reporting.
func NewNopLogger() goaplog.Logger {
	return &defaultLogger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

var levelStringMap = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// replaceLevelAttribute renders the level as a bare uppercase name.
func replaceLevelAttribute(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	levelStr, exists := levelStringMap[level]
	if !exists {
		levelStr = level.String()
	}
	a.Value = slog.StringValue(levelStr)
	return a
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.logf(slog.LevelDebug, format, args...)
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.logf(slog.LevelInfo, format, args...)
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.logf(slog.LevelWarn, format, args...)
}

// Errorf logs at ERROR. When the last argument is an error, planner error
// types are broken out into structured attributes.
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	ctx := context.Background()
	if !l.Logger.Enabled(ctx, slog.LevelError) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	var attrs []any
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			attrs = errorAttrs(err)
		}
	}
	l.Logger.Log(ctx, slog.LevelError, msg, attrs...)
}

func (l *defaultLogger) logf(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if l.Logger.Enabled(ctx, level) {
		l.Logger.Log(ctx, level, fmt.Sprintf(format, args...))
	}
}

func errorAttrs(err error) []any {
	var (
		contract *goaperrors.ContractViolationError
		stale    *goaperrors.StaleHandleError
		noPlan   *goaperrors.NoPlanError
		notFound *goaperrors.ActionKindNotFoundError
	)
	switch {
	case errors.As(err, &contract):
		return []any{
			slog.String("error_type", "ContractViolationError"),
			slog.String("component", contract.Component),
			slog.String("error", contract.Reason),
		}
	case errors.As(err, &stale):
		return []any{
			slog.String("error_type", "StaleHandleError"),
			slog.String("handle_kind", stale.Kind),
			slog.Int("slot", stale.Slot),
			slog.Any("held_gen", stale.HeldGen),
			slog.Any("live_gen", stale.LiveGen),
		}
	case errors.As(err, &noPlan):
		return []any{
			slog.String("error_type", "NoPlanError"),
			slog.String("agent", noPlan.Agent),
		}
	case errors.As(err, &notFound):
		return []any{
			slog.String("error_type", "ActionKindNotFoundError"),
			slog.String("action_kind", notFound.Kind),
		}
	default:
		return []any{slog.String("error", err.Error())}
	}
}

func (l *defaultLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

// LogCtx logs with ctx so the OtelHandler can attach trace and span IDs.
func (l *defaultLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *defaultLogger) With(args ...interface{}) goaplog.Logger {
	return &defaultLogger{Logger: l.Logger.With(args...)}
}

func (l *defaultLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// OtelHandler is slog.Handler middleware adding trace_id and span_id to
// records logged with a valid span context.
type OtelHandler struct {
	next slog.Handler
}

// NewOtelHandler wraps next.
func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
