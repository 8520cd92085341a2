// Package logging provides structured logging configuration using log/slog.
//
// Each parse run gets a run id that is attached to every log entry produced
// while handling it, so interleaved runs can be told apart.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// New returns a logger writing to w.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup configures the global slog logger. Logs go to w so that stdout can
// carry parsed records.
func Setup(w io.Writer, level, format string) {
	slog.SetDefault(New(w, level, format))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type ctxKey struct{}

// NewRun returns a context carrying a logger tagged with a fresh run_id, and
// the id itself.
//
// Usage:
//
//	ctx, runID := logging.NewRun(ctx, "job", p.Job)
//	logging.FromContext(ctx).Info("parse started", "path", path)
func NewRun(ctx context.Context, args ...any) (context.Context, string) {
	id := uuid.New().String()
	logger := FromContext(ctx).With(append([]any{"run_id", id}, args...)...)
	return context.WithValue(ctx, ctxKey{}, logger), id
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
