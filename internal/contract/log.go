package contract

import (
	"context"
	"io"
	"log/slog"
	"runtime/debug"
)

// NewLogger builds the process logger. format is "text" or "json".
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DiscardLogger returns a logger that drops everything. Used when no logger is injected.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SafeGo runs fn on a new goroutine. A panic is logged with its stack and swallowed
// so one failing task never takes the process down.
func SafeGo(ctx context.Context, logger *slog.Logger, task string, fn func(ctx context.Context)) {
	go func() {
		defer Recover(logger, task)
		fn(ctx)
	}()
}

// Recover logs a recovered panic. It must be called directly via defer.
func Recover(logger *slog.Logger, task string) {
	if r := recover(); r != nil {
		logger.Error("recovered panic", "task", task, "panic", r, "stack", string(debug.Stack()))
	}
}
