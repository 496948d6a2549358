package seglog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with seglog-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// LogRotation logs a tail rotation.
func (l *Logger) LogRotation(ctx context.Context, sealed Range, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "tail rotation failed",
			"sealed", sealed.String(),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "tail rotated",
		"sealed", sealed.String(),
		"records", sealed.Len(),
		"duration", d,
	)
}

// LogLoad logs the materialization of persisted sections.
func (l *Logger) LogLoad(ctx context.Context, minLSN LSN, sections int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "loading sections failed",
			"min_lsn", minLSN.String(),
			"sections", sections,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "sections loaded",
		"min_lsn", minLSN.String(),
		"sections", sections,
		"duration", d,
	)
}

// LogCleanup logs a checkpoint cleanup.
func (l *Logger) LogCleanup(ctx context.Context, cp Checkpoint, removed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cleanup failed",
			"checkpoint", cp.Token,
			"checkpoint_lsn", cp.LSN.String(),
			"removed", removed,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "cleanup completed",
		"checkpoint", cp.Token,
		"checkpoint_lsn", cp.LSN.String(),
		"removed", removed,
	)
}

// LogRecovery logs a replay.
func (l *Logger) LogRecovery(ctx context.Context, from LSN, replayed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "log replay failed",
			"from_lsn", from.String(),
			"entries_replayed", replayed,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "log replay completed",
		"from_lsn", from.String(),
		"entries_replayed", replayed,
	)
}
