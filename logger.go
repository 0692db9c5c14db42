package annoyforest

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with annoyforest-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithID adds an item-id field to the logger.
func (l *Logger) WithID(id uint32) *Logger {
	return &Logger{Logger: l.Logger.With("id", id)}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{Logger: l.Logger.With("k", k)}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{Logger: l.Logger.With("dimension", dim)}
}

// LogAddItem logs an add_item call.
func (l *Logger) LogAddItem(ctx context.Context, id uint32, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add_item failed", "id", id, "dimension", dimension, "error", err)
	} else {
		l.DebugContext(ctx, "add_item completed", "id", id, "dimension", dimension)
	}
}

// LogBuild logs a build call.
func (l *Logger) LogBuild(ctx context.Context, nTrees, nItems int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed", "n_trees", nTrees, "n_items", nItems, "error", err)
	} else {
		l.InfoContext(ctx, "build completed", "n_trees", nTrees, "n_items", nItems)
	}
}

// LogSearch logs a nearest-neighbor query.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "k", k, "error", err)
	} else {
		l.DebugContext(ctx, "search completed", "k", k, "results", resultsFound)
	}
}

// LogSave logs a save call.
func (l *Logger) LogSave(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed", "path", path, "error", err)
	} else {
		l.InfoContext(ctx, "save completed", "path", path)
	}
}

// LogLoad logs a load call.
func (l *Logger) LogLoad(ctx context.Context, path string, nItems int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed", "path", path, "error", err)
	} else {
		l.InfoContext(ctx, "load completed", "path", path, "n_items", nItems)
	}
}

// LogUnload logs an unload call.
func (l *Logger) LogUnload(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "unload failed", "path", path, "error", err)
	} else {
		l.InfoContext(ctx, "unload completed", "path", path)
	}
}
