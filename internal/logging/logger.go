package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is a thin wrapper around slog with field chaining
type Logger struct {
	l *slog.Logger
}

// NewLogger creates a logger. Development mode uses a human-readable text
// handler at debug level; production emits JSON at info level.
func NewLogger(development bool) *Logger {
	var handler slog.Handler
	if development {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{l: slog.New(handler)}
}

// WithFields returns a logger with the given fields attached to every record.
func (lg *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{l: lg.l.With(args...)}
}

func (lg *Logger) Debug(msg string, args ...any) {
	lg.l.Debug(msg, args...)
}

func (lg *Logger) Info(msg string, args ...any) {
	lg.l.Info(msg, args...)
}

func (lg *Logger) Warn(msg string, args ...any) {
	lg.l.Warn(msg, args...)
}

func (lg *Logger) Error(msg string, args ...any) {
	lg.l.Error(msg, args...)
}

// Log emits a record at an explicit level, used by the request middleware.
func (lg *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	lg.l.Log(ctx, level, msg, args...)
}
