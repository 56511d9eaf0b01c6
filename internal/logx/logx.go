// Package logx configures the process-wide slog logger and carries
// request-scoped loggers through contexts.
package logx

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type ctxKey struct{}

var (
	once       sync.Once
	baseLogger *slog.Logger
)

// Init initializes the global logger. Should be called early in main.
// Env vars:
//
//	LOG_LEVEL=debug|info|warn|error (default: info)
//	LOG_FORMAT=json|text (default: defaultFormat)
//
// Logs go to stderr so command output on stdout stays machine readable.
func Init(defaultFormat string) {
	once.Do(func() {
		format := os.Getenv("LOG_FORMAT")
		if format == "" {
			format = defaultFormat
		}
		baseLogger = New(os.Stderr, os.Getenv("LOG_LEVEL"), format)
		slog.SetDefault(baseLogger)
	})
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "collection-day")
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// FromContext retrieves the request-scoped logger or returns the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if baseLogger != nil {
		return baseLogger
	}
	return slog.Default()
}

// With returns a new context containing a logger with additional attributes.
func With(ctx context.Context, args ...any) context.Context {
	l := FromContext(ctx).With(args...)
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}
