// Package logger sets up structured logging on log/slog.
// It installs a JSON handler carrying the service name and propagates a
// per-candle correlation ID through context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type ctxKey string

const candleIDKey ctxKey = "candle_id"

// Init creates a JSON logger for the given service writing to stdout and
// installs it as the slog default.
func Init(service string, level slog.Level) *slog.Logger {
	return InitWriter(os.Stdout, service, level)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
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

// WithCandleID stores a candle correlation ID in the context.
func WithCandleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, candleIDKey, id)
}

// CandleID extracts the candle correlation ID from ctx. Returns "" if not set.
func CandleID(ctx context.Context) string {
	if v, ok := ctx.Value(candleIDKey).(string); ok {
		return v
	}
	return ""
}

// NewCandleID builds a correlation ID from a pair and the candle open time.
// Format: "{pair}-{unixMilli}", stable across resync re-appends of the same bar.
func NewCandleID(pair string, openTime time.Time) string {
	return pair + "-" + strconv.FormatInt(openTime.UnixMilli(), 10)
}

// Attrs returns slog attributes carrying the candle ID from ctx.
// Usage: log.Info("msg", logger.Attrs(ctx)...)
func Attrs(ctx context.Context) []any {
	id := CandleID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("candle_id", id)}
}
