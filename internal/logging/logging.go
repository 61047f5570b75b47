// Package logging provides structured logging using slog.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging configuration.
type Config struct {
	Format string // "json" | "text"
	Level  string // "debug" | "info" | "warn" | "error"
}

// Setup initializes the global slog logger based on configuration.
func Setup(cfg Config) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string level to slog.Level.
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

// invocationIDKey is the context key for invocation IDs.
type invocationIDKey struct{}

// WithInvocationID adds an invocation ID to the context.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey{}, id)
}

// InvocationID retrieves the invocation ID from context.
func InvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(invocationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// InvocationLogger creates a logger carrying the invocation ID.
func InvocationLogger(invocationID string) *slog.Logger {
	return slog.With("invocation_id", invocationID)
}

// GroupLogger creates a logger with reconciliation group context fields.
func GroupLogger(log *slog.Logger, date, locationFolder string, records int) *slog.Logger {
	return log.With(
		"date", date,
		"location", locationFolder,
		"records", records,
	)
}

// Component returns a logger with a component name.
func Component(name string) *slog.Logger {
	return slog.With("component", name)
}
