package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger writes to stderr so that CLI output on stdout stays parseable.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stderr, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = parseLevel(level, slog.LevelInfo)
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = parseLevel(level, slog.LevelDebug)
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
