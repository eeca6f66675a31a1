package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the launcher's status logger. Sidecar lifecycle lines (start,
// exit, restart, budget exhaustion) all go through this.
func New(w io.Writer, level string, color bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if color {
		return slog.New(newColorHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Default logs to stderr with colors enabled when it looks like a terminal.
func Default() *slog.Logger {
	fi, err := os.Stderr.Stat()
	color := err == nil && fi.Mode()&os.ModeCharDevice != 0
	return New(os.Stderr, "info", color)
}

func parseLevel(s string) slog.Level {
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
