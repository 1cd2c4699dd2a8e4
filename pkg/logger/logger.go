package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const serviceName = "points-dashboard"

// New constructs the slog logger shared by every component. LOG_LEVEL picks the
// level and LOG_FORMAT=text switches from JSON to logfmt-style output for local runs.
func New() *slog.Logger {
	return newWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func newWithWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl.Level() <= slog.LevelDebug,
	}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", serviceName)
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
