package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger writes JSON in production and text elsewhere. level overrides
// the default of info in production and debug otherwise.
func NewLogger(env, level string) *slog.Logger {
	prod := env == "prod" || env == "production"
	opts := &slog.HandlerOptions{Level: parseLevel(level, prod)}

	var h slog.Handler
	if prod {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", "microlend")
}

func parseLevel(raw string, prod bool) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if prod {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
