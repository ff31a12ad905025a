package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the application logger.
type Options struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string

	// Format is "text" for human-readable console output or "json".
	Format string

	// Prefix is shown in front of every text line (text format only).
	Prefix string
}

// New creates a slog.Logger writing to w.
// The text format is rendered by charmbracelet/log, which implements slog.Handler.
func New(w io.Writer, opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)

	if strings.EqualFold(opts.Format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          opts.Prefix,
	})
	return slog.New(handler)
}

// ParseLevel converts a level name into a slog.Level.
// Unknown names fall back to info.
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

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
