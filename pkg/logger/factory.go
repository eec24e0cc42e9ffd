package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls the base handler.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// New creates a JSON-formatted logger at info level writing to stdout.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithConfig(Config{}, os.Stdout, extractors...)
}

// NewWithConfig creates a logger writing to w using cfg.
// Format "text" selects slog's text handler; anything else is JSON.
func NewWithConfig(cfg Config, w io.Writer, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewLogHandlerDecorator(newBaseHandler(cfg, w), extractors...))
}

// NewNope creates a no-op logger that discards all output.
// Use this as a default when logging is not configured.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps debug, info, warn/warning and error to slog levels.
// Unknown values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newBaseHandler(cfg Config, w io.Writer) slog.Handler {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
