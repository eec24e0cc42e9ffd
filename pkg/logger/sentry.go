package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	Release     string `env:"SENTRY_RELEASE"`
	// MinLevel determines which log levels are stored in Sentry as logs.
	// Error records always become Sentry events.
	MinLevel slog.Level
}

// NewWithSentry creates a logger that writes to stdout and forwards to Sentry.
// With an empty DSN, or when the SDK fails to initialize, only stdout is used.
func NewWithSentry(cfg SentryConfig, base Config, extractors ...ContextExtractor) *slog.Logger {
	stdout := newBaseHandler(base, os.Stdout)

	if cfg.DSN == "" {
		return slog.New(NewLogHandlerDecorator(stdout, extractors...))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(stdout).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return slog.New(NewLogHandlerDecorator(stdout, extractors...))
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.MinLevel >= slog.LevelError {
		logLevel = []slog.Level{slog.LevelError}
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())

	return slog.New(NewLogHandlerDecorator(Fanout(stdout, sentryHandler), extractors...))
}

// FlushSentry returns a shutdown hook that waits for buffered Sentry events.
func FlushSentry(timeout time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		wait := timeout
		if deadline, ok := ctx.Deadline(); ok {
			wait = min(wait, time.Until(deadline))
		}
		sentry.Flush(wait)
		return nil
	}
}
