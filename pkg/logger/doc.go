// Package logger builds the *slog.Logger an Anvil application hands to the
// kernel, the fault boundary and its own code.
//
// Every logger is a base handler (JSON or text, picked by [Config]) wrapped
// in a [LogHandlerDecorator] that runs [ContextExtractor] functions on each
// record. The kernel logs faults with the request context, so an extractor
// for the request ID set by middlewares.RequestID ties every fault line to
// the request that caused it:
//
//	var cfg struct {
//		Log    logger.Config
//		Sentry logger.SentryConfig
//	}
//	config.MustLoad(&cfg)
//
//	log := logger.NewWithSentry(cfg.Sentry, cfg.Log, middlewares.RequestIDExtractor())
//	app := anvil.New(anvil.WithCustomLogger(log))
//	err := app.Run(":8080", anvil.ShutdownHook(logger.FlushSentry(2*time.Second)))
//
// # Configuration
//
// LOG_LEVEL accepts debug, info, warn and error (see [ParseLevel]); LOG_FORMAT
// is json or text. SENTRY_DSN, SENTRY_ENVIRONMENT and SENTRY_RELEASE configure
// [NewWithSentry]. Without a DSN it quietly logs to stdout only, so development
// and production share one code path.
//
// # Sentry
//
// Records at SentryConfig.MinLevel and above are sent to Sentry as logs;
// error records also become issues. That covers the 5xx faults the kernel
// reports, while 4xx faults are logged at debug and never open an issue.
// Register [FlushSentry] as a shutdown hook so buffered events leave before
// exit.
//
// # Custom handlers
//
// [NewLogHandlerDecorator] wraps any slog.Handler, and [Fanout] sends each
// record to several handlers, where one failing destination does not silence
// the others.
package logger
