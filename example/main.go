package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/anvil"
	"github.com/dmitrymomot/anvil/middlewares"
	"github.com/dmitrymomot/anvil/pkg/config"
	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/logger"
	"github.com/dmitrymomot/anvil/pkg/redis"
	"github.com/dmitrymomot/anvil/pkg/throttle"
)

//go:embed middleware.yaml
var configFS embed.FS

type Config struct {
	Addr       string        `env:"ADDR" envDefault:":8080"`
	APIToken   string        `env:"API_TOKEN" envDefault:"dev-token"`
	RateLimit  int64         `env:"RATE_LIMIT" envDefault:"60"`
	RateWindow time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
	Debug      bool          `env:"DEBUG" envDefault:"false"`

	Log    logger.Config
	Sentry logger.SentryConfig
	Redis  redis.Config
}

func main() {
	var cfg Config
	config.MustLoad(&cfg)

	log := logger.NewWithSentry(cfg.Sentry, cfg.Log, middlewares.RequestIDExtractor())

	if err := run(cfg, log); err != nil {
		log.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger) error {
	ctx := context.Background()

	// Redis backs the limiter when configured; a single instance can do
	// with the in-memory store.
	var (
		store      throttle.Store
		healthOpts []anvil.HealthOption
	)
	runOpts := []anvil.RunOption{anvil.ShutdownHook(logger.FlushSentry(2 * time.Second))}
	if cfg.Redis.URL != "" {
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		store = throttle.NewRedis(client)
		healthOpts = append(healthOpts, anvil.WithReadinessCheck("redis", redis.Healthcheck(client, redis.WithMaxLatency(250*time.Millisecond))))
		runOpts = append(runOpts, anvil.ShutdownHook(redis.Shutdown(client)))
	} else {
		mem := throttle.NewMemory()
		store = mem
		runOpts = append(runOpts, anvil.ShutdownHook(func(context.Context) error { return mem.Close() }))
	}

	app, err := newApp(cfg, log, store, healthOpts...)
	if err != nil {
		return err
	}
	return app.Run(cfg.Addr, append(runOpts, anvil.TrustProxy())...)
}

// newApp wires the kernel: middleware table, stock middleware, the note
// store and both handler sets.
func newApp(cfg Config, log *slog.Logger, store throttle.Store, healthOpts ...anvil.HealthOption) (*anvil.App, error) {
	mwConfig, err := anvil.LoadMiddlewareConfig(configFS, "middleware.yaml")
	if err != nil {
		return nil, err
	}

	return anvil.New(
		anvil.WithCustomLogger(log.With("component", "web")),
		anvil.WithDebug(cfg.Debug),
		anvil.WithMiddlewareConfig(mwConfig),
		anvil.WithMiddleware("request_id", middlewares.RequestID()),
		anvil.WithMiddleware("recover", middlewares.Recover()),
		anvil.WithMiddleware("cors", middlewares.CORS(middlewares.WithExposeHeaders(
			anvil.RequestIDHeader,
			middlewares.HeaderRateLimitLimit,
			middlewares.HeaderRateLimitRemaining,
		))),
		anvil.WithMiddleware("api", middlewares.API()),
		anvil.WithMiddleware("throttle", middlewares.Throttle(
			throttle.New(store, cfg.RateLimit, cfg.RateWindow),
			middlewares.WithThrottleFailOpen(),
		)),
		anvil.WithMiddleware("token_auth", middlewares.Auth(staticToken(cfg.APIToken))),
		anvil.WithProviders(func(c *container.Container) {
			container.ProvideShared(c, func(*container.Resolver) (*NoteStore, error) {
				return NewNoteStore(), nil
			})
		}),
		anvil.WithHandlers(&Pages{}, &NotesAPI{}),
		anvil.WithHealthChecks(healthOpts...),
	), nil
}
