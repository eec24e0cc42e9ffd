package internal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handler returns the HTTP front end hosting the kernel: a chi router that
// serves the health endpoints itself and hands every other request to the
// App exactly once.
func (a *App) Handler(opts ...RunOption) http.Handler {
	return a.frontend(buildRunConfig(opts...))
}

func (a *App) frontend(cfg *runConfig) http.Handler {
	r := chi.NewRouter()
	if cfg.trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(cfg.frontMiddleware...)

	if a.healthConfig != nil {
		r.Get(a.healthConfig.livenessPath, livenessHandler())
		r.Get(a.healthConfig.readinessPath, readinessHandler(a.healthConfig, a.logger))
	}

	r.Handle("/*", a)
	r.NotFound(a.ServeHTTP)
	r.MethodNotAllowed(a.ServeHTTP)
	return r
}

// Run starts the HTTP server and blocks until shutdown.
// Startup hooks run before the listener accepts connections; shutdown hooks
// run after in-flight requests have drained.
//
// Example:
//
//	app := anvil.New(
//	    anvil.WithHandlers(handlers.NewLandingHandler()),
//	)
//	err := app.Run(":8080", anvil.Logger(slog))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)
	if cfg.logger == nil {
		cfg.logger = a.logger
	}

	return runServer(runtimeConfig{
		handler:         a.frontend(cfg),
		address:         addr,
		logger:          cfg.logger,
		shutdownTimeout: cfg.shutdownTimeout,
		startupHooks:    cfg.startupHooks,
		shutdownHooks:   cfg.shutdownHooks,
		onListen:        cfg.onListen,
		baseCtx:         cfg.baseCtx,
	})
}
