package internal

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/logger"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// DefaultAPIPrefix is the path prefix whose faults are always rendered as JSON.
const DefaultAPIPrefix = "/api"

// App is the request dispatch kernel. It owns the route table, the
// middleware tables, the dependency container and the fault boundary.
// App is immutable after creation - all configuration is done via New().
type App struct {
	container     *container.Container
	routes        *RouteTable
	middleware    *MiddlewareConfig
	pipelines     map[*Route]*pipeline
	faults        *FaultHandler
	errorHandler  ErrorHandler
	healthConfig  *healthConfig
	logger        *slog.Logger
	registrations []func(*container.Container)
	handlers      []Handler
	apiPrefix     string
	trailingSlash TrailingSlashPolicy
	debug         bool
}

// New creates a new application with the given options.
// Routes are declared by the registered handlers while New runs; the route
// table and middleware tables are frozen when it returns.
//
// Example:
//
//	app := anvil.New(
//	    anvil.WithDebug(cfg.Debug),
//	    anvil.WithMiddleware("request_id", middlewares.RequestID()),
//	    anvil.WithGlobalMiddleware("request_id"),
//	    anvil.WithHandlers(handlers.NewUsers(repo)),
//	)
func New(opts ...Option) *App {
	a := &App{
		container:  container.New(),
		middleware: &MiddlewareConfig{},
		logger:     logger.NewNope(), // Default: noop logger (before options)
		apiPrefix:  DefaultAPIPrefix,
	}

	for _, opt := range opts {
		opt(a)
	}

	for _, register := range a.registrations {
		register(a.container)
	}
	a.container.RegisterInstance(container.Key[*slog.Logger](), a.logger)

	a.faults = NewFaultHandler(a.logger, a.debug, a.apiPrefix, a.errorHandler)
	a.setupRoutes()
	return a
}

// setupRoutes lets every handler declare its routes and precomputes the
// middleware id list of each route.
func (a *App) setupRoutes() {
	a.routes = NewRouteTable(a.middleware, a.trailingSlash)

	r := a.routes.Router()
	for _, h := range a.handlers {
		h.Routes(r)
	}

	live := a.routes.Routes()
	a.pipelines = make(map[*Route]*pipeline, len(live))
	for _, rt := range live {
		a.pipelines[rt] = newPipeline(a.middleware, rt)
	}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Dispatch(w, r)
}

// Dispatch runs one request through the kernel: match, build the pipeline,
// run it, and route any failure, including panics, to the fault boundary.
func (a *App) Dispatch(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r, a)

	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			a.faults.Handle(c, NewPanicError(rec, 4096, 1))
		}
	}()

	if err := a.dispatch(c); err != nil {
		a.faults.Handle(c, err)
	}
}

func (a *App) dispatch(c *requestContext) error {
	r := c.request

	m, err := a.routes.Match(r.Method, r.URL.EscapedPath())
	if err != nil {
		return err
	}
	if m.Redirect != "" {
		return a.redirectCanonical(c)
	}

	c.bind(m)

	p, ok := a.pipelines[m.Route]
	if !ok {
		// Routes added after New still dispatch, without a cached id list.
		p = newPipeline(a.middleware, m.Route)
	}
	h, err := p.build(a.container)
	if err != nil {
		return err
	}
	return h(c)
}

// redirectCanonical answers with a permanent redirect to the normalized path.
func (a *App) redirectCanonical(c *requestContext) error {
	r := c.request
	target := normalizePath(r.URL.EscapedPath())
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	code := http.StatusPermanentRedirect
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		code = http.StatusMovedPermanently
	}
	c.response.Header().Set("Location", target)
	c.response.WriteHeader(code)
	return nil
}

// HandleFault renders err through the fault boundary. Use it from code that
// recovers failures outside the normal handler error return.
func (a *App) HandleFault(c Context, err error) {
	a.faults.Handle(c, err)
}

// RegisterMiddleware binds mw under id as a shared container instance.
// Registration is safe at any time; routes pick it up on their next request.
func (a *App) RegisterMiddleware(id string, mw Middleware) {
	a.container.RegisterInstance(MiddlewareKey(id), mw)
}

// Container returns the dependency container.
func (a *App) Container() *container.Container {
	return a.container
}

// Routes returns the route table.
func (a *App) Routes() *RouteTable {
	return a.routes
}

// URL builds the path of a named route.
func (a *App) URL(name string, params map[string]string) (string, error) {
	return a.routes.URL(name, params)
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Debug reports whether debug fault pages are enabled.
func (a *App) Debug() bool {
	return a.debug
}
