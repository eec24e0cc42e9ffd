package internal

import (
	"log/slog"

	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/logger"
)

// Option configures the application.
type Option func(*App)

// WithDebug switches the fault boundary to detailed responses: the debug
// page for browsers and a debug section in JSON envelopes.
// Never enable it in production.
func WithDebug(debug bool) Option {
	return func(a *App) {
		a.debug = debug
	}
}

// WithAPIPrefix sets the path prefix whose faults are always rendered as JSON.
// Defaults to "/api". An empty prefix disables path-based detection.
func WithAPIPrefix(prefix string) Option {
	return func(a *App) {
		a.apiPrefix = prefix
	}
}

// WithTrailingSlash selects how non-canonical request paths are handled.
// Defaults to TrailingSlashRedirect.
func WithTrailingSlash(policy TrailingSlashPolicy) Option {
	return func(a *App) {
		a.trailingSlash = policy
	}
}

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, h...)
	}
}

// WithRoutes registers a route declaration function.
//
// Example:
//
//	anvil.WithRoutes(func(r anvil.Router) {
//	    r.GET("/", anvil.Func(home))
//	})
func WithRoutes(fn func(r Router)) Option {
	return WithHandlers(routesFunc(fn))
}

type routesFunc func(r Router)

func (f routesFunc) Routes(r Router) { f(r) }

// WithContainer replaces the application's dependency container.
func WithContainer(c *container.Container) Option {
	return func(a *App) {
		if c != nil {
			a.container = c
		}
	}
}

// WithProviders registers bindings on the container once all options are applied.
//
// Example:
//
//	anvil.WithProviders(func(c *container.Container) {
//	    container.ProvideShared(c, func(r *container.Resolver) (*UserRepo, error) {
//	        return NewUserRepo(db), nil
//	    })
//	})
func WithProviders(fns ...func(c *container.Container)) Option {
	return func(a *App) {
		a.registrations = append(a.registrations, fns...)
	}
}

// WithMiddleware binds a middleware under id. Routes refer to it by id, by an
// alias resolving to id or through a middleware group.
func WithMiddleware(id string, mw Middleware) Option {
	return WithProviders(func(c *container.Container) {
		c.RegisterInstance(MiddlewareKey(id), mw)
	})
}

// WithMiddlewareFactory binds a middleware built by the container on every
// request it is used in.
func WithMiddlewareFactory(id string, fn func(r *container.Resolver) (Middleware, error)) Option {
	return WithProviders(func(c *container.Container) {
		c.Bind(MiddlewareKey(id), func(r *container.Resolver) (any, error) {
			mw, err := fn(r)
			if err != nil {
				return nil, err
			}
			return mw, nil
		})
	})
}

// WithMiddlewareConfig merges a middleware table, typically loaded with
// LoadMiddlewareConfig.
func WithMiddlewareConfig(cfg *MiddlewareConfig) Option {
	return func(a *App) {
		a.middleware.Merge(cfg)
	}
}

// WithGlobalMiddleware appends ids to the global middleware list.
func WithGlobalMiddleware(ids ...string) Option {
	return func(a *App) {
		a.middleware.Global = append(a.middleware.Global, ids...)
	}
}

// WithMiddlewareAlias maps a short name to a middleware id.
func WithMiddlewareAlias(alias, id string) Option {
	return func(a *App) {
		a.middleware.Merge(&MiddlewareConfig{Aliases: map[string]string{alias: id}})
	}
}

// WithMiddlewareGroup names a list of middleware usable as a single entry.
func WithMiddlewareGroup(name string, ids ...string) Option {
	return func(a *App) {
		a.middleware.Merge(&MiddlewareConfig{Groups: map[string][]string{name: ids}})
	}
}

// WithMiddlewarePriority appends to the priority list used to order pipelines.
func WithMiddlewarePriority(ids ...string) Option {
	return func(a *App) {
		a.middleware.Priority = append(a.middleware.Priority, ids...)
	}
}

// WithErrorHandler replaces the built-in fault renderers.
// The handler still runs inside the fault boundary: if it fails or panics the
// client receives the minimal fallback 500.
//
// Example:
//
//	anvil.WithErrorHandler(func(c anvil.Context, err error) error {
//	    return c.JSON(anvil.StatusOf(err), map[string]string{"error": err.Error()})
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		a.errorHandler = h
	}
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
// The endpoints are served by the front end started with Run or Handler.
//
// Example:
//
//	anvil.WithHealthChecks(
//	    anvil.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
			checks:        make(healthChecks),
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.healthConfig = cfg
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// The component name is added to every log entry for easy filtering.
// Extractors pull values from context (e.g., request_id).
//
// Example:
//
//	anvil.New(
//	    anvil.WithLogger("api", middlewares.RequestIDExtractor()),
//	)
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
// Use this when you need complete control over logging configuration.
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}
