package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// RunOption configures the server runtime.
type RunOption func(*runConfig)

// runConfig holds runtime configuration for the server.
type runConfig struct {
	baseCtx         context.Context
	logger          *slog.Logger
	onListen        func(net.Addr)
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	frontMiddleware []func(http.Handler) http.Handler
	shutdownTimeout time.Duration
	trustProxy      bool
}

// buildRunConfig creates a runConfig from the provided options.
func buildRunConfig(opts ...RunOption) *runConfig {
	cfg := &runConfig{
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Logger sets the server logger. Defaults to the App logger.
func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// This applies to both the HTTP server and shutdown hooks.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// StartupHook registers a function that runs before the server accepts
// connections. A failing hook aborts Run.
func StartupHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.startupHooks = append(c.startupHooks, fn)
		}
	}
}

// ShutdownHook registers a cleanup function to run after in-flight requests
// have drained. Hooks run newest first, like deferred calls, and share the
// shutdown timeout.
//
// Example:
//
//	anvil.ShutdownHook(redis.Shutdown(client))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// TrustProxy makes the front end take the client address from
// X-Forwarded-For / X-Real-IP. Only enable it behind a trusted proxy.
func TrustProxy() RunOption {
	return func(c *runConfig) {
		c.trustProxy = true
	}
}

// FrontMiddleware adds net/http middleware in front of the kernel, for
// concerns like compression that wrap the raw response writer.
func FrontMiddleware(mw ...func(http.Handler) http.Handler) RunOption {
	return func(c *runConfig) {
		c.frontMiddleware = append(c.frontMiddleware, mw...)
	}
}

// OnListen registers a callback receiving the bound address, useful with ":0".
func OnListen(fn func(addr net.Addr)) RunOption {
	return func(c *runConfig) {
		c.onListen = fn
	}
}

// WithContext sets a custom base context for signal handling.
// Useful for testing or when integrating with existing context hierarchies.
// Defaults to context.Background() if not set.
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
