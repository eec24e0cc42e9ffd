package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultHealthTimeout = 5 * time.Second

	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// CheckFunc is the standard health check function signature.
// It matches the closures returned by pkg/redis.Healthcheck.
type CheckFunc func(ctx context.Context) error

// healthChecks is a map of named health check functions.
type healthChecks map[string]CheckFunc

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        healthChecks
	livenessPath  string
	readinessPath string
	timeout       time.Duration
}

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessTimeout bounds the whole readiness check run.
// Defaults to 5 seconds.
func WithReadinessTimeout(d time.Duration) HealthOption {
	return func(c *healthConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel on each readiness request.
//
// Example:
//
//	anvil.WithReadinessCheck("redis", redis.Healthcheck(client))
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(healthChecks)
		}
		if fn != nil {
			c.checks[name] = fn
		}
	}
}

// healthResponse represents a health check response.
type healthResponse struct {
	Checks map[string]healthCheck `json:"checks,omitempty"`
	Status string                 `json:"status"`
}

// healthCheck represents the status of a single health check.
type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// livenessHandler returns an http.HandlerFunc that always responds OK.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, r, http.StatusOK, &healthResponse{Status: statusHealthy})
	}
}

// readinessHandler returns an http.HandlerFunc that runs all provided checks.
func readinessHandler(cfg *healthConfig, logger *slog.Logger) http.HandlerFunc {
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := runChecks(r.Context(), cfg.checks, timeout, logger)

		status := http.StatusOK
		if resp.Status == statusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, r, status, resp)
	}
}

// runChecks executes all checks in parallel and returns the aggregated result.
func runChecks(ctx context.Context, checks healthChecks, timeout time.Duration, logger *slog.Logger) *healthResponse {
	if len(checks) == 0 {
		return &healthResponse{Status: statusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// A plain Group: errgroup.WithContext would cancel the remaining checks
	// on the first failure.
	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]healthCheck, len(checks))
	)

	for name, check := range checks {
		g.Go(func() error {
			err := check(ctx)
			result := healthCheck{Status: statusHealthy}
			if err != nil {
				result = healthCheck{Status: statusUnhealthy, Error: err.Error()}
				logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return err
		})
	}

	status := statusHealthy
	if err := g.Wait(); err != nil {
		status = statusUnhealthy
	}
	return &healthResponse{Status: status, Checks: results}
}

// writeHealth answers JSON when asked for (Accept or ?format=json) and
// plain text otherwise.
func writeHealth(w http.ResponseWriter, r *http.Request, status int, resp *healthResponse) {
	w.Header().Set("Cache-Control", "no-store")

	if r.URL.Query().Get("format") == "json" || acceptsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if resp.Status == statusHealthy {
		_, _ = w.Write([]byte("OK"))
	} else {
		_, _ = w.Write([]byte("Service Unavailable"))
	}
}
