package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthcheckOption tunes Healthcheck.
type HealthcheckOption func(*healthcheck)

type healthcheck struct {
	maxLatency time.Duration
}

// WithMaxLatency fails the check when PING takes longer than d. A saturated
// server then leaves the readiness rotation before throttled requests start
// timing out on it.
func WithMaxLatency(d time.Duration) HealthcheckOption {
	return func(h *healthcheck) {
		h.maxLatency = d
	}
}

// Healthcheck returns a readiness check pinging the server.
//
// Example:
//
//	anvil.WithReadinessCheck("redis", redis.Healthcheck(client, redis.WithMaxLatency(100*time.Millisecond)))
func Healthcheck(client redis.UniversalClient, opts ...HealthcheckOption) func(context.Context) error {
	var hc healthcheck
	for _, opt := range opts {
		opt(&hc)
	}

	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}

		start := time.Now()
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if took := time.Since(start); hc.maxLatency > 0 && took > hc.maxLatency {
			return fmt.Errorf("%w: %w: %s over %s", ErrHealthcheckFailed, ErrSlowResponse, took.Round(time.Millisecond), hc.maxLatency)
		}
		return nil
	}
}
