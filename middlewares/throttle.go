package middlewares

import (
	"math"
	"strconv"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/throttle"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// MessageTooManyRequests is the message of the 429 returned by Throttle.
const MessageTooManyRequests = "Too many requests, please slow down"

// ThrottleConfig configures the throttle middleware.
type ThrottleConfig struct {
	Extractor internal.Extractor // Where the client key is read from
	FailOpen  bool               // Let requests through when the store fails
}

// ThrottleOption configures ThrottleConfig.
type ThrottleOption func(*ThrottleConfig)

// WithThrottleKey sets the sources of the client key, tried in order.
// Defaults to the remote IP.
func WithThrottleKey(sources ...internal.ExtractorSource) ThrottleOption {
	return func(cfg *ThrottleConfig) {
		cfg.Extractor = internal.NewExtractor(sources...)
	}
}

// WithThrottleFailOpen lets requests through when the limiter store fails.
// By default a store failure becomes a 500.
func WithThrottleFailOpen() ThrottleOption {
	return func(cfg *ThrottleConfig) {
		cfg.FailOpen = true
	}
}

// Throttle returns middleware that limits requests per client key with l.
// Every answered request carries X-RateLimit-Limit and X-RateLimit-Remaining;
// rejected ones also get Retry-After and a 429.
// Keys are scoped by route pattern so each route has its own budget.
func Throttle(l *throttle.Limiter, opts ...ThrottleOption) internal.Middleware {
	cfg := &ThrottleConfig{
		Extractor: internal.NewExtractor(internal.FromRemoteIP()),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			key, ok := cfg.Extractor.Extract(c)
			if !ok {
				key = "anonymous"
			}
			if rt := c.Route(); rt != nil {
				key = rt.Pattern() + "|" + key
			}

			res, err := l.Allow(c.Context(), key)
			if err != nil {
				if cfg.FailOpen {
					c.LogWarn("throttle store failed, allowing request", "error", err.Error())
					return next(c)
				}
				return err
			}

			c.SetHeader(HeaderRateLimitLimit, strconv.FormatInt(res.Limit, 10))
			c.SetHeader(HeaderRateLimitRemaining, strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				secs := max(int64(math.Ceil(res.RetryAfter.Seconds())), 1)
				c.SetHeader(HeaderRetryAfter, strconv.FormatInt(secs, 10))
				return internal.ErrTooManyRequests(MessageTooManyRequests)
			}

			return next(c)
		}
	}
}
