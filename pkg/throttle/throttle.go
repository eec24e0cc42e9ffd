package throttle

import (
	"context"
	"time"
)

// Store decides whether one more request for key fits within limit per window.
type Store interface {
	Take(ctx context.Context, key string, limit int64, window time.Duration) (Result, error)
}

// Result describes the outcome of a single Allow call.
type Result struct {
	// ResetAt is when the key is back to its full budget.
	ResetAt time.Time
	// RetryAfter is how long a rejected caller should wait. Zero when allowed.
	RetryAfter time.Duration
	Limit      int64
	Remaining  int64
	Allowed    bool
}

// Limiter allows at most limit requests per key in each window.
type Limiter struct {
	store  Store
	prefix string
	limit  int64
	window time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithPrefix namespaces keys in the store. Defaults to "throttle:".
func WithPrefix(prefix string) Option {
	return func(l *Limiter) {
		l.prefix = prefix
	}
}

// New creates a limiter. A non-positive limit is treated as 1 and a
// non-positive window as one minute.
func New(store Store, limit int64, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		prefix: "throttle:",
		limit:  max(limit, 1),
		window: window,
	}
	if l.window <= 0 {
		l.window = time.Minute
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	return l.store.Take(ctx, l.prefix+key, l.limit, l.window)
}

// Limit returns the number of requests allowed per window.
func (l *Limiter) Limit() int64 { return l.limit }

// Window returns the window length.
func (l *Limiter) Window() time.Duration { return l.window }
