package throttle

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCleanupInterval is how often Memory drops idle buckets.
const DefaultCleanupInterval = time.Minute

// bucket is a token bucket for one key. A bucket untouched until idleAt has
// refilled completely and can be dropped.
type bucket struct {
	lim    *rate.Limiter
	idleAt time.Time
}

// Memory is an in-process Store backed by one token bucket per key. The
// bucket holds limit tokens and refills one every window/limit, so bursts up
// to limit pass and the steady rate is limit per window. Idle buckets are
// removed by a background janitor; call Close to stop it.
type Memory struct {
	buckets map[string]*bucket
	now     func() time.Time
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
}

// MemoryOption configures a Memory store.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now             func() time.Time
	cleanupInterval time.Duration
}

// WithCleanupInterval sets the janitor period. Zero or negative disables it.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.cleanupInterval = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewMemory creates an in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	o := &memoryOptions{now: time.Now, cleanupInterval: DefaultCleanupInterval}
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory{
		buckets: make(map[string]*bucket),
		now:     o.now,
		done:    make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go m.janitor(o.cleanupInterval)
	}
	return m
}

// Take implements Store.
func (m *Memory) Take(_ context.Context, key string, limit int64, window time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Result{}, ErrClosed
	}

	now := m.now()
	every := window / time.Duration(limit)
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(every), int(limit))}
		m.buckets[key] = b
	} else if b.lim.Burst() != int(limit) || b.lim.Limit() != rate.Every(every) {
		b.lim.SetBurstAt(now, int(limit))
		b.lim.SetLimitAt(now, rate.Every(every))
	}
	b.idleAt = now.Add(window)

	res := Result{Limit: limit}
	if b.lim.AllowN(now, 1) {
		tokens := b.lim.TokensAt(now)
		res.Allowed = true
		res.Remaining = max(int64(math.Floor(tokens)), 0)
		res.ResetAt = now.Add(time.Duration((float64(limit) - tokens) * float64(every)))
		return res, nil
	}

	// A reservation reports when the next token arrives; cancel it so the
	// rejected request does not consume that token.
	r := b.lim.ReserveN(now, 1)
	res.RetryAfter = r.DelayFrom(now)
	r.CancelAt(now)
	res.ResetAt = now.Add(time.Duration((float64(limit) - b.lim.TokensAt(now)) * float64(every)))
	return res, nil
}

// Len returns the number of tracked buckets, idle or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Close stops the janitor. Close is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteIdle()
		}
	}
}

func (m *Memory) deleteIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, b := range m.buckets {
		if !now.Before(b.idleAt) {
			delete(m.buckets, key)
		}
	}
}

var _ Store = (*Memory)(nil)
