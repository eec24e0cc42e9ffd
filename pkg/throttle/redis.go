package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window Store shared by every instance using the same
// server. Each key is a counter whose expiry marks the end of its window.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis creates a Redis-backed store.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Take implements Store. INCR and the window expiry are sent in one
// transaction; the expiry is only set when the key has none yet.
func (r *Redis) Take(ctx context.Context, key string, limit int64, window time.Duration) (Result, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Result{}, errors.Join(ErrStore, err)
	}

	left := ttl.Val()
	if left < 0 {
		// Key without expiry: a previous EXPIRE got lost. Restart the window.
		if err := r.client.PExpire(ctx, key, window).Err(); err != nil {
			return Result{}, errors.Join(ErrStore, err)
		}
		left = window
	}

	count := incr.Val()
	res := Result{
		ResetAt:   time.Now().Add(left),
		Limit:     limit,
		Remaining: max(limit-count, 0),
		Allowed:   count <= limit,
	}
	if !res.Allowed {
		res.RetryAfter = left
	}
	return res, nil
}

var _ Store = (*Redis)(nil)
