package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open creates a Redis client and waits until it answers PING.
// Supports both redis:// and rediss:// (TLS) URL schemes. Failed pings are
// retried with a linearly growing delay. Servers older than 7.0 are rejected
// with ErrUnsupportedServer.
//
// Example:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Open(ctx, cfg)
func Open(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	client, err := connect(ctx, opts, cfg.RetryAttempts, cfg.RetryInterval)
	if err != nil {
		return nil, err
	}
	if err := checkServer(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// OpenURL is Open with DefaultConfig(url).
func OpenURL(ctx context.Context, url string) (redis.UniversalClient, error) {
	return Open(ctx, DefaultConfig(url))
}

func clientOptions(cfg Config) (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(cfg.URL, "redis://") && !strings.HasPrefix(cfg.URL, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.ConnMaxIdleTime = cfg.MaxIdleTime
	opts.ConnMaxLifetime = cfg.MaxActiveTime
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	return opts, nil
}

func connect(ctx context.Context, opts *redis.Options, attempts int, interval time.Duration) (redis.UniversalClient, error) {
	attempts = max(attempts, 1)

	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)

		lastErr = client.Ping(ctx).Err()
		if lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}
		if waitErr := wait(ctx, time.Duration(i+1)*interval); waitErr != nil {
			return nil, errors.Join(ErrConnectionFailed, waitErr)
		}
	}

	return nil, errors.Join(ErrConnectionFailed, lastErr)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
