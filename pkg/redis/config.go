package redis

import "time"

// Config holds Redis connection settings. The env tags let it be loaded with
// config.Load[redis.Config]().
type Config struct {
	URL           string        `env:"REDIS_URL"`
	PoolSize      int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns  int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	MaxIdleTime   time.Duration `env:"REDIS_MAX_IDLE_TIME" envDefault:"10m"`
	MaxActiveTime time.Duration `env:"REDIS_MAX_ACTIVE_TIME" envDefault:"30m"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
	ReadTimeout   time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout  time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		PoolSize:      10,
		MinIdleConns:  2,
		RetryAttempts: 3,
		MaxIdleTime:   10 * time.Minute,
		MaxActiveTime: 30 * time.Minute,
		RetryInterval: time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		DialTimeout:   5 * time.Second,
	}
}
