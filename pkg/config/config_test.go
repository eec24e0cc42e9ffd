package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/pkg/config"
	"github.com/dmitrymomot/anvil/pkg/logger"
	"github.com/dmitrymomot/anvil/pkg/redis"
)

type serverConfig struct {
	Addr    string        `env:"TEST_SERVER_ADDR" envDefault:":8080"`
	Timeout time.Duration `env:"TEST_SERVER_TIMEOUT" envDefault:"5s"`
	Debug   bool          `env:"TEST_SERVER_DEBUG"`
}

type cachedConfig struct {
	Name string `env:"TEST_CACHED_NAME"`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET,required"`
}

func TestParse(t *testing.T) {
	t.Setenv("TEST_SERVER_ADDR", ":9000")
	t.Setenv("TEST_SERVER_DEBUG", "true")

	var cfg serverConfig
	require.NoError(t, config.Parse(&cfg))
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.True(t, cfg.Debug)
}

func TestLoad_Caches(t *testing.T) {
	t.Setenv("TEST_CACHED_NAME", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	require.Equal(t, "first", a.Name)

	t.Setenv("TEST_CACHED_NAME", "second")
	var b cachedConfig
	require.NoError(t, config.Load(&b))
	require.Equal(t, "first", b.Name)

	config.Reset()
	var c cachedConfig
	require.NoError(t, config.Load(&c))
	require.Equal(t, "second", c.Name)
}

func TestLoad_Required(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)

	require.Contains(t, err.Error(), "TEST_REQUIRED_SECRET")

	require.Panics(t, func() { config.MustLoad(&cfg) })
	require.ErrorIs(t, config.Load[requiredConfig](nil), config.ErrNilTarget)
}

func TestParse_PackageConfigs(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("LOG_LEVEL", "debug")

	var rc redis.Config
	require.NoError(t, config.Parse(&rc))
	require.Equal(t, "redis://cache:6379/1", rc.URL)
	require.Equal(t, 32, rc.PoolSize)
	require.Equal(t, 3*time.Second, rc.ReadTimeout)

	var lc logger.Config
	require.NoError(t, config.Parse(&lc))
	require.Equal(t, "debug", lc.Level)
	require.Equal(t, "json", lc.Format)
}
