// Package config loads typed configuration from environment variables.
//
// Each configuration type is parsed once and cached. A .env file in the
// working directory is loaded on first use; variables already set in the
// environment take precedence.
//
//	type AppConfig struct {
//		Addr  string `env:"APP_ADDR" envDefault:":8080"`
//		Debug bool   `env:"APP_DEBUG"`
//	}
//
//	var cfg AppConfig
//	config.MustLoad(&cfg)
//
// Package configs elsewhere in the module carry env tags for the same
// purpose, such as redis.Config and logger.Config.
package config
