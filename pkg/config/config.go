package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrNilTarget is returned when Load is given a nil pointer.
var ErrNilTarget = errors.New("config: nil target")

var (
	cache      sync.Map // reflect.Type -> any (T)
	loadMu     sync.Mutex
	dotenvOnce sync.Once
	// DotenvFiles are the files loaded before the first parse.
	DotenvFiles = []string{".env"}
)

// Load fills cfg from the environment. The first successful load of a type is
// cached and later calls copy the cached value into cfg.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilTarget
	}
	t := reflect.TypeFor[T]()

	if v, ok := cache.Load(t); ok {
		*cfg = v.(T)
		return nil
	}

	loadMu.Lock()
	defer loadMu.Unlock()

	if v, ok := cache.Load(t); ok {
		*cfg = v.(T)
		return nil
	}

	var fresh T
	if err := Parse(&fresh); err != nil {
		return err
	}
	cache.Store(t, fresh)
	*cfg = fresh
	return nil
}

// MustLoad is like Load but panics on error. Use it during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Parse fills cfg from the environment without consulting the cache.
func Parse[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilTarget
	}
	loadDotenv()
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", reflect.TypeFor[T](), err)
	}
	return nil
}

// Reset drops every cached configuration.
func Reset() {
	cache.Clear()
}

func loadDotenv() {
	dotenvOnce.Do(func() {
		var files []string
		for _, f := range DotenvFiles {
			if _, err := os.Stat(f); err == nil {
				files = append(files, f)
			}
		}
		if len(files) > 0 {
			_ = godotenv.Load(files...)
		}
	})
}
