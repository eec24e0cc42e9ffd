package middlewares

import (
	"net/http"

	"github.com/dmitrymomot/anvil/internal"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = 4096

// RecoverConfig configures the recover middleware.
type RecoverConfig struct {
	OnPanic           func(c internal.Context, pe *internal.PanicError) // Called before the error is returned
	StackSize         int                                               // Max stack trace size (default: 4096)
	DisablePrintStack bool                                              // Drop the stack text from the error
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithRecoverStackSize sets the maximum stack trace size.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.StackSize = size
	}
}

// WithRecoverDisablePrintStack drops the stack text from the returned error.
// Program counters are still captured for the debug page.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

// WithRecoverHook registers a callback invoked with every recovered panic,
// e.g. to report it to an error tracker.
func WithRecoverHook(fn func(c internal.Context, pe *internal.PanicError)) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.OnPanic = fn
	}
}

// Recover returns middleware that converts panics raised further down the
// pipeline into *internal.PanicError values returned as ordinary errors.
// The kernel already recovers panics at the dispatch boundary; Recover is
// useful when middleware placed before it must observe the failure as an
// error (logging, metrics, transactions). http.ErrAbortHandler is re-panicked.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := &RecoverConfig{
		StackSize: DefaultStackSize,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	stackSize := cfg.StackSize
	if cfg.DisablePrintStack {
		stackSize = 0
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				pe := internal.NewPanicError(r, stackSize, 1)
				if cfg.OnPanic != nil {
					cfg.OnPanic(c, pe)
				}
				err = pe
			}()

			return next(c)
		}
	}
}
