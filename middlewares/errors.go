package middlewares

import (
	"errors"

	"github.com/dmitrymomot/anvil/internal"
)

// ErrNoCredentials is the cause of the 401 returned by Auth when the request
// carries no credential.
var ErrNoCredentials = errors.New("no credentials")

// IsPanicError returns true if the error is a recovered panic.
func IsPanicError(err error) bool {
	_, ok := internal.AsPanicError(err)
	return ok
}

// AsPanicError extracts the recovered panic from an error if present.
func AsPanicError(err error) (*internal.PanicError, bool) {
	return internal.AsPanicError(err)
}
