package throttle

import "errors"

var (
	// ErrClosed is returned when a hit is recorded on a closed store.
	ErrClosed = errors.New("throttle: store closed")

	// ErrStore wraps failures of the backing store.
	ErrStore = errors.New("throttle: store failure")
)
