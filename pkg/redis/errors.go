package redis

import "errors"

// Open errors. The go-redis cause, when there is one, is joined.
var (
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")
	ErrFailedToParseURL   = errors.New("redis: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("redis: failed to establish connection")
	// ErrUnsupportedServer means the server predates EXPIRE ... NX, which the
	// throttle store relies on.
	ErrUnsupportedServer = errors.New("redis: server version below 7.0")
)

// Healthcheck errors.
var (
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
	ErrSlowResponse      = errors.New("redis: ping exceeded latency budget")
)
