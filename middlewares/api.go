package middlewares

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/anvil/internal"
)

// MessageAPIRequiresJSON is returned when an API client refuses JSON.
const MessageAPIRequiresJSON = "API requires Accept: application/json header"

// API returns middleware for JSON API routes.
//
// OPTIONS requests are answered with 204 so preflights that got past CORS do
// not hit the route. Requests whose Accept header is present but does not
// admit application/json are rejected with 406. A missing Accept header is
// treated as accepting anything.
func API() internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			if accept := c.Header("Accept"); accept != "" && !acceptsJSON(accept) {
				return internal.ErrNotAcceptable(MessageAPIRequiresJSON, internal.WithErrorCode("json_required"))
			}

			return next(c)
		}
	}
}

func acceptsJSON(accept string) bool {
	for part := range strings.SplitSeq(accept, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		switch strings.TrimSpace(strings.ToLower(mediaType)) {
		case "application/json", "application/*", "*/*":
			return true
		}
		if strings.HasSuffix(strings.TrimSpace(mediaType), "+json") {
			return true
		}
	}
	return false
}
