// Package middlewares provides the stock middleware of Anvil applications.
//
// Each constructor returns an anvil.Middleware. Middleware is bound under an
// id with anvil.WithMiddleware and referenced from routes, groups and the
// global list by that id.
//
// # Request ID
//
// RequestID reuses a well-formed upstream id or generates a UUID, stores it
// in the request context and echoes it in X-Request-ID. Error responses
// include it as request_id.
//
//	app := anvil.New(
//	    anvil.WithLogger("web", middlewares.RequestIDExtractor()),
//	    anvil.WithMiddleware("request_id", middlewares.RequestID()),
//	    anvil.WithGlobalMiddleware("request_id"),
//	)
//
// # Recover
//
// The kernel already turns panics into 500 responses. Recover converts them
// into *anvil.PanicError values earlier in the pipeline so surrounding
// middleware sees an ordinary error, and offers a hook for error trackers.
//
//	anvil.WithMiddleware("recover", middlewares.Recover(
//	    middlewares.WithRecoverHook(func(c anvil.Context, pe *anvil.PanicError) {
//	        sentry.CaptureException(pe)
//	    }),
//	))
//
// # CORS
//
// CORS adds Access-Control headers for allowed origins and answers
// preflight requests with 204.
//
//	anvil.WithMiddleware("cors", middlewares.CORS(
//	    middlewares.WithAllowOrigins("https://app.example.com"),
//	    middlewares.WithAllowCredentials(),
//	))
//
// # API
//
// API answers OPTIONS with 204 and rejects clients whose Accept header
// excludes JSON with 406.
//
// # Auth
//
// Auth reads a credential (the bearer token by default), resolves it with an
// Authenticator and rejects the request with 401 when that fails. The
// identity is available to later middleware and actions through Identity
// and IdentityAs.
//
//	anvil.WithMiddleware("auth", middlewares.Auth(func(ctx context.Context, token string) (any, error) {
//	    return users.ByToken(ctx, token)
//	}))
//
// # Throttle
//
// Throttle limits requests per client and route with a throttle.Limiter
// backed by memory or Redis.
//
//	limiter := throttle.New(throttle.NewRedis(client), 60, time.Minute)
//	anvil.WithMiddleware("throttle", middlewares.Throttle(limiter))
//
// # Groups
//
// A typical middleware table:
//
//	global:   [request_id]
//	groups:   {web: [recover], stateless: [cors, throttle, api]}
//	priority: [request_id, recover, cors, throttle, auth, api]
package middlewares
