package anvil

import (
	"context"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/logger"
)

// Type aliases - public API
type (
	// App is the request dispatch kernel.
	// It owns routing, middleware pipelines, the container and the fault boundary.
	App = internal.App

	// Router is the interface handlers use to declare routes.
	Router = internal.Router

	// Route is a single (method, pattern) to action binding.
	Route = internal.Route

	// Params holds the path parameters bound by a matched route.
	Params = internal.Params

	// GroupAttributes are the shared attributes of a route group.
	GroupAttributes = internal.GroupAttributes

	// RouteTable is the frozen route table of an App.
	RouteTable = internal.RouteTable

	// Match is the result of a successful route lookup.
	Match = internal.Match

	// TrailingSlashPolicy decides how non-canonical paths are handled.
	TrailingSlashPolicy = internal.TrailingSlashPolicy

	// Action is the target of a route.
	Action = internal.Action

	// ActionKind tells how an Action is invoked.
	ActionKind = internal.ActionKind

	// Context provides request/response access and helper methods.
	Context = internal.Context

	// Handler declares routes on a router.
	Handler = internal.Handler

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc to add cross-cutting concerns.
	Middleware = internal.Middleware

	// MiddlewareConfig holds the global list, aliases, groups and priority.
	MiddlewareConfig = internal.MiddlewareConfig

	// ErrorHandler renders faults in place of the built-in renderers.
	ErrorHandler = internal.ErrorHandler

	// Responder is a result that writes its own response.
	Responder = internal.Responder

	// ResponderFunc adapts a function to Responder.
	ResponderFunc = internal.ResponderFunc

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// Component is the interface for renderable templates.
	Component = internal.Component

	// HTTPError is an error carrying an HTTP status.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// ValidationErrors maps field names to their failures.
	ValidationErrors = internal.ValidationErrors

	// PanicError is a recovered panic.
	PanicError = internal.PanicError

	// HandlerResolutionError reports a route target the container could not build.
	HandlerResolutionError = internal.HandlerResolutionError

	// Extractor reads a value from the first source that has it.
	Extractor = internal.Extractor

	// ExtractorSource reads a single value from a request.
	ExtractorSource = internal.ExtractorSource

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// CheckFunc is a readiness check.
	CheckFunc = internal.CheckFunc

	// ResponseWriter wraps http.ResponseWriter and records what was written.
	ResponseWriter = internal.ResponseWriter

	// ContextExtractor extracts a slog attribute from context.
	// Used with WithLogger to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor

	// Scalar lists the types Param and Query convert to.
	Scalar = internal.Scalar
)

// Trailing slash policies.
const (
	TrailingSlashRedirect = internal.TrailingSlashRedirect
	TrailingSlashIgnore   = internal.TrailingSlashIgnore
)

// Action kinds.
const (
	ActionFunc    = internal.ActionFunc
	ActionHandler = internal.ActionHandler
	ActionMethod  = internal.ActionMethod
)

// Parameter patterns for Route.Where.
const (
	PatternNumber       = internal.PatternNumber
	PatternAlpha        = internal.PatternAlpha
	PatternAlphaNumeric = internal.PatternAlphaNumeric
	PatternSlug         = internal.PatternSlug
	PatternUUID         = internal.PatternUUID
)

// RequestIDHeader is the header error responses take the request id from.
const RequestIDHeader = internal.RequestIDHeader

// DefaultAPIPrefix is the path prefix whose faults are always rendered as JSON.
const DefaultAPIPrefix = internal.DefaultAPIPrefix

// Errors
var (
	ErrRouteNotFound           = internal.ErrRouteNotFound
	ErrUnknownRouteName        = internal.ErrUnknownRouteName
	ErrInvalidMiddlewareConfig = internal.ErrInvalidMiddlewareConfig
)

// Constructors

// New creates a new application with the given options.
// The App is immutable after creation.
//
// Example:
//
//	app := anvil.New(
//	    anvil.WithMiddleware("request_id", middlewares.RequestID()),
//	    anvil.WithGlobalMiddleware("request_id"),
//	    anvil.WithHandlers(handlers.NewUsers(repo)),
//	)
//
//	err := app.Run(":8080", anvil.Logger(log))
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// Actions

// Func wraps a function whose result is written by the kernel:
// nil writes nothing, a string becomes HTML, a Component is rendered and any
// other value is encoded as JSON.
func Func(fn func(c Context) (any, error)) Action {
	return internal.Func(fn)
}

// Handle wraps a HandlerFunc that writes its own response.
func Handle(h HandlerFunc) Action {
	return internal.Handle(h)
}

// Method targets a method of a controller built by the container on every
// request. Path parameters are passed to the container as arguments.
//
// Example:
//
//	r.GET("/users/{id}", anvil.Method("show", (*UserController).Show))
func Method[T any](name string, fn func(recv T, c Context) (any, error)) Action {
	return internal.Method(name, fn)
}

// App options

// WithRoutes registers a route declaration function.
func WithRoutes(fn func(r Router)) Option {
	return internal.WithRoutes(fn)
}

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return internal.WithHandlers(h...)
}

// WithDebug enables detailed fault responses. Never enable it in production.
func WithDebug(debug bool) Option {
	return internal.WithDebug(debug)
}

// WithAPIPrefix sets the path prefix whose faults are always JSON.
func WithAPIPrefix(prefix string) Option {
	return internal.WithAPIPrefix(prefix)
}

// WithTrailingSlash selects how non-canonical request paths are handled.
func WithTrailingSlash(policy TrailingSlashPolicy) Option {
	return internal.WithTrailingSlash(policy)
}

// WithContainer replaces the application's dependency container.
func WithContainer(c *container.Container) Option {
	return internal.WithContainer(c)
}

// WithProviders registers container bindings.
func WithProviders(fns ...func(c *container.Container)) Option {
	return internal.WithProviders(fns...)
}

// WithMiddleware binds a middleware under id.
func WithMiddleware(id string, mw Middleware) Option {
	return internal.WithMiddleware(id, mw)
}

// WithMiddlewareFactory binds a middleware built by the container per request.
func WithMiddlewareFactory(id string, fn func(r *container.Resolver) (Middleware, error)) Option {
	return internal.WithMiddlewareFactory(id, fn)
}

// WithMiddlewareConfig merges a middleware table.
//
// Example:
//
//	//go:embed middleware.yaml
//	var configFS embed.FS
//
//	cfg, err := anvil.LoadMiddlewareConfig(configFS, "middleware.yaml")
//	app := anvil.New(anvil.WithMiddlewareConfig(cfg))
func WithMiddlewareConfig(cfg *MiddlewareConfig) Option {
	return internal.WithMiddlewareConfig(cfg)
}

// WithGlobalMiddleware appends ids run on every matched route.
func WithGlobalMiddleware(ids ...string) Option {
	return internal.WithGlobalMiddleware(ids...)
}

// WithMiddlewareAlias maps a short name to a middleware id.
func WithMiddlewareAlias(alias, id string) Option {
	return internal.WithMiddlewareAlias(alias, id)
}

// WithMiddlewareGroup names a list of middleware usable as a single entry.
func WithMiddlewareGroup(name string, ids ...string) Option {
	return internal.WithMiddlewareGroup(name, ids...)
}

// WithMiddlewarePriority appends to the priority list.
func WithMiddlewarePriority(ids ...string) Option {
	return internal.WithMiddlewarePriority(ids...)
}

// WithErrorHandler replaces the built-in fault renderers.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	anvil.WithHealthChecks(
//	    anvil.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithLogger creates a logger with a component name and optional extractors.
//
// Example:
//
//	anvil.WithLogger("api", middlewares.RequestIDExtractor())
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// Health options

// WithLivenessPath sets a custom liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessTimeout bounds the whole readiness check run.
func WithReadinessTimeout(d time.Duration) HealthOption {
	return internal.WithReadinessTimeout(d)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Run options

// Logger sets the server logger. Defaults to the App's logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout bounds graceful shutdown.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook runs fn before the server starts listening.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook runs fn after the server stopped accepting requests. Hooks run
// newest first.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// TrustProxy takes the client address from X-Forwarded-For and X-Real-IP.
// Only enable it behind a proxy that sets those headers.
func TrustProxy() RunOption {
	return internal.TrustProxy()
}

// FrontMiddleware wraps the whole server, health endpoints included, with
// net/http middleware.
func FrontMiddleware(mw ...func(http.Handler) http.Handler) RunOption {
	return internal.FrontMiddleware(mw...)
}

// OnListen is called with the bound address once the listener is open.
func OnListen(fn func(addr net.Addr)) RunOption {
	return internal.OnListen(fn)
}

// WithContext sets the base context; cancelling it shuts the server down.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Middleware config

// ParseMiddlewareConfig parses and validates a YAML middleware table.
func ParseMiddlewareConfig(data []byte) (*MiddlewareConfig, error) {
	return internal.ParseMiddlewareConfig(data)
}

// LoadMiddlewareConfig reads a YAML middleware table from fsys.
func LoadMiddlewareConfig(fsys fs.FS, name string) (*MiddlewareConfig, error) {
	return internal.LoadMiddlewareConfig(fsys, name)
}

// Chain wraps endpoint with middlewares; the first one is outermost.
func Chain(endpoint HandlerFunc, middlewares ...Middleware) HandlerFunc {
	return internal.Chain(endpoint, middlewares...)
}

// Errors

// NewHTTPError creates an error with the given status and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// WithErrorCode sets the machine-readable code of an HTTPError.
func WithErrorCode(code string) HTTPErrorOption {
	return internal.WithErrorCode(code)
}

// WithError attaches the underlying cause.
func WithError(err error) HTTPErrorOption {
	return internal.WithError(err)
}

// WithFields attaches per-field failures.
func WithFields(fields ValidationErrors) HTTPErrorOption {
	return internal.WithFields(fields)
}

// Convenience constructors for common HTTP errors.
var (
	ErrBadRequest      = internal.ErrBadRequest
	ErrUnauthorized    = internal.ErrUnauthorized
	ErrForbidden       = internal.ErrForbidden
	ErrNotFound        = internal.ErrNotFound
	ErrNotAcceptable   = internal.ErrNotAcceptable
	ErrConflict        = internal.ErrConflict
	ErrValidation      = internal.ErrValidation
	ErrTooManyRequests = internal.ErrTooManyRequests
	ErrInternal        = internal.ErrInternal
)

// StatusOf returns the HTTP status an error maps to; unknown errors are 500.
func StatusOf(err error) int {
	return internal.StatusOf(err)
}

// IsHTTPError reports whether err wraps an HTTPError.
func IsHTTPError(err error) bool {
	return internal.IsHTTPError(err)
}

// AsHTTPError extracts the HTTPError from err, or nil.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// AsPanicError extracts the recovered panic from err.
func AsPanicError(err error) (*PanicError, bool) {
	return internal.AsPanicError(err)
}

// Extractors

// NewExtractor creates an Extractor trying sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// Extractor sources.
var (
	FromHeader      = internal.FromHeader
	FromQuery       = internal.FromQuery
	FromParam       = internal.FromParam
	FromCookie      = internal.FromCookie
	FromBearerToken = internal.FromBearerToken
	FromRemoteIP    = internal.FromRemoteIP
)

// Generic helpers

// Param returns the named path parameter converted to T.
//
// Example:
//
//	id := anvil.Param[int64](c, "id")
func Param[T Scalar](c Context, name string) T {
	return internal.Param[T](c, name)
}

// Query returns the named query parameter converted to T.
func Query[T Scalar](c Context, name string) T {
	return internal.Query[T](c, name)
}

// QueryDefault returns the named query parameter converted to T, or defaultValue.
//
// Example:
//
//	page := anvil.QueryDefault(c, "page", 1)
func QueryDefault[T Scalar](c Context, name string, defaultValue T) T {
	return internal.QueryDefault(c, name, defaultValue)
}

// ContextValue returns the value stored under key, or the zero value of T.
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}

// Resolve builds T from the request's container with the path parameters as
// arguments.
func Resolve[T any](c Context) (T, error) {
	return internal.Resolve[T](c)
}
