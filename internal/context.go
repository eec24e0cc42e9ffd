package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// Component is the interface for renderable templates.
// This is compatible with templ.Component.
type Component interface {
	Render(ctx context.Context, w io.Writer) error
}

// Context provides request/response access and helper methods.
// It also implements context.Context by delegating to the underlying request context.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// Response returns the underlying http.ResponseWriter.
	Response() http.ResponseWriter

	// Context returns the request's context.Context.
	Context() context.Context

	// Param returns the path parameter value by name.
	// Returns empty string if the parameter doesn't exist.
	Param(name string) string

	// Params returns a copy of all path parameters bound by the matched route.
	Params() Params

	// Route returns the matched route, or nil before matching succeeded.
	Route() *Route

	// Query returns the query parameter value by name.
	// Returns empty string if the parameter doesn't exist.
	Query(name string) string

	// QueryDefault returns the query parameter value or a default.
	QueryDefault(name, defaultValue string) string

	// Header returns the request header value by name.
	Header(name string) string

	// SetHeader sets a response header.
	SetHeader(name, value string)

	// Cookie returns the value of the named request cookie.
	Cookie(name string) (string, error)

	// IsAjax reports whether the request was sent by a script
	// (X-Requested-With: XMLHttpRequest) or asks for JSON.
	IsAjax() bool

	// WantsJSON reports whether the Accept header names a JSON media type.
	WantsJSON() bool

	// ExpectsJSON reports whether the response should be JSON: the request
	// targets the API prefix, is an XHR, or accepts JSON.
	ExpectsJSON() bool

	// JSON writes v as a JSON response with the given status code.
	JSON(code int, v any) error

	// String writes a plain text response.
	String(code int, s string) error

	// HTML writes an HTML response.
	HTML(code int, html string) error

	// Blob writes raw bytes with the given content type.
	Blob(code int, contentType string, b []byte) error

	// NoContent writes a response with no body.
	NoContent(code int) error

	// Redirect sends an HTTP redirect.
	Redirect(code int, url string) error

	// Render renders a templ component with the given status code.
	Render(code int, component Component) error

	// Error creates an HTTPError without writing a response.
	// Return it from a handler to let the fault boundary render it.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError

	// Written returns true if the response has already been written.
	Written() bool

	// Container returns the application's dependency container.
	Container() *container.Container

	// Logger returns the request-scoped logger.
	Logger() *slog.Logger

	// LogDebug logs a debug message with the request context.
	LogDebug(msg string, attrs ...any)

	// LogInfo logs an info message with the request context.
	LogInfo(msg string, attrs ...any)

	// LogWarn logs a warning message with the request context.
	LogWarn(msg string, attrs ...any)

	// LogError logs an error message with the request context.
	LogError(msg string, attrs ...any)

	// Set stores a value in the request context.
	Set(key, value any)

	// Get retrieves a value from the request context.
	Get(key any) any
}

// Per-request fault states.
const (
	faultArmed int32 = iota
	faultHandling
	faultResponded
	faultFatal
)

// requestContext implements Context.
type requestContext struct {
	request   *http.Request
	response  *ResponseWriter
	logger    *slog.Logger
	container *container.Container
	route     *Route
	params    Params
	apiPrefix string
	fault     atomic.Int32
}

func newContext(w http.ResponseWriter, r *http.Request, app *App) *requestContext {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	return &requestContext{
		request:   r,
		response:  rw,
		logger:    app.logger,
		container: app.container,
		apiPrefix: app.apiPrefix,
	}
}

func (c *requestContext) bind(m *Match) {
	c.route = m.Route
	c.params = m.Params
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) Response() http.ResponseWriter {
	return c.response
}

func (c *requestContext) Context() context.Context {
	return c.request.Context()
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Param(name string) string {
	return c.params.Get(name)
}

func (c *requestContext) Params() Params {
	return maps.Clone(c.params)
}

func (c *requestContext) Route() *Route {
	return c.route
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) QueryDefault(name, defaultValue string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return defaultValue
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.response.Header().Set(name, value)
}

func (c *requestContext) Cookie(name string) (string, error) {
	ck, err := c.request.Cookie(name)
	if err != nil {
		return "", err
	}
	return ck.Value, nil
}

func (c *requestContext) IsAjax() bool {
	return isAjax(c.request)
}

func (c *requestContext) WantsJSON() bool {
	return acceptsJSON(c.request)
}

func (c *requestContext) ExpectsJSON() bool {
	return expectsJSON(c.request, c.apiPrefix)
}

func (c *requestContext) JSON(code int, v any) error {
	c.response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *requestContext) String(code int, s string) error {
	return c.Blob(code, "text/plain; charset=utf-8", []byte(s))
}

func (c *requestContext) HTML(code int, html string) error {
	return c.Blob(code, "text/html; charset=utf-8", []byte(html))
}

func (c *requestContext) Blob(code int, contentType string, b []byte) error {
	c.response.Header().Set("Content-Type", contentType)
	c.response.WriteHeader(code)
	_, err := c.response.Write(b)
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	http.Redirect(c.response, c.request, url, code)
	return nil
}

func (c *requestContext) Render(code int, component Component) error {
	c.response.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.response.WriteHeader(code)
	return component.Render(c.request.Context(), c.response)
}

func (c *requestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(code, message, opts...)
}

func (c *requestContext) Written() bool {
	return c.response.Written()
}

func (c *requestContext) Container() *container.Container {
	return c.container
}

func (c *requestContext) Logger() *slog.Logger {
	return c.logger
}

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.logger.DebugContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) Set(key, value any) {
	ctx := context.WithValue(c.request.Context(), key, value)
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

// isAjax mirrors the classic XHR detection: the X-Requested-With header or
// a JSON Accept header.
func isAjax(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") || acceptsJSON(r)
}

// acceptsJSON reports whether Accept names application/json or a +json type.
func acceptsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "/json") || strings.Contains(accept, "+json")
}

// expectsJSON decides the fault audience: API clients get JSON envelopes,
// browsers get pages.
func expectsJSON(r *http.Request, apiPrefix string) bool {
	if apiPrefix != "" && hasPathPrefix(r.URL.Path, apiPrefix) {
		return true
	}
	return isAjax(r)
}

func hasPathPrefix(p, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
