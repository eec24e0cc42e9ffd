package middlewares_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
)

// testContext is a minimal internal.Context over a recorder, so middleware
// can be exercised without building an App.
type testContext struct {
	response http.ResponseWriter
	request  *http.Request
	params   internal.Params
	values   map[any]any
	written  bool
}

func newTestContext(w http.ResponseWriter, r *http.Request) *testContext {
	return &testContext{
		response: w,
		request:  r,
		values:   make(map[any]any),
	}
}

func (c *testContext) Request() *http.Request        { return c.request }
func (c *testContext) Response() http.ResponseWriter { return c.response }
func (c *testContext) Context() context.Context      { return c.request.Context() }
func (c *testContext) Param(name string) string      { return c.params.Get(name) }
func (c *testContext) Params() internal.Params       { return maps.Clone(c.params) }
func (c *testContext) Route() *internal.Route        { return nil }

func (c *testContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *testContext) QueryDefault(name, defaultValue string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return defaultValue
}

func (c *testContext) Header(name string) string    { return c.request.Header.Get(name) }
func (c *testContext) SetHeader(name, value string) { c.response.Header().Set(name, value) }

func (c *testContext) Cookie(name string) (string, error) {
	ck, err := c.request.Cookie(name)
	if err != nil {
		return "", err
	}
	return ck.Value, nil
}

func (c *testContext) IsAjax() bool {
	return c.request.Header.Get("X-Requested-With") == "XMLHttpRequest" || c.WantsJSON()
}
func (c *testContext) WantsJSON() bool   { return strings.Contains(c.request.Header.Get("Accept"), "json") }
func (c *testContext) ExpectsJSON() bool { return c.IsAjax() }

func (c *testContext) JSON(code int, v any) error {
	c.response.Header().Set("Content-Type", "application/json")
	c.writeHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *testContext) String(code int, s string) error {
	return c.Blob(code, "text/plain; charset=utf-8", []byte(s))
}

func (c *testContext) HTML(code int, s string) error {
	return c.Blob(code, "text/html; charset=utf-8", []byte(s))
}

func (c *testContext) Blob(code int, contentType string, b []byte) error {
	c.response.Header().Set("Content-Type", contentType)
	c.writeHeader(code)
	_, err := c.response.Write(b)
	return err
}

func (c *testContext) NoContent(code int) error { c.writeHeader(code); return nil }

func (c *testContext) Redirect(code int, url string) error {
	c.written = true
	http.Redirect(c.response, c.request, url, code)
	return nil
}

func (c *testContext) Render(code int, component internal.Component) error {
	c.writeHeader(code)
	return component.Render(c.request.Context(), c.response)
}

func (c *testContext) Error(code int, message string, opts ...internal.HTTPErrorOption) *internal.HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

func (c *testContext) Written() bool                     { return c.written }
func (c *testContext) Container() *container.Container   { return nil }
func (c *testContext) Logger() *slog.Logger              { return slog.New(slog.DiscardHandler) }
func (c *testContext) LogDebug(msg string, attrs ...any) {}
func (c *testContext) LogInfo(msg string, attrs ...any)  {}
func (c *testContext) LogWarn(msg string, attrs ...any)  {}
func (c *testContext) LogError(msg string, attrs ...any) {}

func (c *testContext) Set(key, value any) {
	c.values[key] = value
	// Also store in request context for context extractors
	c.request = c.request.WithContext(context.WithValue(c.request.Context(), key, value))
}

func (c *testContext) Get(key any) any {
	return c.values[key]
}

func (c *testContext) Deadline() (time.Time, bool) { return c.request.Context().Deadline() }
func (c *testContext) Done() <-chan struct{}       { return c.request.Context().Done() }
func (c *testContext) Err() error                  { return c.request.Context().Err() }
func (c *testContext) Value(key any) any           { return c.request.Context().Value(key) }

func (c *testContext) writeHeader(code int) {
	if c.written {
		return
	}
	c.written = true
	c.response.WriteHeader(code)
}

var _ internal.Context = (*testContext)(nil)
