package anvil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil"
	"github.com/dmitrymomot/anvil/middlewares"
	"github.com/dmitrymomot/anvil/pkg/container"
	"github.com/dmitrymomot/anvil/pkg/throttle"
)

const middlewareYAML = `
global: [request_id]
aliases:
  limited: throttle
groups:
  stateless: [cors, limited, api]
priority: [request_id, cors, throttle, api]
`

type project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type projectController struct {
	id string
}

func (p *projectController) Inject(r *container.Resolver) error {
	id, err := container.Arg[string](r, "id")
	if err != nil {
		return err
	}
	p.id = id
	return nil
}

func (p *projectController) Show(c anvil.Context) (any, error) {
	if p.id == "0" {
		return nil, anvil.ErrNotFound("project not found")
	}
	return project{ID: p.id, Name: "Apollo"}, nil
}

func newApp(t *testing.T) *anvil.App {
	t.Helper()

	cfg, err := anvil.LoadMiddlewareConfig(fstest.MapFS{
		"middleware.yaml": &fstest.MapFile{Data: []byte(middlewareYAML)},
	}, "middleware.yaml")
	require.NoError(t, err)

	store := throttle.NewMemory()
	t.Cleanup(func() { _ = store.Close() })

	return anvil.New(
		anvil.WithMiddlewareConfig(cfg),
		anvil.WithMiddleware("request_id", middlewares.RequestID()),
		anvil.WithMiddleware("cors", middlewares.CORS()),
		anvil.WithMiddleware("api", middlewares.API()),
		anvil.WithMiddleware("throttle", middlewares.Throttle(throttle.New(store, 2, time.Minute))),
		anvil.WithRoutes(func(r anvil.Router) {
			r.Group(anvil.GroupAttributes{Prefix: "/api", Middleware: []string{"stateless"}}, func(r anvil.Router) {
				r.GET("/projects/{id}", anvil.Method("show", (*projectController).Show)).
					WhereNumber("id").
					Name("projects.show")
			})
			r.GET("/", anvil.Func(func(c anvil.Context) (any, error) {
				return "<h1>home</h1>", nil
			}))
		}),
		anvil.WithHealthChecks(),
	)
}

func TestApp_EndToEnd(t *testing.T) {
	t.Parallel()

	h := newApp(t).Handler()

	send := func(path string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := send("/api/projects/7", map[string]string{"Origin": "https://app.test", "Accept": "application/json"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "1", rec.Header().Get(middlewares.HeaderRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get(anvil.RequestIDHeader))

	var got project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, project{ID: "7", Name: "Apollo"}, got)

	rec = send("/api/projects/0", map[string]string{"X-Request-ID": "rid-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"not_found","message":"project not found","request_id":"rid-1"}}`, rec.Body.String())

	rec = send("/api/projects/7", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = send("/api/projects/abc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "constraint rejects non-numeric ids")
	assert.Empty(t, rec.Header().Get(anvil.RequestIDHeader), "globals only run on matched routes")

	rec = send("/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>home</h1>", rec.Body.String())

	rec = send("/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestApp_URL(t *testing.T) {
	t.Parallel()

	u, err := newApp(t).URL("projects.show", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/projects/42", u)

	_, err = newApp(t).URL("missing", nil)
	require.ErrorIs(t, err, anvil.ErrUnknownRouteName)
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	var (
		page int
		id   int64
	)
	app := anvil.New(anvil.WithRoutes(func(r anvil.Router) {
		r.GET("/items/{id}", anvil.Handle(func(c anvil.Context) error {
			id = anvil.Param[int64](c, "id")
			page = anvil.QueryDefault(c, "page", 1)
			return c.NoContent(http.StatusNoContent)
		}))
	}))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/12?page=x", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, 1, page)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	err := anvil.ErrValidation(anvil.ValidationErrors{"email": {"is required"}})
	assert.Equal(t, http.StatusUnprocessableEntity, anvil.StatusOf(err))
	assert.True(t, anvil.IsHTTPError(err))
	assert.Equal(t, "json_required", anvil.AsHTTPError(anvil.NewHTTPError(http.StatusNotAcceptable, "no", anvil.WithErrorCode("json_required"))).ErrorCode)
}
