package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/pkg/container"
)

func serve(app http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NotNil(t, env.Error)
	return env.Error
}

// trace returns a middleware recording id in the X-Trace response header.
func trace(id string) internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			c.Response().Header().Add("X-Trace", id)
			return next(c)
		}
	}
}

type greeting string

func (g greeting) Render(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, "<p>"+string(g)+"</p>")
	return err
}

type userController struct {
	id string
}

func (u *userController) Inject(r *container.Resolver) error {
	id, err := container.Arg[string](r, "id")
	if err != nil {
		return err
	}
	u.id = id
	return nil
}

func (u *userController) Show(c internal.Context) (any, error) {
	return map[string]string{"id": u.id}, nil
}

type guardedController struct{}

func (g *guardedController) Inject(*container.Resolver) error {
	return internal.ErrUnauthorized("")
}

func (g *guardedController) Show(c internal.Context) (any, error) {
	return "secret", nil
}

type mailer interface {
	Send(to string) error
}

type signupController struct {
	mailer mailer
}

func (s *signupController) Inject(r *container.Resolver) error {
	m, err := container.Get[mailer](r)
	if err != nil {
		return err
	}
	s.mailer = m
	return nil
}

func (s *signupController) Create(c internal.Context) (any, error) {
	return nil, s.mailer.Send("x@example.com")
}

func TestApp_ActionResults(t *testing.T) {
	t.Parallel()

	app := internal.New(internal.WithRoutes(func(r internal.Router) {
		r.GET("/json", internal.Func(func(c internal.Context) (any, error) {
			return map[string]int{"n": 1}, nil
		}))
		r.GET("/html", internal.Func(func(c internal.Context) (any, error) {
			return "<b>hi</b>", nil
		}))
		r.GET("/bytes", internal.Func(func(c internal.Context) (any, error) {
			return []byte{1, 2, 3}, nil
		}))
		r.GET("/component", internal.Func(func(c internal.Context) (any, error) {
			return greeting("hello"), nil
		}))
		r.GET("/responder", internal.Func(func(c internal.Context) (any, error) {
			return internal.ResponderFunc(func(c internal.Context) error {
				return c.NoContent(http.StatusAccepted)
			}), nil
		}))
		r.GET("/nil", internal.Func(func(c internal.Context) (any, error) {
			return nil, nil
		}))
		r.GET("/written", internal.Func(func(c internal.Context) (any, error) {
			return "ignored", c.String(http.StatusCreated, "done")
		}))
		r.GET("/handle", internal.Handle(func(c internal.Context) error {
			return c.String(http.StatusOK, "plain")
		}))
	}))

	tests := []struct {
		path        string
		status      int
		contentType string
		body        string
	}{
		{"/json", http.StatusOK, "application/json; charset=utf-8", "{\"n\":1}\n"},
		{"/html", http.StatusOK, "text/html; charset=utf-8", "<b>hi</b>"},
		{"/bytes", http.StatusOK, "application/octet-stream", "\x01\x02\x03"},
		{"/component", http.StatusOK, "text/html; charset=utf-8", "<p>hello</p>"},
		{"/responder", http.StatusAccepted, "", ""},
		{"/nil", http.StatusOK, "", ""},
		{"/written", http.StatusCreated, "text/plain; charset=utf-8", "done"},
		{"/handle", http.StatusOK, "text/plain; charset=utf-8", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			w := serve(app, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, w.Code)
			require.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			require.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestApp_MethodAction(t *testing.T) {
	t.Parallel()

	t.Run("receiver built with path parameters", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/users/{id}", internal.Method("users.show", (*userController).Show)).WhereNumber("id")
		}))

		w := serve(app, httptest.NewRequest(http.MethodGet, "/users/42", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"id":"42"}`, w.Body.String())
	})

	t.Run("unresolvable dependency is a 500", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.POST("/signup", internal.Method("signup.create", (*signupController).Create))
		}))

		req := httptest.NewRequest(http.MethodPost, "/signup", nil)
		req.Header.Set("Accept", "application/json")
		w := serve(app, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeEnvelope(t, w)
		require.Equal(t, "internal_server_error", body["code"])
		require.NotContains(t, w.Body.String(), "mailer")
	})

	t.Run("http error from Inject keeps its status", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/secret", internal.Method("secret.show", (*guardedController).Show))
		}))

		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("Accept", "application/json")
		w := serve(app, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeEnvelope(t, w)
		require.Equal(t, "unauthorized", body["code"])
		require.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("zero action is a resolution failure", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/empty", internal.Action{})
		}))

		w := serve(app, httptest.NewRequest(http.MethodGet, "/empty", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestApp_MiddlewarePipeline(t *testing.T) {
	t.Parallel()

	t.Run("global, group and route middleware in priority order", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithMiddleware("request_id", trace("request_id")),
			internal.WithMiddleware("auth.session", trace("auth")),
			internal.WithMiddleware("cors", trace("cors")),
			internal.WithMiddleware("audit", trace("audit")),
			internal.WithGlobalMiddleware("request_id"),
			internal.WithMiddlewareAlias("auth", "auth.session"),
			internal.WithMiddlewareGroup("admin", "auth", "audit"),
			internal.WithMiddlewarePriority("cors", "auth"),
			internal.WithRoutes(func(r internal.Router) {
				r.Group(internal.GroupAttributes{Middleware: []string{"admin"}}, func(r internal.Router) {
					r.GET("/admin", internal.Handle(noop)).Middleware("cors", "request_id")
				})
			}),
		)

		w := serve(app, httptest.NewRequest(http.MethodGet, "/admin", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []string{"request_id", "cors", "audit", "auth"}, w.Header().Values("X-Trace"))
	})

	t.Run("short-circuit skips the action", func(t *testing.T) {
		t.Parallel()

		var called atomic.Bool
		app := internal.New(
			internal.WithMiddleware("deny", func(next internal.HandlerFunc) internal.HandlerFunc {
				return func(c internal.Context) error {
					return internal.ErrForbidden("Members only")
				}
			}),
			internal.WithRoutes(func(r internal.Router) {
				r.GET("/secret", internal.Handle(func(c internal.Context) error {
					called.Store(true)
					return nil
				})).Middleware("deny")
			}),
		)

		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		w := serve(app, req)

		require.False(t, called.Load())
		require.Equal(t, http.StatusForbidden, w.Code)
		body := decodeEnvelope(t, w)
		require.Equal(t, "forbidden", body["code"])
		require.Equal(t, "Members only", body["message"])
	})

	t.Run("unknown middleware is a 500", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/x", internal.Handle(noop)).Middleware("missing")
		}))

		w := serve(app, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	})

	t.Run("non-middleware binding is a 500", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithProviders(func(c *container.Container) {
				c.RegisterInstance(internal.MiddlewareKey("bogus"), 42)
			}),
			internal.WithRoutes(func(r internal.Router) {
				r.GET("/api/x", internal.Handle(noop)).Middleware("bogus")
			}),
		)

		w := serve(app, httptest.NewRequest(http.MethodGet, "/api/x", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		decodeEnvelope(t, w)
	})

	t.Run("factory middleware is built per request", func(t *testing.T) {
		t.Parallel()

		var built atomic.Int32
		app := internal.New(
			internal.WithMiddlewareFactory("counter", func(r *container.Resolver) (internal.Middleware, error) {
				built.Add(1)
				return trace("counter"), nil
			}),
			internal.WithRoutes(func(r internal.Router) {
				r.GET("/x", internal.Handle(noop)).Middleware("counter")
			}),
		)

		serve(app, httptest.NewRequest(http.MethodGet, "/x", nil))
		serve(app, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, int32(2), built.Load())
	})

	t.Run("global middleware does not run for unmatched requests", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithMiddleware("request_id", trace("request_id")),
			internal.WithGlobalMiddleware("request_id"),
		)

		w := serve(app, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Empty(t, w.Header().Values("X-Trace"))
	})

	t.Run("middleware registered after New is picked up", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/late", internal.Handle(noop)).Middleware("late")
		}))

		w := serve(app, httptest.NewRequest(http.MethodGet, "/late", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		app.RegisterMiddleware("late", trace("late"))
		w = serve(app, httptest.NewRequest(http.MethodGet, "/late", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []string{"late"}, w.Header().Values("X-Trace"))
	})
}

func TestApp_NotFound(t *testing.T) {
	t.Parallel()

	app := internal.New(internal.WithRoutes(func(r internal.Router) {
		r.GET("/users", internal.Handle(noop))
	}))

	t.Run("browser gets a page", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		req.Header.Set("Accept", "text/html")
		w := serve(app, req)

		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		require.Contains(t, w.Body.String(), "The requested resource was not found.")
	})

	t.Run("json client gets JSON outside the api prefix", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		req.Header.Set("Accept", "application/json")
		w := serve(app, req)

		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		body := decodeEnvelope(t, w)
		require.Equal(t, "not_found", body["code"])
		require.Equal(t, "The requested resource was not found.", body["message"])
	})

	t.Run("api prefix gets JSON", func(t *testing.T) {
		t.Parallel()

		w := serve(app, httptest.NewRequest(http.MethodGet, "/api/users", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		body := decodeEnvelope(t, w)
		require.Equal(t, "not_found", body["code"])
		require.Equal(t, "The requested resource was not found.", body["message"])
	})

	t.Run("wrong method is a 404", func(t *testing.T) {
		t.Parallel()

		w := serve(app, httptest.NewRequest(http.MethodDelete, "/users", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/none", nil)
		req.Header.Set(internal.RequestIDHeader, "req-123")
		body := decodeEnvelope(t, serve(app, req))
		require.Equal(t, "req-123", body["request_id"])
	})
}

func TestApp_TrailingSlash(t *testing.T) {
	t.Parallel()

	routes := internal.WithRoutes(func(r internal.Router) {
		r.Any("/users", internal.Handle(func(c internal.Context) error {
			return c.String(http.StatusOK, "users")
		}))
	})

	t.Run("GET redirects permanently with query", func(t *testing.T) {
		t.Parallel()

		w := serve(internal.New(routes), httptest.NewRequest(http.MethodGet, "/users/?page=2", nil))
		require.Equal(t, http.StatusMovedPermanently, w.Code)
		require.Equal(t, "/users?page=2", w.Header().Get("Location"))
	})

	t.Run("POST keeps its method", func(t *testing.T) {
		t.Parallel()

		w := serve(internal.New(routes), httptest.NewRequest(http.MethodPost, "/users/", nil))
		require.Equal(t, http.StatusPermanentRedirect, w.Code)
		require.Equal(t, "/users", w.Header().Get("Location"))
	})

	t.Run("ignore policy serves directly", func(t *testing.T) {
		t.Parallel()

		app := internal.New(routes, internal.WithTrailingSlash(internal.TrailingSlashIgnore))
		w := serve(app, httptest.NewRequest(http.MethodGet, "/users/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "users", w.Body.String())
	})
}

func TestApp_Panics(t *testing.T) {
	t.Parallel()

	routes := internal.WithRoutes(func(r internal.Router) {
		r.GET("/api/boom", internal.Handle(func(c internal.Context) error {
			panic("kaboom")
		}))
		r.GET("/abort", internal.Handle(func(c internal.Context) error {
			panic(http.ErrAbortHandler)
		}))
	})

	t.Run("panic becomes a 500 without details", func(t *testing.T) {
		t.Parallel()

		w := serve(internal.New(routes), httptest.NewRequest(http.MethodGet, "/api/boom", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeEnvelope(t, w)
		require.NotContains(t, body["message"], "kaboom")
		require.Nil(t, body["debug"])
	})

	t.Run("debug mode exposes the trace", func(t *testing.T) {
		t.Parallel()

		app := internal.New(routes, internal.WithDebug(true))
		w := serve(app, httptest.NewRequest(http.MethodGet, "/api/boom", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		body := decodeEnvelope(t, w)
		require.Equal(t, "panic: kaboom", body["message"])
		debug, ok := body["debug"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "*internal.PanicError", debug["type"])
		require.Equal(t, "/api/boom", debug["route"])
		require.NotEmpty(t, debug["trace"])
	})

	t.Run("abort handler propagates", func(t *testing.T) {
		t.Parallel()

		app := internal.New(routes)
		require.PanicsWithValue(t, http.ErrAbortHandler, func() {
			serve(app, httptest.NewRequest(http.MethodGet, "/abort", nil))
		})
	})
}

func TestApp_Faults(t *testing.T) {
	t.Parallel()

	t.Run("plain errors hide their message in production", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/", internal.Func(func(c internal.Context) (any, error) {
				return nil, errors.New("dsn=postgres://secret")
			}))
		}))

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotContains(t, w.Body.String(), "secret")
		require.Contains(t, w.Body.String(), "An unexpected error occurred.")
	})

	t.Run("debug page shows the cause", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithDebug(true), internal.WithRoutes(func(r internal.Router) {
			r.GET("/orders/{id}", internal.Func(func(c internal.Context) (any, error) {
				return nil, errors.New("order <lookup> failed")
			}))
		}))

		req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		w := serve(app, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := w.Body.String()
		require.Contains(t, body, "order &lt;lookup&gt; failed")
		require.Contains(t, body, "/orders/{id}")
		require.Contains(t, body, "[redacted]")
		require.NotContains(t, body, "secret-token")
	})

	t.Run("validation errors carry fields", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.POST("/api/users", internal.Func(func(c internal.Context) (any, error) {
				return nil, internal.ErrValidation(internal.ValidationErrors{"email": {"is required"}})
			}))
		}))

		w := serve(app, httptest.NewRequest(http.MethodPost, "/api/users", nil))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeEnvelope(t, w)
		require.Equal(t, "unprocessable_entity", body["code"])
		require.Equal(t, map[string]any{"email": []any{"is required"}}, body["errors"])
	})

	t.Run("client error message is sanitized", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/", internal.Func(func(c internal.Context) (any, error) {
				return nil, internal.ErrBadRequest("bad <script>alert(1)</script>input")
			}))
		}))

		w := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotContains(t, w.Body.String(), "<script>alert")
	})

	t.Run("error after the response started keeps the response", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/stream", internal.Handle(func(c internal.Context) error {
				_ = c.String(http.StatusOK, "partial")
				return errors.New("late failure")
			}))
		}))

		w := serve(app, httptest.NewRequest(http.MethodGet, "/stream", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "partial", w.Body.String())
	})

	t.Run("custom error handler replaces renderers", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithErrorHandler(func(c internal.Context, err error) error {
				return c.String(internal.StatusOf(err), "custom: "+err.Error())
			}),
		)

		w := serve(app, httptest.NewRequest(http.MethodGet, "/none", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "custom: route not found", w.Body.String())
	})

	t.Run("failing error handler falls back to plain 500", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithErrorHandler(func(c internal.Context, err error) error {
				return errors.New("renderer broken")
			}),
		)

		w := serve(app, httptest.NewRequest(http.MethodGet, "/none", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		require.Equal(t, "500 Internal Server Error\n", w.Body.String())
	})

	t.Run("panicking error handler falls back to plain 500", func(t *testing.T) {
		t.Parallel()

		app := internal.New(
			internal.WithErrorHandler(func(c internal.Context, err error) error {
				panic("renderer panicked")
			}),
		)

		w := serve(app, httptest.NewRequest(http.MethodGet, "/none", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "500 Internal Server Error\n", w.Body.String())
	})

	t.Run("fault raised while handling another is fatal", func(t *testing.T) {
		t.Parallel()

		var app *internal.App
		app = internal.New(
			internal.WithErrorHandler(func(c internal.Context, err error) error {
				app.HandleFault(c, errors.New("nested"))
				return nil
			}),
		)

		w := serve(app, httptest.NewRequest(http.MethodGet, "/none", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "500 Internal Server Error\n", w.Body.String())
	})

	t.Run("second fault after response is only logged", func(t *testing.T) {
		t.Parallel()

		var app *internal.App
		app = internal.New(internal.WithRoutes(func(r internal.Router) {
			r.GET("/twice", internal.Handle(func(c internal.Context) error {
				app.HandleFault(c, internal.ErrConflict("first"))
				return internal.ErrNotFound("second")
			}))
		}))

		req := httptest.NewRequest(http.MethodGet, "/twice", nil)
		req.Header.Set("Accept", "application/json")
		w := serve(app, req)
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, 1, strings.Count(w.Body.String(), `"error"`))
	})
}

func TestApp_URL(t *testing.T) {
	t.Parallel()

	app := internal.New(internal.WithRoutes(func(r internal.Router) {
		r.GET("/users/{id}", internal.Handle(noop)).Name("users.show")
		r.GET("/files/{name}", internal.Handle(func(c internal.Context) error {
			return c.String(http.StatusOK, c.Param("name"))
		})).Name("files.show")
	}))

	u, err := app.URL("users.show", map[string]string{"id": "9"})
	require.NoError(t, err)
	require.Equal(t, "/users/9", u)
	require.Len(t, app.Routes().Routes(), 2)

	t.Run("encoded slash round-trips", func(t *testing.T) {
		t.Parallel()

		u, err := app.URL("files.show", map[string]string{"name": "a/b"})
		require.NoError(t, err)
		require.Equal(t, "/files/a%2Fb", u)

		w := serve(app, httptest.NewRequest(http.MethodGet, u, nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "a/b", w.Body.String())
	})
}
