package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/internal"
	"github.com/dmitrymomot/anvil/middlewares"
	"github.com/dmitrymomot/anvil/pkg/throttle"
)

type failingStore struct{}

func (failingStore) Take(context.Context, string, int64, time.Duration) (throttle.Result, error) {
	return throttle.Result{}, throttle.ErrStore
}

func newLimiter(t *testing.T, limit int64) *throttle.Limiter {
	t.Helper()
	store := throttle.NewMemory(throttle.WithCleanupInterval(time.Hour))
	t.Cleanup(func() { _ = store.Close() })
	return throttle.New(store, limit, time.Minute)
}

func hit(mw internal.Middleware, remoteAddr string, headers map[string]string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	err := mw(func(c internal.Context) error {
		return c.NoContent(http.StatusNoContent)
	})(newTestContext(rec, req))
	return rec, err
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.Throttle(newLimiter(t, 3))

		for i := range 3 {
			rec, err := hit(mw, "203.0.113.5:4000", nil)
			require.NoError(t, err)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "3", rec.Header().Get(middlewares.HeaderRateLimitLimit))
			assert.Equal(t, strconv.Itoa(2-i), rec.Header().Get(middlewares.HeaderRateLimitRemaining))
			assert.Empty(t, rec.Header().Get(middlewares.HeaderRetryAfter))
		}

		rec, err := hit(mw, "203.0.113.5:4001", nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusTooManyRequests, internal.StatusOf(err))
		assert.Equal(t, "0", rec.Header().Get(middlewares.HeaderRateLimitRemaining))

		retry, convErr := strconv.Atoi(rec.Header().Get(middlewares.HeaderRetryAfter))
		require.NoError(t, convErr)
		// Three per minute refills one request every 20 seconds.
		assert.InDelta(t, 20, retry, 1)
	})

	t.Run("clients are counted separately", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.Throttle(newLimiter(t, 1))

		_, err := hit(mw, "203.0.113.5:4000", nil)
		require.NoError(t, err)
		_, err = hit(mw, "198.51.100.9:4000", nil)
		require.NoError(t, err)
		_, err = hit(mw, "203.0.113.5:4000", nil)
		require.Error(t, err)
	})

	t.Run("custom key", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.Throttle(newLimiter(t, 1), middlewares.WithThrottleKey(internal.FromHeader("X-API-Key"), internal.FromRemoteIP()))

		_, err := hit(mw, "203.0.113.5:1", map[string]string{"X-API-Key": "team-a"})
		require.NoError(t, err)
		_, err = hit(mw, "203.0.113.5:1", map[string]string{"X-API-Key": "team-b"})
		require.NoError(t, err)
		_, err = hit(mw, "198.51.100.9:1", map[string]string{"X-API-Key": "team-a"})
		require.Error(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		_, err := hit(middlewares.Throttle(throttle.New(failingStore{}, 1, time.Minute)), "203.0.113.5:1", nil)
		require.ErrorIs(t, err, throttle.ErrStore)
		assert.Equal(t, http.StatusInternalServerError, internal.StatusOf(err))

		rec, err := hit(middlewares.Throttle(throttle.New(failingStore{}, 1, time.Minute), middlewares.WithThrottleFailOpen()), "203.0.113.5:1", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get(middlewares.HeaderRateLimitLimit))
	})
}

func TestThrottle_PerRouteBudget(t *testing.T) {
	t.Parallel()

	app := internal.New(
		internal.WithMiddleware("throttle", middlewares.Throttle(newLimiter(t, 1))),
		internal.WithRoutes(func(r internal.Router) {
			ok := internal.Func(func(c internal.Context) (any, error) { return map[string]bool{"ok": true}, nil })
			r.GET("/api/a", ok).Middleware("throttle")
			r.GET("/api/b", ok).Middleware("throttle")
		}),
	)

	send := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, send("/api/a").Code)
	assert.Equal(t, http.StatusOK, send("/api/b").Code)

	rec := send("/api/a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middlewares.HeaderRetryAfter))
	assert.JSONEq(t, `{"error":{"code":"too_many_requests","message":"Too many requests, please slow down"}}`, rec.Body.String())
}
