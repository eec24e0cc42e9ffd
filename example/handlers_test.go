package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/anvil/pkg/throttle"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()

	store := throttle.NewMemory(throttle.WithCleanupInterval(0))
	t.Cleanup(func() { _ = store.Close() })

	cfg := Config{APIToken: "secret", RateLimit: 100, RateWindow: time.Minute}
	app, err := newApp(cfg, slog.New(slog.DiscardHandler), store)
	require.NoError(t, err)
	return app
}

func postNote(app http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestNotesAPI_Create(t *testing.T) {
	t.Parallel()

	t.Run("stores the note", func(t *testing.T) {
		t.Parallel()

		rec := postNote(newTestApp(t), `{"body":"  buy milk  "}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var n Note
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
		assert.Equal(t, "buy milk", n.Body)
		assert.Equal(t, "/api/notes/"+n.ID, rec.Header().Get("Location"))
	})

	t.Run("field failures become a 422", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			body    string
			message string
		}{
			{"blank body", `{"body":"   "}`, "is required"},
			{"missing body", `{}`, "is required"},
			{"too long", `{"body":"` + strings.Repeat("x", 2001) + `"}`, "must be at most 2000 characters"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				rec := postNote(newTestApp(t), tt.body)
				require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

				var env struct {
					Error struct {
						Errors map[string][]string `json:"errors"`
						Code   string              `json:"code"`
					} `json:"error"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
				assert.Equal(t, "unprocessable_entity", env.Error.Code)
				assert.Equal(t, map[string][]string{"body": {tt.message}}, env.Error.Errors)
			})
		}
	})

	t.Run("malformed JSON is a 400", func(t *testing.T) {
		t.Parallel()

		rec := postNote(newTestApp(t), `{"body":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires the API token", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(`{"body":"x"}`))
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		newTestApp(t).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
