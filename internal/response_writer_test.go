package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseWriter_WriteHeader(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rw.Status())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, rw.Written())
}

func TestResponseWriter_WriteHeader_OnlyOnce(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	rw.WriteHeader(http.StatusOK)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, rw.Status())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponseWriter_Write(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	n, err := rw.Write([]byte("hello world"))
	require.NoError(t, err)

	assert.Equal(t, 11, n)
	assert.Equal(t, int64(11), rw.Size())
	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
}

func TestResponseWriter_OnBeforeWrite(t *testing.T) {
	t.Parallel()

	t.Run("hooks run in order and once", func(t *testing.T) {
		t.Parallel()

		rw := NewResponseWriter(httptest.NewRecorder())

		var order []int
		rw.OnBeforeWrite(func() { order = append(order, 1) })
		rw.OnBeforeWrite(func() { order = append(order, 2) })

		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("data"))

		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("hook runs on implicit write", func(t *testing.T) {
		t.Parallel()

		rw := NewResponseWriter(httptest.NewRecorder())

		called := false
		rw.OnBeforeWrite(func() { called = true })
		_, _ = rw.Write([]byte("data"))

		assert.True(t, called)
	})

	t.Run("hook can still set headers", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := NewResponseWriter(w)
		rw.OnBeforeWrite(func() { rw.Header().Set("X-Hook", "yes") })

		rw.WriteHeader(http.StatusAccepted)

		assert.Equal(t, "yes", w.Header().Get("X-Hook"))
	})
}

func TestResponseWriter_Flush(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	rw.Flush()

	assert.True(t, w.Flushed)
	assert.True(t, rw.Written())
}

func TestResponseWriter_Unwrap(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	assert.Same(t, w, rw.Unwrap())
}
