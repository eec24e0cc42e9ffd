package internal

import (
	"bufio"
	"net"
	"net/http"
	"sync"
)

// ResponseWriter wraps http.ResponseWriter so the kernel can tell whether a
// response has been committed. The fault boundary relies on it to avoid
// writing a second response.
type ResponseWriter struct {
	http.ResponseWriter
	beforeWrite []func()
	status      int
	size        int64
	mu          sync.Mutex
	written     bool
}

// NewResponseWriter creates a new ResponseWriter.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

// OnBeforeWrite registers a hook that runs once, right before the status line
// is committed. Hooks run in registration order and may still set headers.
func (w *ResponseWriter) OnBeforeWrite(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.beforeWrite = append(w.beforeWrite, fn)
}

// commit marks the response written and returns the pending hooks.
// The boolean is false when the response was already committed.
func (w *ResponseWriter) commit(code int) ([]func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return nil, false
	}
	w.written = true
	w.status = code
	hooks := w.beforeWrite
	w.beforeWrite = nil
	return hooks, true
}

// WriteHeader sends the status code. Only the first call has any effect.
func (w *ResponseWriter) WriteHeader(code int) {
	hooks, ok := w.commit(code)
	if !ok {
		return
	}
	for _, fn := range hooks {
		fn()
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write writes the data to the connection, committing an implicit 200 first.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	status := w.status
	w.mu.Unlock()
	w.WriteHeader(status)

	n, err := w.ResponseWriter.Write(b)
	w.mu.Lock()
	w.size += int64(n)
	w.mu.Unlock()
	return n, err
}

// Status returns the HTTP status code of the response.
func (w *ResponseWriter) Status() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Size returns the number of bytes written to the response body.
func (w *ResponseWriter) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Written returns true if the response has been written.
func (w *ResponseWriter) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Flush implements the http.Flusher interface.
func (w *ResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		w.WriteHeader(w.Status())
		flusher.Flush()
	}
}

// Hijack implements the http.Hijacker interface.
func (w *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		w.mu.Lock()
		w.written = true
		w.mu.Unlock()
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap returns the underlying ResponseWriter.
// This allows http.ResponseController to reach the original writer.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
