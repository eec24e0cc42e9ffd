package internal

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"strings"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// ErrRouteNotFound is returned when no route matches a request.
// The method bucket being absent is reported the same way: the kernel never
// answers 405.
var ErrRouteNotFound = errors.New("route not found")

// HTTPError represents an HTTP error with all data needed for rendering.
// It implements the error interface and provides structured data for the
// fault boundary to render JSON envelopes or error pages.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Fields carries per-field validation failures (422 responses).
	Fields ValidationErrors

	// Message is the user-facing error message.
	Message string

	// ErrorCode is an application-specific error code (for client handling).
	ErrorCode string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int
}

func (e *HTTPError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithErrorCode(code string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.ErrorCode = code
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

func WithFields(fields ValidationErrors) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Fields = fields
	}
}

// Convenience constructors for common HTTP errors.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrNotAcceptable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotAcceptable, message, opts...)
}

func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusConflict, message, opts...)
}

// ErrValidation reports a 422 with the per-field failures attached.
func ErrValidation(fields ValidationErrors, opts ...HTTPErrorOption) *HTTPError {
	e := NewHTTPError(http.StatusUnprocessableEntity, "Validation failed", opts...)
	e.Fields = fields
	return e
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

// ValidationErrors maps a field name to its failure messages.
type ValidationErrors map[string][]string

// Add appends a message for field.
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// Has reports whether any field failed.
func (v ValidationErrors) Has() bool {
	return len(v) > 0
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, field := range slices.Sorted(maps.Keys(v)) {
		parts = append(parts, field+": "+strings.Join(v[field], ", "))
	}
	return strings.Join(parts, "; ")
}

// HandlerResolutionError reports a middleware or handler target that could not
// be located or constructed.
type HandlerResolutionError struct {
	Err    error
	Target string
}

func (e *HandlerResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve handler %q: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("cannot resolve handler %q", e.Target)
}

func (e *HandlerResolutionError) Unwrap() error {
	return e.Err
}

// statusCoder is implemented by errors that carry their own HTTP status.
type statusCoder interface {
	StatusCode() int
}

// StatusOf classifies err into an HTTP status code.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrRouteNotFound) {
		return http.StatusNotFound
	}

	var hre *HandlerResolutionError
	if errors.As(err, &hre) {
		return http.StatusInternalServerError
	}
	if container.IsUnresolvable(err) {
		return http.StatusInternalServerError
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// IsHTTPError reports whether err is, or wraps, an *HTTPError.
func IsHTTPError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

// AsHTTPError extracts the HTTPError from an error if present.
// Returns nil if the error is not an HTTPError.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

// PanicError represents a recovered panic.
type PanicError struct {
	Value any       // The panic value
	Stack []byte    // Stack trace (nil if disabled)
	PCs   []uintptr // Program counters of the panicking goroutine
}

// NewPanicError captures the current stack for a recovered value. Call it
// from the deferred function that recovered; skip counts extra frames to drop.
func NewPanicError(value any, stackSize, skip int) *PanicError {
	pe := &PanicError{Value: value, PCs: make([]uintptr, 64)}
	pe.PCs = pe.PCs[:runtime.Callers(2+skip, pe.PCs)]
	if stackSize > 0 {
		buf := make([]byte, stackSize)
		pe.Stack = buf[:runtime.Stack(buf, false)]
	}
	return pe
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// AsPanicError extracts the PanicError from an error if present.
func AsPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
