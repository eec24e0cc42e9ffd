package internal

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/anvil/pkg/faultpage"
)

// RequestIDHeader is the header the fault boundary reads the request id from.
const RequestIDHeader = "X-Request-ID"

// fatalBody is written when rendering the fault itself fails.
const fatalBody = "500 Internal Server Error\n"

// redactedHeaders are never shown on the debug page.
var redactedHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization", "Set-Cookie"}

// FaultHandler is the fault boundary. It turns any failure raised while a
// request is processed into exactly one terminal response.
//
// Each request moves through armed, handling and then responded or fatal.
// Only the first fault of a request is rendered; faults raised while it is
// being handled fall through to a fixed plain text 500.
type FaultHandler struct {
	logger    *slog.Logger
	render    ErrorHandler
	apiPrefix string
	debug     bool
}

// NewFaultHandler creates a fault boundary.
// render replaces the built-in renderers when non-nil.
func NewFaultHandler(logger *slog.Logger, debug bool, apiPrefix string, render ErrorHandler) *FaultHandler {
	return &FaultHandler{
		logger:    logger,
		render:    render,
		apiPrefix: apiPrefix,
		debug:     debug,
	}
}

// faultTracker exposes the per-request state. Contexts that do not
// implement it get a fresh state per call.
type faultTracker interface {
	faultState() *atomic.Int32
}

func (c *requestContext) faultState() *atomic.Int32 {
	return &c.fault
}

// Handle renders err as the response of c.
func (f *FaultHandler) Handle(c Context, err error) {
	if err == nil {
		return
	}

	state := new(atomic.Int32)
	if ft, ok := c.(faultTracker); ok {
		state = ft.faultState()
	}

	if !state.CompareAndSwap(faultArmed, faultHandling) {
		if state.Load() == faultHandling {
			f.fatal(c, state, fmt.Errorf("fault raised while handling another: %w", err))
			return
		}
		f.logger.WarnContext(c.Request().Context(), "fault after response completed",
			slog.String("error", err.Error()),
		)
		return
	}

	status := StatusOf(err)
	f.log(c, status, err)

	if c.Written() {
		state.Store(faultResponded)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			f.fatal(c, state, fmt.Errorf("panic while rendering fault: %v", r))
		}
	}()

	if rerr := f.respond(c, status, err); rerr != nil {
		f.fatal(c, state, rerr)
		return
	}
	state.Store(faultResponded)
}

func (f *FaultHandler) respond(c Context, status int, err error) error {
	if f.render != nil {
		return f.render(c, err)
	}

	h := c.Response().Header()
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")

	if expectsJSON(c.Request(), f.apiPrefix) {
		return c.JSON(status, f.envelope(c, status, err))
	}
	if f.debug {
		return c.Render(status, faultpage.DebugPage(f.debugData(c, status, err)))
	}
	return c.Render(status, faultpage.ProductionPage(faultpage.Page{
		Status:    status,
		Message:   f.publicMessage(status, err),
		RequestID: requestID(c),
	}))
}

// fatal writes the hard-coded fallback. It must not fail.
func (f *FaultHandler) fatal(c Context, state *atomic.Int32, err error) {
	state.Store(faultFatal)
	f.logger.ErrorContext(c.Request().Context(), "fault handling failed",
		slog.String("error", err.Error()),
	)

	defer func() { _ = recover() }()
	if c.Written() {
		return
	}
	w := c.Response()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(fatalBody)))
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(fatalBody))
}

func (f *FaultHandler) log(c Context, status int, err error) {
	r := c.Request()
	attrs := []any{
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	if rt := c.Route(); rt != nil {
		attrs = append(attrs, slog.String("route", rt.pattern))
	}
	if pe, ok := AsPanicError(err); ok && len(pe.Stack) > 0 {
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}

	if status >= http.StatusInternalServerError {
		f.logger.ErrorContext(r.Context(), "request failed", attrs...)
		return
	}
	f.logger.DebugContext(r.Context(), "request rejected", attrs...)
}

// publicMessage is what non-debug responses show. Client errors may carry a
// deliberate message; server errors never leak details.
func (f *FaultHandler) publicMessage(status int, err error) string {
	if status < http.StatusInternalServerError {
		if he := AsHTTPError(err); he != nil && he.Message != "" {
			return faultpage.Clean(he.Message)
		}
	}
	return faultpage.PublicMessage(status)
}

// debugMessage prefers the underlying cause of generic 500 wrappers.
func debugMessage(err error) string {
	if he := AsHTTPError(err); he != nil && he.Err != nil && he.Message == http.StatusText(he.Code) {
		return he.Err.Error()
	}
	return err.Error()
}

type faultEnvelope struct {
	Error faultBody `json:"error"`
}

type faultBody struct {
	Debug     *faultDebug      `json:"debug,omitempty"`
	Errors    ValidationErrors `json:"errors,omitempty"`
	Code      string           `json:"code"`
	Message   string           `json:"message"`
	RequestID string           `json:"request_id,omitempty"`
}

type faultDebug struct {
	Type   string   `json:"type"`
	Route  string   `json:"route,omitempty"`
	Action string   `json:"action,omitempty"`
	Causes []string `json:"causes,omitempty"`
	Trace  []string `json:"trace,omitempty"`
}

func (f *FaultHandler) envelope(c Context, status int, err error) faultEnvelope {
	body := faultBody{
		Code:      errorCode(status, err),
		Message:   f.publicMessage(status, err),
		RequestID: requestID(c),
	}
	if he := AsHTTPError(err); he != nil && he.Fields.Has() {
		body.Errors = he.Fields
	}

	if f.debug {
		body.Message = debugMessage(err)
		d := &faultDebug{Type: fmt.Sprintf("%T", err)}
		if rt := c.Route(); rt != nil {
			d.Route = rt.pattern
			d.Action = rt.action.describe()
		}
		for _, cause := range causeChain(err) {
			d.Causes = append(d.Causes, cause.Type+": "+cause.Message)
		}
		for _, fr := range errorFrames(err) {
			d.Trace = append(d.Trace, fmt.Sprintf("%s:%d %s", fr.File, fr.Line, fr.Function))
		}
		body.Debug = d
	}
	return faultEnvelope{Error: body}
}

func (f *FaultHandler) debugData(c Context, status int, err error) *faultpage.Debug {
	r := c.Request()
	d := &faultpage.Debug{
		Status:    status,
		Message:   debugMessage(err),
		ErrorType: fmt.Sprintf("%T", err),
		Causes:    causeChain(err),
		Frames:    errorFrames(err),
		Method:    r.Method,
		URL:       r.URL.RequestURI(),
		RequestID: requestID(c),
		Headers:   headerList(r.Header),
		Server:    serverInfo(),
	}
	if len(d.Frames) > 0 {
		d.Snippet = faultpage.ReadSnippet(d.Frames[0].File, d.Frames[0].Line, faultpage.DefaultSnippetRadius)
	}
	if rt := c.Route(); rt != nil {
		d.Route = rt.pattern
		d.Action = rt.action.describe()
	}
	for k, v := range c.Params() {
		d.Params = append(d.Params, faultpage.KV{Key: k, Value: v})
	}
	slices.SortFunc(d.Params, func(a, b faultpage.KV) int { return cmp.Compare(a.Key, b.Key) })
	return d
}

// errorCode returns the machine-readable code: the HTTPError's own code or
// the snake-cased status text.
func errorCode(status int, err error) string {
	if he := AsHTTPError(err); he != nil && he.ErrorCode != "" {
		return he.ErrorCode
	}
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ToLower(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}

// causeChain lists the wrapped errors below err, outermost first.
// Joined errors contribute every branch.
func causeChain(err error) []faultpage.Cause {
	var out []faultpage.Cause
	queue := unwrapAll(err)
	for len(queue) > 0 && len(out) < 16 {
		e := queue[0]
		queue = append(queue[1:], unwrapAll(e)...)
		out = append(out, faultpage.Cause{Type: fmt.Sprintf("%T", e), Message: e.Error()})
	}
	return out
}

func unwrapAll(err error) []error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		if next := u.Unwrap(); next != nil {
			return []error{next}
		}
	case interface{ Unwrap() []error }:
		return slices.DeleteFunc(slices.Clone(u.Unwrap()), func(e error) bool { return e == nil })
	}
	return nil
}

func errorFrames(err error) []faultpage.Frame {
	var pe *PanicError
	if errors.As(err, &pe) {
		return faultpage.Frames(pe.PCs)
	}
	return nil
}

func headerList(h http.Header) []faultpage.KV {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]faultpage.KV, 0, len(keys))
	for _, k := range keys {
		v := strings.Join(h.Values(k), ", ")
		if slices.Contains(redactedHeaders, http.CanonicalHeaderKey(k)) {
			v = "[redacted]"
		}
		out = append(out, faultpage.KV{Key: k, Value: v})
	}
	return out
}

func serverInfo() faultpage.Server {
	host, _ := os.Hostname()
	return faultpage.Server{
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Hostname:  host,
		PID:       os.Getpid(),
		Time:      time.Now().UTC().Format(time.RFC3339),
	}
}

func requestID(c Context) string {
	if id := c.Response().Header().Get(RequestIDHeader); id != "" {
		return id
	}
	return c.Header(RequestIDHeader)
}
