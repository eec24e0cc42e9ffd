package internal

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// ActionKind tells which form an Action was declared in.
type ActionKind uint8

const (
	// ActionNone is the zero Action. Dispatching it fails with a
	// HandlerResolutionError.
	ActionNone ActionKind = iota
	// ActionFunc wraps a plain function returning a result.
	ActionFunc
	// ActionHandler wraps a HandlerFunc that writes its own response.
	ActionHandler
	// ActionMethod calls a method on a receiver built by the container.
	ActionMethod
)

func (k ActionKind) String() string {
	switch k {
	case ActionFunc:
		return "func"
	case ActionHandler:
		return "handler"
	case ActionMethod:
		return "method"
	}
	return "none"
}

// Action is the terminal step of a route. Build one with Func, Handle or Method.
type Action struct {
	call func(c Context) (any, error)
	name string
	kind ActionKind
}

// Func creates an action from a function returning a result.
// See Dispatch for how results become responses.
func Func(fn func(c Context) (any, error)) Action {
	if fn == nil {
		return Action{}
	}
	return Action{kind: ActionFunc, name: "func", call: fn}
}

// Handle creates an action from a HandlerFunc that writes the response itself.
func Handle(h HandlerFunc) Action {
	if h == nil {
		return Action{}
	}
	return Action{
		kind: ActionHandler,
		name: "handler",
		call: func(c Context) (any, error) {
			return nil, h(c)
		},
	}
}

// Method creates an action that resolves T from the container on every
// request, with the path parameters passed as explicit arguments, and calls
// fn on it. name labels the target in errors and debug output.
//
// Example:
//
//	r.GET("/users/{id}", anvil.Method("users.show", (*UserController).Show))
func Method[T any](name string, fn func(recv T, c Context) (any, error)) Action {
	if fn == nil {
		return Action{}
	}
	if name == "" {
		name = container.Key[T]()
	}
	return Action{
		kind: ActionMethod,
		name: name,
		call: func(c Context) (any, error) {
			recv, err := container.Make[T](c.Container(), paramArgs(c.Params()))
			if err != nil {
				if isResolutionFailure(err) {
					return nil, &HandlerResolutionError{Target: name, Err: err}
				}
				// Errors raised by Inject or a factory keep their own status.
				return nil, err
			}
			return fn(recv, c)
		},
	}
}

// Kind returns the declared form of the action.
func (a Action) Kind() ActionKind { return a.kind }

// Name returns the label used in errors and debug output.
func (a Action) Name() string { return a.name }

// handler turns the action into the innermost HandlerFunc of a pipeline.
func (a Action) handler(target string) HandlerFunc {
	if a.call == nil {
		return func(Context) error {
			return &HandlerResolutionError{Target: target, Err: errors.New("route has no action")}
		}
	}
	return func(c Context) error {
		res, err := a.call(c)
		if err != nil {
			return wrapActionError(err)
		}
		return writeResult(c, res)
	}
}

// writeResult converts an action's return value into a response.
// Nothing is written when the action already responded or returned nil.
func writeResult(c Context, res any) error {
	if res == nil || c.Written() {
		return nil
	}
	switch v := res.(type) {
	case Responder:
		return v.Respond(c)
	case Component:
		return c.Render(http.StatusOK, v)
	case string:
		return c.HTML(http.StatusOK, v)
	case []byte:
		return c.Blob(http.StatusOK, "application/octet-stream", v)
	case error:
		return wrapActionError(v)
	}
	return c.JSON(http.StatusOK, res)
}

// wrapActionError keeps errors that already classify themselves and wraps
// everything else as a 500 carrying the cause.
func wrapActionError(err error) error {
	var (
		sc  statusCoder
		hre *HandlerResolutionError
		pe  *PanicError
	)
	switch {
	case errors.As(err, &sc), errors.As(err, &hre), errors.As(err, &pe),
		errors.Is(err, ErrRouteNotFound), container.IsUnresolvable(err):
		return err
	}
	return ErrInternal(http.StatusText(http.StatusInternalServerError), WithError(err))
}

// isResolutionFailure reports whether err means the container could not
// build a value at all, as opposed to a constructor failing on purpose.
func isResolutionFailure(err error) bool {
	return container.IsUnresolvable(err) ||
		errors.Is(err, container.ErrNotInstantiable) ||
		errors.Is(err, container.ErrCircularDependency) ||
		errors.Is(err, container.ErrTypeMismatch) ||
		errors.Is(err, container.ErrNilFactory) ||
		errors.Is(err, container.ErrNilValue)
}

// describe renders the action for logs and the debug page.
func (a Action) describe() string {
	return fmt.Sprintf("%s (%s)", a.name, a.kind)
}
