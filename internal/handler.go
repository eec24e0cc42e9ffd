package internal

// Handler declares routes on a router.
//
// Example:
//
//	type UserHandler struct {
//	    repo *repository.Queries
//	}
//
//	func (h *UserHandler) Routes(r anvil.Router) {
//	    r.GET("/users", anvil.Func(h.list)).Name("users.index")
//	    r.GET("/users/{id}", anvil.Func(h.show)).WhereNumber("id")
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the signature for route handlers and the unit middleware wraps.
// Returning a non-nil error hands the request to the fault boundary.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect/modify the request, short-circuit processing
// by not calling next, or wrap the response.
//
// Example:
//
//	func Auth(next anvil.HandlerFunc) anvil.HandlerFunc {
//	    return func(c anvil.Context) error {
//	        if !isAuthenticated(c) {
//	            return anvil.ErrUnauthorized("")
//	        }
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders a fault. It replaces the built-in JSON and page
// renderers; an error returned from it triggers the minimal fallback response.
type ErrorHandler func(c Context, err error) error

// Responder is a pre-built response an action may return.
type Responder interface {
	Respond(c Context) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(c Context) error

func (f ResponderFunc) Respond(c Context) error {
	return f(c)
}
