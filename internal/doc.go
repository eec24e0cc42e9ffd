// Package internal provides the core types and implementation for the Anvil framework.
//
// This package is internal and should not be used directly. Import "github.com/dmitrymomot/anvil"
// instead, which re-exports the public API.
//
// # Core Types
//
//   - App: the dispatch kernel; owns the route table, middleware tables, container and fault boundary
//   - Context: request/response access and response helpers; embeds context.Context
//   - Router: interface handlers use to declare routes, groups and prefixes
//   - Route: a registered route with fluent constraint, name and middleware setters
//   - Action: the terminal step of a route, built with Func, Handle or Method
//   - Middleware: wraps a HandlerFunc; referenced by id from routes
//   - FaultHandler: turns any failure into exactly one terminal response
//
// # Dispatch
//
// Every request goes through the same steps:
//
//  1. The route table is searched in the request method's bucket. Static
//     patterns are looked up directly, parameterized ones in registration
//     order. A miss, including an absent bucket, is a 404.
//  2. A path that only matches after normalization is redirected to its
//     canonical form (301 for GET and HEAD, 308 otherwise).
//  3. The route's middleware ids are expanded through groups and aliases,
//     prefixed by the global list, deduplicated and ordered by priority.
//  4. Each id is resolved from the container and the chain wraps the action.
//  5. An error or panic anywhere is handed to the fault boundary.
//
// # Routes
//
//	func (h *UserHandler) Routes(r anvil.Router) {
//	    r.GET("/users/{id}", anvil.Method("users.show", (*UserController).Show)).
//	        WhereNumber("id").
//	        Name("users.show")
//
//	    r.Group(anvil.GroupAttributes{Prefix: "/admin", Name: "admin.", Middleware: []string{"auth"}}, func(r anvil.Router) {
//	        r.DELETE("/users/{id}", anvil.Func(h.delete)).WhereNumber("id")
//	    })
//	}
//
// # Action Results
//
// Func and Method actions return (any, error). A nil result writes nothing,
// a Responder writes itself, a templ component is rendered, a string is sent
// as HTML, []byte as an octet stream, and anything else is encoded as JSON.
// Errors without their own status become a 500 carrying the cause.
//
// # Faults
//
// JSON is sent when the path is under the API prefix, the request is an XHR
// or Accept names JSON:
//
//	{"error":{"code":"not_found","message":"...","request_id":"..."}}
//
// Browsers get an HTML page; with WithDebug(true) the page includes the
// cause chain, stack frames, a source snippet, route and request details.
// A fault raised while another is being rendered yields a plain text 500.
//
// # Health Checks
//
// WithHealthChecks adds liveness and readiness endpoints to the front end
// started by Run or returned by Handler. They bypass the route table.
//
// See the anvil package documentation for the public API and usage examples.
package internal
