// Package anvil is a request dispatch kernel for MVC-style Go web
// applications: a route table with named, constrained parameters, middleware
// resolved by id from a dependency container, controllers built per request,
// and a fault boundary that turns every failure into exactly one response.
//
// # Quick Start
//
//	app := anvil.New(
//	    anvil.WithLogger("web", middlewares.RequestIDExtractor()),
//	    anvil.WithMiddleware("request_id", middlewares.RequestID()),
//	    anvil.WithGlobalMiddleware("request_id"),
//	    anvil.WithHandlers(handlers.NewUsers()),
//	)
//
//	if err := app.Run(":8080"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Routes
//
// Handlers implement [Handler] and declare routes on a [Router]:
//
//	func (h *Users) Routes(r anvil.Router) {
//	    r.GET("/users", anvil.Func(h.list)).Name("users.index")
//	    r.GET("/users/{id}", anvil.Method("show", (*UserController).Show)).
//	        WhereNumber("id").
//	        Name("users.show")
//	    r.Group(anvil.GroupAttributes{Prefix: "/admin", Middleware: []string{"auth"}}, func(r anvil.Router) {
//	        r.DELETE("/users/{id}", anvil.Handle(h.destroy))
//	    })
//	}
//
// Routes are tried in registration order within a method; the first whose
// pattern and constraints match wins. Registering the same method and
// pattern again replaces the earlier route.
//
// # Controllers
//
// [Method] targets a controller type built by the container for every
// request. Controllers implementing container.Injectable receive the path
// parameters as arguments:
//
//	type UserController struct {
//	    repo *UserRepo
//	    id   string
//	}
//
//	func (u *UserController) Inject(r *container.Resolver) error {
//	    var err error
//	    if u.id, err = container.Arg[string](r, "id"); err != nil {
//	        return err
//	    }
//	    u.repo, err = container.Get[*UserRepo](r)
//	    return err
//	}
//
// # Middleware
//
// Middleware is bound under an id and referenced by id, alias or group.
// The pipeline of a route is the global list followed by the route's own
// entries, expanded and deduplicated, then ordered by the priority list:
//
//	global:   [request_id]
//	aliases:  {auth: session_auth}
//	groups:   {stateless: [cors, throttle, api]}
//	priority: [request_id, cors, throttle, auth]
//
// # Faults
//
// Errors returned by actions or middleware, panics and unmatched requests
// reach the fault boundary. API clients get a JSON envelope, browsers an HTML
// page; [WithDebug] adds a stack trace and request details. Server error
// messages are never shown outside debug mode.
//
// # Shutdown
//
// Run handles SIGINT/SIGTERM for graceful shutdown.
// Register cleanup functions with ShutdownHook:
//
//	app.Run(":8080",
//	    anvil.ShutdownHook(redis.Shutdown(client)),
//	)
package anvil
