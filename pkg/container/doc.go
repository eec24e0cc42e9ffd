// Package container provides a small dependency-injection container built on
// explicit, registration-time factories instead of runtime constructor
// introspection.
//
// Values are registered under an abstract identifier. Identifiers are plain
// strings; the generic helpers derive them from Go type identity via Key[T].
//
//	c := container.New()
//
//	container.ProvideShared(c, func(r *container.Resolver) (*sql.DB, error) {
//	    return sql.Open("pgx", container.ArgOr(r, "dsn", defaultDSN))
//	})
//
//	container.Provide(c, func(r *container.Resolver) (*UserRepo, error) {
//	    db, err := container.Get[*sql.DB](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &UserRepo{db: db}, nil
//	})
//
//	repo, err := container.Make[*UserRepo](c, nil)
//
// # Resolution
//
// Resolve looks up a registered instance first; an instance is never rebuilt.
// Otherwise the binding's factory runs with a Resolver that exposes the
// explicit arguments of this resolution (Arg, ArgOr) and resolves nested
// dependencies (Get). Shared bindings are built at most once per container,
// even when many goroutines resolve them concurrently.
//
// An identifier with no binding is built from its concrete type when the
// generic helpers are used: pointer-to-struct and struct types are allocated
// and, if they implement Injectable, populated through Inject. Interfaces and
// other kinds are not instantiable without a binding.
//
// # Errors
//
// A missing required argument or an identifier that cannot be constructed
// yields an *UnresolvableDependencyError. Cycles in the dependency graph yield
// ErrCircularDependency.
package container
