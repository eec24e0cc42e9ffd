package container

import "fmt"

// Resolver is handed to factories. It exposes the explicit arguments of the
// current resolution and resolves nested dependencies on the same container.
type Resolver struct {
	c        *Container
	args     Args
	abstract string
	chain    []string
}

// Container returns the container the resolver belongs to.
func (r *Resolver) Container() *Container {
	return r.c
}

// Abstract returns the identifier being resolved, or "" inside Invoke.
func (r *Resolver) Abstract() string {
	return r.abstract
}

// Args returns the explicit arguments of this resolution.
func (r *Resolver) Args() Args {
	return r.args
}

// Has reports whether an explicit argument with the given name was passed.
func (r *Resolver) Has(name string) bool {
	_, ok := r.args[name]
	return ok
}

// Arg returns a required explicit argument.
func (r *Resolver) Arg(name string) (any, error) {
	v, ok := r.args[name]
	if !ok {
		return nil, &UnresolvableDependencyError{Abstract: r.abstract, Param: name}
	}
	return v, nil
}

// ArgOr returns an explicit argument or def when it was not passed.
func (r *Resolver) ArgOr(name string, def any) any {
	if v, ok := r.args[name]; ok {
		return v
	}
	return def
}

// Resolve resolves a nested dependency. Explicit arguments are not forwarded
// to nested resolutions.
func (r *Resolver) Resolve(abstract string) (any, error) {
	return r.c.resolve(abstract, nil, r.chain, nil)
}

// Arg returns a required, typed explicit argument.
func Arg[T any](r *Resolver, name string) (T, error) {
	var zero T
	v, err := r.Arg(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %q is %T", ErrTypeMismatch, name, v)
	}
	return t, nil
}

// ArgOr returns a typed explicit argument, or def when it is missing or of
// another type.
func ArgOr[T any](r *Resolver, name string, def T) T {
	if v, ok := r.args[name].(T); ok {
		return v
	}
	return def
}

// Get resolves the dependency identified by T from inside a factory.
// Unbound struct and pointer-to-struct types are built from their concrete type.
func Get[T any](r *Resolver) (T, error) {
	var zero T
	v, err := r.c.resolve(Key[T](), nil, r.chain, construct[T])
	if err != nil {
		return zero, err
	}
	return cast[T](v)
}
