package container

import (
	"fmt"
	"reflect"
)

// Injectable is implemented by concrete types that populate their own
// dependencies when the container builds them without an explicit binding.
type Injectable interface {
	Inject(r *Resolver) error
}

// Key returns the abstract identifier for type T.
func Key[T any]() string {
	return typeKey(reflect.TypeFor[T]())
}

func typeKey(t reflect.Type) string {
	switch {
	case t.Kind() == reflect.Pointer:
		return "*" + typeKey(t.Elem())
	case t.Name() != "" && t.PkgPath() != "":
		return t.PkgPath() + "." + t.Name()
	default:
		return t.String()
	}
}

// Provide binds T to fn. Every resolution calls fn.
func Provide[T any](c *Container, fn func(r *Resolver) (T, error)) {
	c.Bind(Key[T](), typedFactory(fn))
}

// ProvideShared binds T to fn as a shared binding. A nil fn makes T its own
// concrete type.
func ProvideShared[T any](c *Container, fn func(r *Resolver) (T, error)) {
	if fn == nil {
		c.Singleton(Key[T](), nil)
		return
	}
	c.Singleton(Key[T](), typedFactory(fn))
}

// ProvideValue registers v as the instance of T.
func ProvideValue[T any](c *Container, v T) {
	c.RegisterInstance(Key[T](), v)
}

// Make resolves T with explicit args.
func Make[T any](c *Container, args Args) (T, error) {
	var zero T
	v, err := c.resolve(Key[T](), args, nil, construct[T])
	if err != nil {
		return zero, err
	}
	return cast[T](v)
}

// MustMake is like Make but panics on error.
func MustMake[T any](c *Container, args Args) T {
	v, err := Make[T](c, args)
	if err != nil {
		panic(err)
	}
	return v
}

// Call invokes fn with a resolver carrying args.
func Call[R any](c *Container, args Args, fn func(r *Resolver) (R, error)) (R, error) {
	var zero R
	if fn == nil {
		return zero, ErrNilFactory
	}
	return fn(c.newResolver("", args, nil))
}

// CallMethod resolves the receiver T with args and invokes method on it.
// method is usually a method expression such as (*UserController).Show.
func CallMethod[T, R any](c *Container, args Args, method func(T, *Resolver) (R, error)) (R, error) {
	var zero R
	if method == nil {
		return zero, ErrNilFactory
	}
	recv, err := Make[T](c, args)
	if err != nil {
		return zero, err
	}
	return method(recv, c.newResolver(Key[T](), args, nil))
}

func typedFactory[T any](fn func(r *Resolver) (T, error)) Factory {
	return func(r *Resolver) (any, error) {
		v, err := fn(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func cast[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, Key[T](), v)
	}
	return t, nil
}

// construct builds T from its concrete type. Only structs and pointers to
// structs qualify; interfaces and everything else need a binding.
func construct[T any](r *Resolver) (any, error) {
	t := reflect.TypeFor[T]()

	var v T
	switch {
	case t.Kind() == reflect.Struct:
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		v = reflect.New(t.Elem()).Interface().(T)
	default:
		return nil, &UnresolvableDependencyError{Abstract: Key[T](), Err: ErrNotInstantiable}
	}

	if in, ok := any(v).(Injectable); ok {
		if err := in.Inject(r); err != nil {
			return nil, err
		}
		return v, nil
	}
	if in, ok := any(&v).(Injectable); ok {
		if err := in.Inject(r); err != nil {
			return nil, err
		}
	}
	return v, nil
}
