package internal

import (
	"strconv"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// Scalar lists the types path and query helpers can convert to.
type Scalar interface {
	string | int | int64 | float64 | bool
}

// ContextValue returns the value stored under key, or the zero value of T.
func ContextValue[T any](c Context, key any) T {
	if v, ok := c.Get(key).(T); ok {
		return v
	}
	var zero T
	return zero
}

// Param returns the named path parameter converted to T.
// Returns the zero value if the parameter is missing or cannot be parsed.
func Param[T Scalar](c Context, name string) T {
	v, _ := convertParam[T](c.Param(name))
	return v
}

// Query returns the named query parameter converted to T.
func Query[T Scalar](c Context, name string) T {
	v, _ := convertParam[T](c.Query(name))
	return v
}

// QueryDefault retrieves a typed query parameter with a default value.
// Returns defaultValue if the parameter is empty or cannot be parsed.
func QueryDefault[T Scalar](c Context, name string, defaultValue T) T {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	v, ok := convertParam[T](raw)
	if !ok {
		return defaultValue
	}
	return v
}

// Resolve builds T from the request's container, passing the path parameters
// as explicit arguments.
func Resolve[T any](c Context) (T, error) {
	return container.Make[T](c.Container(), paramArgs(c.Params()))
}

// convertParam converts a raw string to the target type T.
func convertParam[T Scalar](raw string) (T, bool) {
	var out T
	switch p := any(&out).(type) {
	case *string:
		*p = raw
	case *int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return out, false
		}
		*p = v
	case *int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return out, false
		}
		*p = v
	case *float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return out, false
		}
		*p = v
	case *bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return out, false
		}
		*p = v
	}
	return out, true
}

func paramArgs(p Params) container.Args {
	args := make(container.Args, len(p))
	for k, v := range p {
		args[k] = v
	}
	return args
}
