package container

import (
	"errors"
	"fmt"
)

var (
	ErrNotInstantiable    = errors.New("container: target is not instantiable")
	ErrCircularDependency = errors.New("container: circular dependency")
	ErrTypeMismatch       = errors.New("container: resolved value has unexpected type")
	ErrNilFactory         = errors.New("container: nil factory")
	ErrNilValue           = errors.New("container: factory returned nil")
)

// UnresolvableDependencyError reports a dependency the container could not
// satisfy: an unbound, non-instantiable identifier or a required argument that
// was neither passed explicitly nor given a default.
type UnresolvableDependencyError struct {
	Err      error
	Abstract string
	Param    string
}

func (e *UnresolvableDependencyError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("container: unresolvable dependency [%s] resolving [%s]", e.Param, e.Abstract)
	}
	if e.Err != nil {
		return fmt.Sprintf("container: unresolvable dependency [%s]: %v", e.Abstract, e.Err)
	}
	return fmt.Sprintf("container: unresolvable dependency [%s]", e.Abstract)
}

func (e *UnresolvableDependencyError) Unwrap() error {
	return e.Err
}

// IsUnresolvable reports whether err is, or wraps, an *UnresolvableDependencyError.
func IsUnresolvable(err error) bool {
	var ue *UnresolvableDependencyError
	return errors.As(err, &ue)
}
