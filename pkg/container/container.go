package container

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Args holds explicit, named arguments for a single resolution.
type Args map[string]any

// Factory builds the value for an abstract identifier.
type Factory func(r *Resolver) (any, error)

type binding struct {
	factory Factory
	shared  bool
}

// Container resolves abstract identifiers to constructed values.
// It is safe for concurrent use. Registration is expected to happen once at
// startup; resolution may happen from any number of goroutines.
type Container struct {
	bindings  map[string]binding
	instances map[string]any
	flight    singleflight.Group
	mu        sync.RWMutex
}

// New creates an empty container.
func New() *Container {
	return &Container{
		bindings:  make(map[string]binding),
		instances: make(map[string]any),
	}
}

// Bind registers a factory for abstract. Nothing is constructed.
// Every resolution builds a fresh value.
func (c *Container) Bind(abstract string, factory Factory) {
	c.bind(abstract, factory, false)
}

// Singleton registers a shared factory for abstract: the first resolution
// builds the value, later resolutions return the same one.
// A nil factory means abstract is its own concrete type; resolving it then
// requires a concrete default (see Make).
func (c *Container) Singleton(abstract string, factory Factory) {
	c.bind(abstract, factory, true)
}

func (c *Container) bind(abstract string, factory Factory, shared bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[abstract] = binding{factory: factory, shared: shared}
}

// RegisterInstance stores a ready-made value for abstract. Every subsequent
// resolution of abstract returns exactly this value.
func (c *Container) RegisterInstance(abstract string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[abstract] = value
}

// Has reports whether abstract has a binding or a registered instance.
func (c *Container) Has(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.instances[abstract]; ok {
		return true
	}
	_, ok := c.bindings[abstract]
	return ok
}

// IsShared reports whether abstract resolves to a single shared value.
func (c *Container) IsShared(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.instances[abstract]; ok {
		return true
	}
	b, ok := c.bindings[abstract]
	return ok && b.shared
}

// Resolve returns the value registered for abstract, building it if needed.
// args are visible to the factory through the Resolver.
func (c *Container) Resolve(abstract string, args Args) (any, error) {
	return c.resolve(abstract, args, nil, nil)
}

// Invoke calls fn with a Resolver carrying args and returns its result.
func (c *Container) Invoke(fn Factory, args Args) (any, error) {
	if fn == nil {
		return nil, ErrNilFactory
	}
	return fn(c.newResolver("", args, nil))
}

func (c *Container) newResolver(abstract string, args Args, chain []string) *Resolver {
	if args == nil {
		args = Args{}
	}
	return &Resolver{c: c, args: args, abstract: abstract, chain: chain}
}

func (c *Container) resolve(abstract string, args Args, chain []string, fallback Factory) (any, error) {
	if slices.Contains(chain, abstract) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCircularDependency, strings.Join(chain, " -> "), abstract)
	}

	c.mu.RLock()
	if inst, ok := c.instances[abstract]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	b, bound := c.bindings[abstract]
	c.mu.RUnlock()

	factory := b.factory
	if factory == nil {
		factory = fallback
	}
	if factory == nil {
		return nil, &UnresolvableDependencyError{Abstract: abstract, Err: ErrNotInstantiable}
	}

	next := append(slices.Clone(chain), abstract)
	r := c.newResolver(abstract, args, next)

	if !bound || !b.shared {
		return build(abstract, factory, r)
	}

	v, err, _ := c.flight.Do(abstract, func() (any, error) {
		// Another caller may have finished between our lookup and this call.
		c.mu.RLock()
		inst, ok := c.instances[abstract]
		c.mu.RUnlock()
		if ok {
			return inst, nil
		}

		v, err := build(abstract, factory, r)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.instances[abstract] = v
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

func build(abstract string, factory Factory, r *Resolver) (any, error) {
	v, err := factory(r)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilValue, abstract)
	}
	return v, nil
}
