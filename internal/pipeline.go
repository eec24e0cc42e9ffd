package internal

import (
	"fmt"

	"github.com/dmitrymomot/anvil/pkg/container"
)

// MiddlewareKey returns the container id a middleware is registered under.
func MiddlewareKey(id string) string {
	return "middleware:" + id
}

// Chain builds a single handler from a middleware stack and endpoint.
func Chain(endpoint HandlerFunc, middlewares ...Middleware) HandlerFunc {
	handler := endpoint

	// Wrap in reverse order so the first middleware runs first.
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	return handler
}

// pipeline is the precomputed middleware id list for one route.
type pipeline struct {
	route *Route
	ids   []string
}

func newPipeline(cfg *MiddlewareConfig, rt *Route) *pipeline {
	return &pipeline{route: rt, ids: cfg.Pipeline(rt.middleware)}
}

// build resolves every middleware through c and wraps the route's action.
// Middleware bindings are resolved per request so non-shared bindings get a
// fresh instance each time.
func (p *pipeline) build(c *container.Container) (HandlerFunc, error) {
	chain := make([]Middleware, 0, len(p.ids))
	for _, id := range p.ids {
		mw, err := resolveMiddleware(c, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, mw)
	}
	return Chain(p.route.action.handler(p.route.pattern), chain...), nil
}

func resolveMiddleware(c *container.Container, id string) (Middleware, error) {
	v, err := c.Resolve(MiddlewareKey(id), nil)
	if err != nil {
		return nil, &HandlerResolutionError{Target: id, Err: err}
	}
	switch mw := v.(type) {
	case Middleware:
		return mw, nil
	case func(HandlerFunc) HandlerFunc:
		return mw, nil
	}
	return nil, &HandlerResolutionError{
		Target: id,
		Err:    fmt.Errorf("%w: %T is not a middleware", container.ErrTypeMismatch, v),
	}
}
