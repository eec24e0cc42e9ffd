package internal

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// ErrUnknownRouteName is returned by URL for names no route carries.
var ErrUnknownRouteName = errors.New("unknown route name")

// anyMethods are the methods registered by Router.Any.
var anyMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// TrailingSlashPolicy decides what happens to requests whose path only
// matches a route after normalization.
type TrailingSlashPolicy uint8

const (
	// TrailingSlashRedirect answers with a permanent redirect to the
	// canonical path: 301 for GET and HEAD, 308 for everything else.
	TrailingSlashRedirect TrailingSlashPolicy = iota
	// TrailingSlashIgnore dispatches to the matched route directly.
	TrailingSlashIgnore
)

// Router is the interface handlers use to declare routes.
//
// Example:
//
//	func (h *UserHandler) Routes(r anvil.Router) {
//	    r.GET("/users", anvil.Func(h.list))
//	    r.Group(anvil.GroupAttributes{Prefix: "/admin", Middleware: []string{"auth"}}, func(r anvil.Router) {
//	        r.DELETE("/users/{id}", anvil.Func(h.delete)).WhereNumber("id")
//	    })
//	}
type Router interface {
	// AddRoute registers action for method and path.
	AddRoute(method, path string, action Action) *Route

	// GET registers an action for GET requests.
	GET(path string, action Action) *Route

	// POST registers an action for POST requests.
	POST(path string, action Action) *Route

	// PUT registers an action for PUT requests.
	PUT(path string, action Action) *Route

	// PATCH registers an action for PATCH requests.
	PATCH(path string, action Action) *Route

	// DELETE registers an action for DELETE requests.
	DELETE(path string, action Action) *Route

	// HEAD registers an action for HEAD requests.
	HEAD(path string, action Action) *Route

	// OPTIONS registers an action for OPTIONS requests.
	OPTIONS(path string, action Action) *Route

	// Any registers one route for every common HTTP method.
	Any(path string, action Action) *Route

	// Group registers routes sharing a prefix, middleware, a name prefix
	// and constraints. Groups nest.
	Group(attrs GroupAttributes, fn func(r Router))

	// Prefix is shorthand for a group with only a path prefix.
	Prefix(prefix string, fn func(r Router))

	// Middleware resolves a middleware alias, returning unknown ids as given.
	Middleware(alias string) string
}

// GroupAttributes describe a route group.
type GroupAttributes struct {
	Where      map[string]string
	Prefix     string
	Name       string
	Middleware []string
}

// groupContext is the accumulated effect of all enclosing groups.
type groupContext struct {
	where      map[string]string
	prefix     string
	name       string
	middleware []string
}

func (g groupContext) push(attrs GroupAttributes) groupContext {
	where := maps.Clone(g.where)
	if len(attrs.Where) > 0 && where == nil {
		where = make(map[string]string, len(attrs.Where))
	}
	maps.Copy(where, attrs.Where)

	return groupContext{
		where:      where,
		prefix:     joinPaths(g.prefix, attrs.Prefix),
		name:       g.name + attrs.Name,
		middleware: append(slices.Clone(g.middleware), attrs.Middleware...),
	}
}

// bucket keeps one method's routes in registration order.
type bucket struct {
	byPattern map[string]int
	routes    []*Route
}

// Match is the result of a successful route lookup.
type Match struct {
	Route  *Route
	Params Params
	// Redirect is the canonical path when the request must be redirected
	// instead of dispatched.
	Redirect string
}

// RouteTable is the route registry and matcher. It is built while the App is
// constructed and is read-only afterwards.
type RouteTable struct {
	buckets       map[string]*bucket
	middleware    *MiddlewareConfig
	all           []*Route
	trailingSlash TrailingSlashPolicy
}

// NewRouteTable creates an empty table. cfg is used for alias lookups and may be nil.
func NewRouteTable(cfg *MiddlewareConfig, policy TrailingSlashPolicy) *RouteTable {
	if cfg == nil {
		cfg = &MiddlewareConfig{}
	}
	return &RouteTable{
		buckets:       make(map[string]*bucket),
		middleware:    cfg,
		trailingSlash: policy,
	}
}

// Router returns a registration handle rooted at the table.
func (t *RouteTable) Router() Router {
	return &router{table: t}
}

func (t *RouteTable) add(methods []string, path string, action Action, g groupContext) *Route {
	rt := newRoute(methods, joinPaths(g.prefix, path), action, g)
	rt.table = t
	for _, m := range methods {
		b, ok := t.buckets[m]
		if !ok {
			b = &bucket{byPattern: make(map[string]int)}
			t.buckets[m] = b
		}
		// Identical patterns overwrite silently; the newcomer takes the old slot.
		if i, dup := b.byPattern[rt.pattern]; dup {
			b.routes[i] = rt
			continue
		}
		b.byPattern[rt.pattern] = len(b.routes)
		b.routes = append(b.routes, rt)
	}
	t.all = append(t.all, rt)
	return rt
}

// methodsAt lists the methods with a live route for pattern, in anyMethods
// order followed by any custom methods sorted.
func (t *RouteTable) methodsAt(pattern string) []string {
	var out, custom []string
	for _, m := range anyMethods {
		if b, ok := t.buckets[m]; ok {
			if _, ok := b.byPattern[pattern]; ok {
				out = append(out, m)
			}
		}
	}
	for m, b := range t.buckets {
		if slices.Contains(anyMethods, m) {
			continue
		}
		if _, ok := b.byPattern[pattern]; ok {
			custom = append(custom, m)
		}
	}
	slices.Sort(custom)
	return append(out, custom...)
}

// Match finds the route for method and the raw (escaped) request path.
// It returns ErrRouteNotFound when nothing matches, including when no route
// at all is registered for method.
func (t *RouteTable) Match(method, rawPath string) (*Match, error) {
	b, ok := t.buckets[method]
	if !ok {
		return nil, ErrRouteNotFound
	}

	path := normalizePath(rawPath)
	m := b.lookup(path)
	if m == nil {
		return nil, ErrRouteNotFound
	}

	if t.trailingSlash == TrailingSlashRedirect && rawPath != "" && rawPath != path {
		m.Redirect = path
	}
	return m, nil
}

func (b *bucket) lookup(path string) *Match {
	if i, ok := b.byPattern[path]; ok && b.routes[i].static {
		return &Match{Route: b.routes[i]}
	}
	if strings.Contains(path, "%") {
		// Static patterns are stored unescaped; an encoded slash never
		// matches one since the segment count would change.
		if decoded, err := url.PathUnescape(path); err == nil && len(splitPath(decoded)) == len(splitPath(path)) {
			if i, ok := b.byPattern[decoded]; ok && b.routes[i].static {
				return &Match{Route: b.routes[i]}
			}
		}
	}
	for _, rt := range b.routes {
		if rt.static {
			continue
		}
		if params, ok := rt.Matches(path); ok {
			return &Match{Route: rt, Params: params}
		}
	}
	return nil
}

// Middleware resolves alias through the configured alias table.
// Unknown names are returned unchanged.
func (t *RouteTable) Middleware(alias string) string {
	return t.middleware.Resolve(alias)
}

// URL builds the path of the route registered under name.
// When several routes share a name the latest registration wins.
func (t *RouteTable) URL(name string, params map[string]string) (string, error) {
	routes := t.Routes()
	for i := len(routes) - 1; i >= 0; i-- {
		if routes[i].name == name {
			return routes[i].build(params)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownRouteName, name)
}

// Routes lists the live routes in registration order. Routes overwritten in
// every bucket they were registered in are omitted.
func (t *RouteTable) Routes() []*Route {
	live := make(map[*Route]struct{}, len(t.all))
	for _, b := range t.buckets {
		for _, rt := range b.routes {
			live[rt] = struct{}{}
		}
	}
	out := make([]*Route, 0, len(live))
	for _, rt := range t.all {
		if _, ok := live[rt]; ok {
			out = append(out, rt)
		}
	}
	return out
}

// router is a Router bound to a group context.
type router struct {
	table *RouteTable
	group groupContext
}

func (r *router) AddRoute(method, path string, action Action) *Route {
	return r.table.add([]string{strings.ToUpper(method)}, path, action, r.group)
}

func (r *router) GET(path string, action Action) *Route {
	return r.AddRoute(http.MethodGet, path, action)
}

func (r *router) POST(path string, action Action) *Route {
	return r.AddRoute(http.MethodPost, path, action)
}

func (r *router) PUT(path string, action Action) *Route {
	return r.AddRoute(http.MethodPut, path, action)
}

func (r *router) PATCH(path string, action Action) *Route {
	return r.AddRoute(http.MethodPatch, path, action)
}

func (r *router) DELETE(path string, action Action) *Route {
	return r.AddRoute(http.MethodDelete, path, action)
}

func (r *router) HEAD(path string, action Action) *Route {
	return r.AddRoute(http.MethodHead, path, action)
}

func (r *router) OPTIONS(path string, action Action) *Route {
	return r.AddRoute(http.MethodOptions, path, action)
}

func (r *router) Any(path string, action Action) *Route {
	return r.table.add(slices.Clone(anyMethods), path, action, r.group)
}

func (r *router) Group(attrs GroupAttributes, fn func(Router)) {
	fn(&router{table: r.table, group: r.group.push(attrs)})
}

func (r *router) Prefix(prefix string, fn func(Router)) {
	r.Group(GroupAttributes{Prefix: prefix}, fn)
}

func (r *router) Middleware(alias string) string {
	return r.table.Middleware(alias)
}

func escapeSegment(v string) string {
	return url.PathEscape(v)
}
