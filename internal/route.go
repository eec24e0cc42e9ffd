package internal

import (
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"
)

// Named parameter patterns shared by the Where* shortcuts.
const (
	PatternNumber       = `[0-9]+`
	PatternAlpha        = `[a-zA-Z]+`
	PatternAlphaNumeric = `[a-zA-Z0-9]+`
	PatternSlug         = `[a-z0-9-]+`
	PatternUUID         = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`
)

// Route is a single (method, pattern) to action binding.
//
// Routes are configured fluently right after registration and must not be
// modified once the App starts serving requests.
//
// Example:
//
//	r.GET("/users/{id}", anvil.Method("users.show", (*UserController).Show)).
//	    Name("users.show").
//	    Middleware("auth").
//	    WhereNumber("id")
type Route struct {
	table       *RouteTable
	action      Action
	constraints map[string]string
	matchers    map[string]*regexp.Regexp
	namePrefix  string
	name        string
	pattern     string
	methods     []string
	middleware  []string
	segments    []segment
	static      bool
}

func newRoute(methods []string, pattern string, action Action, g groupContext) *Route {
	r := &Route{
		action:     action,
		namePrefix: g.name,
		pattern:    pattern,
		methods:    methods,
		middleware: slices.Clone(g.middleware),
		segments:   compilePattern(pattern),
	}
	r.static = isStatic(r.segments)
	for param, expr := range g.where {
		r.Where(param, expr)
	}
	return r
}

// Middleware appends middleware identifiers (aliases, group names or
// container ids) to the route's own list.
func (r *Route) Middleware(ids ...string) *Route {
	r.middleware = append(r.middleware, ids...)
	return r
}

// Name labels the route for reverse routing. Enclosing group name prefixes
// are prepended.
func (r *Route) Name(name string) *Route {
	r.name = r.namePrefix + name
	return r
}

// Where constrains a placeholder to a regular expression. The expression must
// match the whole segment. It panics if expr does not compile.
func (r *Route) Where(param, expr string) *Route {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		panic(fmt.Sprintf("anvil: invalid constraint for %q on %s: %v", param, r.pattern, err))
	}
	if r.constraints == nil {
		r.constraints = make(map[string]string)
		r.matchers = make(map[string]*regexp.Regexp)
	}
	r.constraints[param] = expr
	r.matchers[param] = re
	return r
}

// WhereNumber constrains the given placeholders to digits.
func (r *Route) WhereNumber(params ...string) *Route {
	return r.whereAll(PatternNumber, params)
}

// WhereAlpha constrains the given placeholders to ASCII letters.
func (r *Route) WhereAlpha(params ...string) *Route {
	return r.whereAll(PatternAlpha, params)
}

// WhereAlphaNumeric constrains the given placeholders to ASCII letters and digits.
func (r *Route) WhereAlphaNumeric(params ...string) *Route {
	return r.whereAll(PatternAlphaNumeric, params)
}

// WhereSlug constrains the given placeholders to lowercase slugs.
func (r *Route) WhereSlug(params ...string) *Route {
	return r.whereAll(PatternSlug, params)
}

// WhereUUID constrains the given placeholders to canonical UUIDs.
func (r *Route) WhereUUID(params ...string) *Route {
	return r.whereAll(PatternUUID, params)
}

func (r *Route) whereAll(expr string, params []string) *Route {
	for _, p := range params {
		r.Where(p, expr)
	}
	return r
}

// Pattern returns the normalized path pattern.
func (r *Route) Pattern() string { return r.pattern }

// AllowedMethods lists every method served at the route's pattern, by this
// route or by others registered with the same pattern.
func (r *Route) AllowedMethods() []string {
	if r.table == nil {
		return r.Methods()
	}
	return r.table.methodsAt(r.pattern)
}

// Methods returns the HTTP methods the route answers.
func (r *Route) Methods() []string { return slices.Clone(r.methods) }

// RouteName returns the route name, or "" for anonymous routes.
func (r *Route) RouteName() string { return r.name }

// MiddlewareIDs returns group and route middleware in declaration order.
func (r *Route) MiddlewareIDs() []string { return slices.Clone(r.middleware) }

// Constraints returns a copy of the placeholder constraints.
func (r *Route) Constraints() map[string]string { return maps.Clone(r.constraints) }

// Action returns the route's action.
func (r *Route) Action() Action { return r.action }

// Params lists the placeholder names in pattern order.
func (r *Route) Params() []string {
	var names []string
	for _, s := range r.segments {
		if s.param {
			names = append(names, s.value)
		}
	}
	return names
}

// Matches reports whether path (already normalized, still escaped) satisfies
// the pattern and returns the bound parameters, unescaped. Splitting happens
// before unescaping, so an encoded slash stays inside its segment.
// The route itself is never mutated.
func (r *Route) Matches(path string) (Params, bool) {
	parts := splitPath(path)
	if len(parts) != len(r.segments) {
		return nil, false
	}

	var params Params
	for i, seg := range r.segments {
		part := parts[i]
		value, err := url.PathUnescape(part)
		if err != nil {
			return nil, false
		}
		if !seg.param {
			if seg.value != part && seg.value != value {
				return nil, false
			}
			continue
		}
		if value == "" {
			return nil, false
		}
		if re, ok := r.matchers[seg.value]; ok && !re.MatchString(value) {
			return nil, false
		}
		if params == nil {
			params = make(Params, len(r.segments))
		}
		params[seg.value] = value
	}
	return params, true
}

// build renders the route's path with params substituted. Constraints are
// checked so that generated URLs always route back to r.
func (r *Route) build(params map[string]string) (string, error) {
	if len(r.segments) == 0 {
		return "/", nil
	}
	out := make([]byte, 0, len(r.pattern))
	for _, seg := range r.segments {
		out = append(out, '/')
		if !seg.param {
			out = append(out, seg.value...)
			continue
		}
		v, ok := params[seg.value]
		if !ok || v == "" {
			return "", fmt.Errorf("route %q: missing parameter %q", r.name, seg.value)
		}
		if re, ok := r.matchers[seg.value]; ok && !re.MatchString(v) {
			return "", fmt.Errorf("route %q: parameter %q=%q violates constraint %s", r.name, seg.value, v, r.constraints[seg.value])
		}
		out = append(out, escapeSegment(v)...)
	}
	return string(out), nil
}

// Params holds the placeholder values bound by a successful match.
type Params map[string]string

// Get returns the value bound to name, or "".
func (p Params) Get(name string) string {
	return p[name]
}
