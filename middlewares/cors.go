package middlewares

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/anvil/internal"
)

// CORS defaults: any origin, the methods and headers a JSON API needs.
var (
	DefaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	DefaultCORSHeaders = []string{"Content-Type", "Authorization"}
)

// DefaultCORSMaxAge is how long browsers may cache a preflight answer.
const DefaultCORSMaxAge = 12 * time.Hour

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOriginFunc decides per request and replaces AllowOrigins when set.
	AllowOriginFunc func(origin string) bool

	// AllowOrigins lists accepted origins. "*" accepts any.
	AllowOrigins []string

	// AllowMethods caps the methods announced in a preflight. Only those
	// served at the matched route's pattern are announced.
	AllowMethods []string

	// AllowHeaders lists accepted request headers. Empty echoes whatever
	// the preflight asks for.
	AllowHeaders []string

	ExposeHeaders []string

	// MaxAge of a preflight answer. Zero omits Access-Control-Max-Age.
	MaxAge time.Duration

	// AllowCredentials sends Access-Control-Allow-Credentials and makes the
	// origin echoed instead of "*".
	AllowCredentials bool
}

// CORSOption configures CORSConfig.
type CORSOption func(*CORSConfig)

// WithAllowOrigins sets the accepted origins.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOrigins = origins
	}
}

// WithAllowOriginFunc decides origins dynamically, overriding AllowOrigins.
func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOriginFunc = fn
	}
}

// WithAllowMethods sets the methods announced in preflights.
func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowMethods = methods
	}
}

// WithAllowHeaders sets the accepted request headers.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowHeaders = headers
	}
}

// WithExposeHeaders sets the response headers scripts may read.
func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.ExposeHeaders = headers
	}
}

// WithAllowCredentials allows cookies and Authorization on cross-origin calls.
func WithAllowCredentials() CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowCredentials = true
	}
}

// WithMaxAge sets the preflight cache duration.
func WithMaxAge(d time.Duration) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.MaxAge = d
	}
}

// corsPolicy is a CORSConfig with its header values rendered once.
type corsPolicy struct {
	cfg     CORSConfig
	headers string
	exposed string
	maxAge  string
	anyOrig bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		cfg:     cfg,
		headers: strings.Join(cfg.AllowHeaders, ", "),
		exposed: strings.Join(cfg.ExposeHeaders, ", "),
		anyOrig: slices.Contains(cfg.AllowOrigins, "*"),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}
	return p
}

// origin returns the Access-Control-Allow-Origin value for origin, or false
// when the origin is not accepted.
func (p *corsPolicy) origin(origin string) (string, bool) {
	switch {
	case p.cfg.AllowOriginFunc != nil:
		if !p.cfg.AllowOriginFunc(origin) {
			return "", false
		}
	case !p.anyOrig && !slices.Contains(p.cfg.AllowOrigins, origin):
		return "", false
	}
	if p.anyOrig && !p.cfg.AllowCredentials && p.cfg.AllowOriginFunc == nil {
		return "*", true
	}
	return origin, true
}

// methodsFor lists the configured methods served at the matched route's
// pattern. Without a route the configured list is used as is.
func (p *corsPolicy) methodsFor(rt *internal.Route) []string {
	if rt == nil {
		return p.cfg.AllowMethods
	}
	served := rt.AllowedMethods()
	return slices.DeleteFunc(slices.Clone(p.cfg.AllowMethods), func(m string) bool {
		return !slices.Contains(served, strings.ToUpper(m))
	})
}

// preflight answers an OPTIONS request that names the method it wants.
func (p *corsPolicy) preflight(c internal.Context, h http.Header) error {
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	methods := p.methodsFor(c.Route())
	want := c.Header("Access-Control-Request-Method")
	if !slices.ContainsFunc(methods, func(m string) bool { return strings.EqualFold(m, want) }) {
		// Without Allow-Methods the browser refuses the actual request.
		c.LogDebug("cors preflight for a method not served here", "method", want)
		return c.NoContent(http.StatusNoContent)
	}

	h.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	if p.headers != "" {
		h.Set("Access-Control-Allow-Headers", p.headers)
	} else if asked := c.Header("Access-Control-Request-Headers"); asked != "" {
		h.Set("Access-Control-Allow-Headers", asked)
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
	return c.NoContent(http.StatusNoContent)
}

// CORS returns middleware for Cross-Origin Resource Sharing. Requests from an
// accepted origin get the CORS response headers; preflights are answered with
// 204 and never reach the route. Requests from other origins pass through
// untouched and the browser blocks the response.
func CORS(opts ...CORSOption) internal.Middleware {
	cfg := CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: DefaultCORSMethods,
		AllowHeaders: DefaultCORSHeaders,
		MaxAge:       DefaultCORSMaxAge,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := newCORSPolicy(cfg)

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			origin := c.Header("Origin")
			if origin == "" {
				return next(c)
			}
			allow, ok := p.origin(origin)
			if !ok {
				return next(c)
			}

			h := c.Response().Header()
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Origin", allow)
			if p.cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if p.exposed != "" {
				h.Set("Access-Control-Expose-Headers", p.exposed)
			}

			if c.Request().Method == http.MethodOptions && c.Header("Access-Control-Request-Method") != "" {
				return p.preflight(c, h)
			}
			return next(c)
		}
	}
}
