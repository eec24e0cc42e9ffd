package internal

import (
	"net"
	"strings"
)

// ExtractorSource extracts a value from the request context.
// Returns the value and true if found, or ("", false) if not present.
type ExtractorSource = func(Context) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
// Middlewares use it to locate credentials and rate limit keys.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract iterates sources in order and returns the first non-empty value.
// Returns ("", false) if all sources miss.
func (e Extractor) Extract(c Context) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(c); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return nonEmpty(func(c Context) string { return c.Header(name) })
}

// FromQuery returns a source that reads from a query parameter.
func FromQuery(name string) ExtractorSource {
	return nonEmpty(func(c Context) string { return c.Query(name) })
}

// FromParam returns a source that reads from a path parameter.
func FromParam(name string) ExtractorSource {
	return nonEmpty(func(c Context) string { return c.Param(name) })
}

// FromCookie returns a source that reads from a plain cookie.
func FromCookie(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		v, err := c.Cookie(name)
		if err != nil || v == "" {
			return "", false
		}
		return v, true
	}
}

// FromBearerToken returns a source that reads a Bearer token from the Authorization header.
// Uses case-insensitive comparison on the "Bearer " prefix.
func FromBearerToken() ExtractorSource {
	return func(c Context) (string, bool) {
		auth := c.Header("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		token := strings.TrimSpace(auth[7:])
		if token == "" {
			return "", false
		}
		return token, true
	}
}

// FromRemoteIP returns a source that reads the client address without its
// port. Put a proxy-aware middleware such as chi's RealIP in front of the
// kernel when running behind a load balancer.
func FromRemoteIP() ExtractorSource {
	return func(c Context) (string, bool) {
		addr := c.Request().RemoteAddr
		if addr == "" {
			return "", false
		}
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host, true
		}
		return addr, true
	}
}

func nonEmpty(get func(Context) string) ExtractorSource {
	return func(c Context) (string, bool) {
		v := get(c)
		if v == "" {
			return "", false
		}
		return v, true
	}
}
