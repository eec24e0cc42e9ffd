package internal

import (
	"fmt"
	"strings"
)

// segment is one compiled piece of a route pattern.
type segment struct {
	value string // literal text, or the parameter name when param is true
	param bool
}

// normalizePath collapses repeated slashes, ensures a leading slash and strips
// the trailing slash from everything except the root.
func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}

	var b strings.Builder
	b.Grow(len(p) + 1)
	if p[0] != '/' {
		b.WriteByte('/')
	}
	prevSlash := false
	for i := 0; i < len(p); i++ {
		ch := p[i]
		if ch == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(ch)
	}

	out := b.String()
	if len(out) > 1 {
		out = strings.TrimRight(out, "/")
	}
	if out == "" {
		return "/"
	}
	return out
}

// joinPaths concatenates a group prefix with a route path.
func joinPaths(prefix, p string) string {
	switch {
	case prefix == "" || prefix == "/":
		return normalizePath(p)
	case p == "" || p == "/":
		return normalizePath(prefix)
	}
	return normalizePath(prefix + "/" + p)
}

// splitPath splits a normalized path into its segments. The root has none.
func splitPath(p string) []string {
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// paramName reports whether seg is a placeholder ({name} or :name) and returns
// the bound name.
func paramName(seg string) (string, bool) {
	switch {
	case len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}':
		return seg[1 : len(seg)-1], true
	case len(seg) > 1 && seg[0] == ':':
		return seg[1:], true
	}
	return "", false
}

// compilePattern parses a normalized route pattern. It panics on malformed
// placeholders and duplicate parameter names: route tables are built at
// startup and a broken pattern is a programming error.
func compilePattern(p string) []segment {
	parts := splitPath(p)
	segs := make([]segment, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		name, ok := paramName(part)
		if !ok {
			if strings.ContainsAny(part, "{}") {
				panic(fmt.Sprintf("anvil: malformed placeholder %q in pattern %q", part, p))
			}
			segs = append(segs, segment{value: part})
			continue
		}
		if name == "" || strings.ContainsAny(name, "{}:/") {
			panic(fmt.Sprintf("anvil: invalid parameter name %q in pattern %q", part, p))
		}
		if _, dup := seen[name]; dup {
			panic(fmt.Sprintf("anvil: duplicate parameter %q in pattern %q", name, p))
		}
		seen[name] = struct{}{}
		segs = append(segs, segment{value: name, param: true})
	}
	return segs
}

// isStatic reports whether segs has no placeholders.
func isStatic(segs []segment) bool {
	for _, s := range segs {
		if s.param {
			return false
		}
	}
	return true
}
