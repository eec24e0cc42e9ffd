package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalidMiddlewareConfig is returned for malformed middleware tables.
var ErrInvalidMiddlewareConfig = errors.New("invalid middleware config")

// MiddlewareConfig holds the middleware tables consulted when a route's
// pipeline is assembled.
//
// Example YAML:
//
//	aliases:
//	  auth: auth.session
//	groups:
//	  stateless: [cors, throttle, api]
//	global: [request_id]
//	priority: [cors, throttle, auth, api]
type MiddlewareConfig struct {
	// Aliases map short names to container middleware ids.
	Aliases map[string]string `yaml:"aliases"`

	// Groups name lists of middleware that expand in place.
	Groups map[string][]string `yaml:"groups"`

	// Global middleware runs for every matched route, ahead of group and
	// route middleware.
	Global []string `yaml:"global"`

	// Priority reorders the listed middleware relative to each other.
	// Entries not listed keep their positions.
	Priority []string `yaml:"priority"`
}

// ParseMiddlewareConfig decodes a YAML middleware table.
func ParseMiddlewareConfig(data []byte) (*MiddlewareConfig, error) {
	var cfg MiddlewareConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMiddlewareConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadMiddlewareConfig reads and decodes a YAML middleware table from fsys.
func LoadMiddlewareConfig(fsys fs.FS, name string) (*MiddlewareConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}
	return ParseMiddlewareConfig(data)
}

// Validate rejects empty ids and self-referencing groups.
func (c *MiddlewareConfig) Validate() error {
	for alias, target := range c.Aliases {
		if alias == "" || target == "" {
			return fmt.Errorf("%w: empty alias %q -> %q", ErrInvalidMiddlewareConfig, alias, target)
		}
	}
	for name, members := range c.Groups {
		if name == "" {
			return fmt.Errorf("%w: unnamed group", ErrInvalidMiddlewareConfig)
		}
		if slices.Contains(members, "") {
			return fmt.Errorf("%w: group %q has an empty entry", ErrInvalidMiddlewareConfig, name)
		}
		if c.groupCycle(name, nil) {
			return fmt.Errorf("%w: group %q includes itself", ErrInvalidMiddlewareConfig, name)
		}
	}
	if slices.Contains(c.Global, "") || slices.Contains(c.Priority, "") {
		return fmt.Errorf("%w: empty middleware id", ErrInvalidMiddlewareConfig)
	}
	return nil
}

func (c *MiddlewareConfig) groupCycle(name string, seen []string) bool {
	if slices.Contains(seen, name) {
		return true
	}
	seen = append(seen, name)
	for _, m := range c.Groups[name] {
		if _, ok := c.Groups[m]; ok && c.groupCycle(m, seen) {
			return true
		}
	}
	return false
}

// Merge overlays other onto c. Aliases and groups from other replace
// same-named entries; global and priority lists are appended.
func (c *MiddlewareConfig) Merge(other *MiddlewareConfig) {
	if other == nil {
		return
	}
	if len(other.Aliases) > 0 {
		if c.Aliases == nil {
			c.Aliases = make(map[string]string, len(other.Aliases))
		}
		maps.Copy(c.Aliases, other.Aliases)
	}
	if len(other.Groups) > 0 {
		if c.Groups == nil {
			c.Groups = make(map[string][]string, len(other.Groups))
		}
		for name, members := range other.Groups {
			c.Groups[name] = slices.Clone(members)
		}
	}
	c.Global = append(c.Global, other.Global...)
	c.Priority = append(c.Priority, other.Priority...)
}

// Resolve maps an alias to its target id. Unknown names pass through.
func (c *MiddlewareConfig) Resolve(alias string) string {
	if target, ok := c.Aliases[alias]; ok {
		return target
	}
	return alias
}

// Expand replaces group names with their members (recursively) and resolves
// aliases. Duplicates are kept.
func (c *MiddlewareConfig) Expand(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if members, ok := c.Groups[id]; ok {
			out = append(out, c.Expand(members)...)
			continue
		}
		out = append(out, c.Resolve(id))
	}
	return out
}

// Pipeline computes the ordered middleware ids for a route: global entries
// first, then route entries (which already include group middleware),
// expanded, deduplicated with the first occurrence winning and finally
// reordered by priority.
func (c *MiddlewareConfig) Pipeline(route []string) []string {
	ids := c.Expand(append(slices.Clone(c.Global), route...))

	seen := make(map[string]struct{}, len(ids))
	deduped := ids[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return c.prioritize(deduped)
}

// prioritize sorts the entries named in Priority among the slots they
// already occupy, leaving other entries untouched.
func (c *MiddlewareConfig) prioritize(ids []string) []string {
	if len(c.Priority) == 0 {
		return ids
	}

	rank := make(map[string]int, len(c.Priority))
	for i, id := range c.Expand(c.Priority) {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}

	var slots []int
	var ranked []string
	for i, id := range ids {
		if _, ok := rank[id]; ok {
			slots = append(slots, i)
			ranked = append(ranked, id)
		}
	}
	slices.SortStableFunc(ranked, func(a, b string) int {
		return rank[a] - rank[b]
	})
	for i, slot := range slots {
		ids[slot] = ranked[i]
	}
	return ids
}
