package faultpage

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// maxMessageLen caps messages shown on fault pages.
const maxMessageLen = 2000

var (
	strictPolicy *bluemonday.Policy
	initOnce     sync.Once
)

// Clean strips all markup from s, collapses whitespace runs and caps the
// length. The result is plain text and still needs escaping on output.
func Clean(s string) string {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})

	// bluemonday escapes what it keeps; unescape so the renderer escapes once.
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxMessageLen {
		s = strings.ToValidUTF8(s[:maxMessageLen], "") + "…"
	}
	return s
}
