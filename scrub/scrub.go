// Package scrub strips markup from untrusted text. Curated CSV cells and
// feed entry fields both pass through here before anything else sees them.
package scrub

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text removes every HTML tag from s, unescapes entities and trims
// surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}
