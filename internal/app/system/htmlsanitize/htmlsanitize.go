// Package htmlsanitize strips markup from user-entered text before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag. Policies are safe for concurrent use once built.
var strict = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding are peeled.
const maxPasses = 4

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// PlainText removes all HTML from s and returns the visible text, with
// entities decoded and surrounding whitespace trimmed. "Suds &amp; Co" and
// "<b>Suds & Co</b>" both become "Suds & Co". Entity-encoded markup such as
// "&lt;script&gt;" is decoded before sanitising, so it cannot come back out
// as a live tag.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(html.UnescapeString(s)))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	return strings.TrimSpace(angleBrackets.Replace(strict.Sanitize(s)))
}

// PlainTextPtr applies PlainText to *s, returning nil for nil.
func PlainTextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := PlainText(*s)
	return &v
}
