// Package sanitizer cleans user supplied HTML with bluemonday policies.
package sanitizer

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = sync.OnceValue(bluemonday.StrictPolicy)
	basic  = sync.OnceValue(BasicPolicy)
)

// BasicPolicy returns a new policy keeping paragraphs, emphasis, lists, code,
// quotes and links. Links get rel="nofollow"; only standard URL schemes survive.
func BasicPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements("p", "br", "strong", "b", "em", "i", "ul", "ol", "li", "code", "pre", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// StripHTML removes every tag and returns trimmed plain text.
// Entities produced by the strict policy are decoded back.
func StripHTML(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(strict().Sanitize(s)))
}

// Sanitize cleans s with policy, or with the shared BasicPolicy when policy is nil.
func Sanitize(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		policy = basic()
	}
	return policy.Sanitize(s)
}
