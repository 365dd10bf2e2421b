// Package sanitizer cleans user-supplied text before it is stored.
package sanitizer

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	richPolicy   *bluemonday.Policy
	initOnce     sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// pin descriptions keep light formatting and links
		richPolicy = bluemonday.NewPolicy()
		richPolicy.AllowStandardURLs()
		richPolicy.AllowElements(
			"p", "br",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"blockquote",
		)
		richPolicy.AllowAttrs("href").OnElements("a")
		richPolicy.RequireNoFollowOnLinks(true)
		richPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
}

// Text strips all markup and surrounding whitespace.
// Use for names, titles, tags and invite messages.
func Text(s string) string {
	initPolicies()
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// RichText keeps a small formatting subset (paragraphs, emphasis, lists,
// quotes and nofollow links) and drops everything else, including scripts,
// event handlers and javascript: URLs.
func RichText(s string) string {
	initPolicies()
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

// Tags sanitizes, lower-cases and de-duplicates a tag list, dropping empties.
func Tags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(Text(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
