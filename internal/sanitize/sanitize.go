// Package sanitize cleans user-supplied text before it is stored. Campaign
// names and session titles are reduced to plain text; session notes keep a
// small set of inline formatting tags.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict     *bluemonday.Policy
	notes      *bluemonday.Policy
	policyOnce sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		strict = bluemonday.StrictPolicy()

		notes = bluemonday.NewPolicy()
		notes.AllowElements("b", "strong", "i", "em", "u", "s", "br", "p", "ul", "ol", "li", "code")
		notes.AllowStandardURLs()
		notes.AllowAttrs("href").OnElements("a")
		notes.RequireNoFollowOnLinks(true)
		notes.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return strict, notes
}

// PlainText strips every tag and returns unescaped, whitespace-trimmed text.
// "<b>D&amp;D</b> night" becomes "D&D night".
func PlainText(input string) string {
	if input == "" {
		return ""
	}
	p, _ := policies()
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(input)))
}

// Notes sanitizes free-form session notes, keeping basic formatting and
// links but dropping scripts, event handlers and styling.
func Notes(input string) string {
	if input == "" {
		return ""
	}
	_, p := policies()
	return strings.TrimSpace(p.Sanitize(input))
}
