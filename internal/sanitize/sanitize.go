// Package sanitize cleans content that arrives from the automation workflow
// before it is stored or rendered. Uses bluemonday: item text is reduced to
// plain text and links are restricted to http(s) URLs.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy *bluemonday.Policy
	linkPolicy *bluemonday.Policy
	policyOnce sync.Once
)

// policies initializes both shared policies on first use.
func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()

		linkPolicy = bluemonday.NewPolicy()
		linkPolicy.AllowAttrs("href").OnElements("a")
		linkPolicy.AllowURLSchemes("http", "https")
		linkPolicy.RequireParseableURLs(true)
	})
	return textPolicy, linkPolicy
}

// Text strips every tag from input and returns plain text. Entities are
// decoded so the result can be escaped once by the view layer.
func Text(input string) string {
	if input == "" {
		return ""
	}
	p, _ := policies()
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(input)))
}

// FallbackLink is returned for links that cannot be shown.
const FallbackLink = "#"

var hrefRe = regexp.MustCompile(`href="([^"]*)"`)

// Link returns raw if it is a safe absolute http(s) URL, otherwise
// FallbackLink. javascript:, data: and relative URLs are all rejected.
func Link(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == FallbackLink {
		return FallbackLink
	}
	_, p := policies()
	out := p.Sanitize(`<a href="` + html.EscapeString(raw) + `">x</a>`)
	m := hrefRe.FindStringSubmatch(out)
	if m == nil {
		return FallbackLink
	}
	link := html.UnescapeString(m[1])
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return FallbackLink
	}
	return link
}
