// Package validate holds the pure input checks shared by the form, the
// submission pipeline and the webhook client. Nothing in here touches the
// network, the database or the request; every function is safe to call from
// any goroutine.
package validate

import (
	"regexp"
	"strings"
)

// emailPattern is intentionally permissive: one "@", no whitespace, and a dot
// somewhere in the domain part. It is not a full RFC 5322 parser.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// domainPattern accepts dot-separated labels of 1-63 alphanumerics/hyphens
// (no leading or trailing hyphen) ending in an alphabetic top-level label.
var domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]+$`)

// schemePrefix matches an optional http(s) scheme followed by an optional "www.".
var schemePrefix = regexp.MustCompile(`^(https?://)?(www\.)?`)

// topicPunctuation is the set of characters trimmed from both ends of a topic.
const topicPunctuation = ",;:.!?&@#$%^*(){}[]|\\/<>"

// whitespaceRun collapses internal whitespace in topics.
var whitespaceRun = regexp.MustCompile(`\s+`)

// EnglishTLDs is the allow-list used by IsEnglishSource.
var EnglishTLDs = []string{".com", ".org", ".net", ".io", ".co", ".uk", ".us", ".ca", ".au", ".nz"}

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidDomain reports whether s is a bare domain name such as
// "techcrunch.com". Schemes, paths and spaces are rejected.
func IsValidDomain(s string) bool {
	if len(s) > 253 {
		return false
	}
	return domainPattern.MatchString(s)
}

// IsEnglishSource reports whether the domain ends in one of EnglishTLDs.
func IsEnglishSource(domain string) bool {
	d := strings.ToLower(domain)
	for _, tld := range EnglishTLDs {
		if strings.HasSuffix(d, tld) {
			return true
		}
	}
	return false
}

// NormalizeDomain reduces user input such as "https://www.Example.com/a?b=1"
// to the bare lowercase domain "example.com". The result is not validated.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = schemePrefix.ReplaceAllString(d, "")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSpace(d)
}

// CleanTopicText normalizes a single topic: lowercase, trimmed, stripped of
// leading/trailing punctuation, internal whitespace collapsed to one space.
func CleanTopicText(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimRight(t, topicPunctuation)
	t = strings.TrimLeft(t, topicPunctuation)
	t = whitespaceRun.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}
