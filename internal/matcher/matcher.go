// Package matcher decides whether a URL is allowed by a list of allow-rules.
// Everything here is pure and safe for concurrent use.
package matcher

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Wildcard marks a rule as a glob pattern.
const Wildcard = "*"

// Schemes of browser chrome and extension pages. Anything else with a
// non-web "scheme://" prefix is also treated as internal.
var internalSchemes = []string{
	"about:",
	"chrome:",
	"chrome-extension:",
	"edge:",
	"brave:",
	"arc:",
	"opera:",
	"vivaldi:",
	"file:",
	"favorites:",
	"safari-resource:",
	"safari-web-extension:",
	"moz-extension:",
	"devtools:",
}

// Matcher evaluates URLs against allow-rules. The zero value is not usable;
// use New or Default.
type Matcher struct {
	blockPageHosts []string
}

// New creates a matcher whose always-allowed block page listens on port.
func New(port int) *Matcher {
	p := strconv.Itoa(port)
	return &Matcher{
		blockPageHosts: []string{"localhost:" + p, "127.0.0.1:" + p, "[::1]:" + p},
	}
}

// Default matches against the block page on domain.BlockPagePort.
var Default = New(domain.BlockPagePort)

// IsAllowed reports whether url is allowed by rules using the Default matcher.
func IsAllowed(url string, rules []string) bool {
	return Default.IsAllowed(url, rules)
}

// IsBlockPage reports whether url points at the Default block page.
func IsBlockPage(url string) bool {
	return Default.IsBlockPage(url)
}

// IsAllowed reports whether url is allowed. The first matching rule wins;
// with no match the URL is disallowed.
func (m *Matcher) IsAllowed(url string, rules []string) bool {
	if IsInternal(url) || m.IsBlockPage(url) {
		return true
	}

	candidate := Normalize(url)
	for _, rule := range rules {
		if matchRule(url, candidate, rule) {
			return true
		}
	}
	return false
}

// IsBlockPage reports whether url points at the enforcement server.
func (m *Matcher) IsBlockPage(url string) bool {
	n := Normalize(url)
	for _, host := range m.blockPageHosts {
		if n == host || strings.HasPrefix(n, host+"/") || strings.HasPrefix(n, host+"?") {
			return true
		}
	}
	return false
}

// IsInternal reports whether url uses a browser-internal, non-web scheme.
func IsInternal(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	for _, scheme := range internalSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}

	i := strings.Index(lower, "://")
	if i <= 0 {
		return false
	}
	scheme := lower[:i]
	if scheme == "http" || scheme == "https" {
		return false
	}
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

// Normalize strips the http(s) scheme and leading "www." labels, lower-cases
// and drops trailing slashes. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for {
		before := s
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		s = strings.TrimPrefix(s, "www.")
		if s == before {
			break
		}
	}
	return strings.TrimRight(s, "/")
}

func matchRule(rawURL, candidate, rule string) bool {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return false
	}

	if strings.Contains(rule, Wildcard) {
		return Glob(rule, rawURL)
	}

	normalizedRule := Normalize(rule)
	if normalizedRule == "" {
		return false
	}

	switch {
	case candidate == normalizedRule:
		return true
	case strings.HasPrefix(candidate, normalizedRule+"/"):
		return true
	default:
		// Broad convenience match: subdomains, query strings.
		return strings.Contains(candidate, normalizedRule)
	}
}

// Glob matches s against pattern case- and diacritic-insensitively.
// '*' matches any run of characters and '?' matches exactly one; the whole
// string must match.
func Glob(pattern, s string) bool {
	return globRunes([]rune(fold(pattern)), []rune(fold(s)))
}

// globRunes is the iterative star-backtracking matcher.
func globRunes(p, s []rune) bool {
	pi, si := 0, 0
	starP, starS := -1, 0

	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			starP = pi
			starS = si
			pi++
		case starP >= 0:
			pi = starP + 1
			starS++
			si = starS
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// fold lower-cases s and strips combining marks ("é" -> "e").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
