// Package match converts the cache's glob selector syntax to regular
// expressions. Only '*' (any run, including empty) and '?' (exactly one
// character) are special; everything else matches literally.
package match

import (
	"regexp"
	"strings"
)

// GlobToRegexp compiles a glob pattern into an anchored regexp. Regex
// metacharacters other than '*' and '?' are escaped before the wildcard
// substitution, so a pattern like "idx:[a]:*" matches literal brackets.
// The result is always a valid regexp: every non-wildcard rune is quoted.
func GlobToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.Grow(len(pattern) + 4)
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return regexp.MustCompile(b.String())
}

// Filter returns the subset of keys matched by the glob pattern.
// An empty pattern or "*" matches everything.
func Filter(keys []string, pattern string) []string {
	if pattern == "" || pattern == "*" {
		out := make([]string, len(keys))
		copy(out, keys)
		return out
	}
	re := GlobToRegexp(pattern)
	var out []string
	for _, k := range keys {
		if re.MatchString(k) {
			out = append(out, k)
		}
	}
	return out
}
