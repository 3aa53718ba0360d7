// Package seats interprets the free-text seat descriptions users type for a
// seat pair ("24-25", "24, 25", "7").
package seats

import (
	"strings"
	"unicode"
)

// ParseCount returns how many seats a description names. Two numbers form an
// inclusive range when the second is not below the first; anything else
// counts the entries that start with an integer. It never returns a negative
// value and returns 0 for empty or unreadable input.
func ParseCount(s string) int {
	if s == "" {
		return 0
	}

	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if r == '-' {
			return ','
		}
		return r
	}, s)

	var parts []string
	for _, p := range strings.Split(normalized, ",") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) == 2 {
		a, okA := leadingInt(parts[0])
		b, okB := leadingInt(parts[1])
		if okA && okB && b >= a {
			return max(1, b-a+1)
		}
	}

	count := 0
	for _, p := range parts {
		if _, ok := leadingInt(p); ok {
			count++
		}
	}
	return count
}

// leadingInt parses an optional '+' sign followed by the longest run of
// decimal digits at the start of s. Trailing characters are ignored.
func leadingInt(s string) (int, bool) {
	s = strings.TrimPrefix(s, "+")
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n < 1<<40 {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	return n, digits > 0
}
