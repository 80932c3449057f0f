// Package sanitizer normalizes free-text request fields before validation,
// so that equivalent inputs ("  Table  12 ", "table 12") compare equal and
// never reach the store with stray whitespace.
package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeEmail lowercases and trims an email address. Emails are used as
// customer and waiter identities, so casing must never split one identity
// into two.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeID collapses whitespace around opaque identifiers (location ids,
// table numbers, dates). Identifiers are compared byte-for-byte downstream.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
