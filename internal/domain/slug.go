package domain

import (
	"strings"
	"unicode"
)

// Slugify lowercases s and joins its alphanumeric runs with single hyphens.
// Slugify("Classic Oxford - Brown") == "classic-oxford-brown".
func Slugify(parts ...string) string {
	var b strings.Builder
	pendingDash := false
	for _, part := range parts {
		for _, r := range part {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if pendingDash && b.Len() > 0 {
					b.WriteByte('-')
				}
				pendingDash = false
				b.WriteRune(unicode.ToLower(r))
				continue
			}
			pendingDash = true
		}
		pendingDash = true
	}
	return b.String()
}
