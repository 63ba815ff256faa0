package downloader

import (
	"strings"
	"unicode"
)

// Sanitize drops every character of name that is not a letter, a digit,
// a space, '.', '-' or '_', then trims trailing spaces.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" .-_", r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}
