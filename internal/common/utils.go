package common

import (
	"regexp"
	"strings"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\w\-. ]+`)
	filenameWhitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeFilename strips characters that are unsafe in filenames and
// collapses runs of whitespace to single underscores. The result is
// capped at 180 runes.
func SanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeFilenameChars.ReplaceAllString(s, "_")
	s = filenameWhitespace.ReplaceAllString(s, "_")
	runes := []rune(s)
	if len(runes) > 180 {
		runes = runes[:180]
	}
	return string(runes)
}
