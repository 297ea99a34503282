// Package slug turns titles into filesystem-friendly names.
package slug

import (
	"regexp"
	"strings"
)

// MaxLen is the default rune cap applied by Make.
const MaxLen = 80

var (
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorRe  = regexp.MustCompile(`[-\s]+`)
)

// Make slugifies text with the default length cap.
func Make(text string) string {
	return MakeN(text, MaxLen)
}

// MakeN strips punctuation, lowercases, joins words with '-' and caps the
// result at maxLen runes. Empty results become "untitled".
func MakeN(text string, maxLen int) string {
	s := disallowedRe.ReplaceAllString(text, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = separatorRe.ReplaceAllString(s, "-")
	if s == "" {
		return "untitled"
	}
	if r := []rune(s); maxLen > 0 && len(r) > maxLen {
		s = string(r[:maxLen])
	}
	return s
}
