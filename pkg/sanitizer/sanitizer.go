package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeGuestName keeps letters, punctuation and case intact; it only removes
// control characters and collapses whitespace.
func SanitizeGuestName(input string) string {
	p := Pipeline{
		stripControl,
		TrimAndNormalize,
	}
	return p.Apply(input)
}

// SanitizeRoomType title-cases a room type so "suite" and " SUITE " match "Suite".
func SanitizeRoomType(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		strings.ToLower,
		titleFirst,
	}
	return p.Apply(input)
}

func titleFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
