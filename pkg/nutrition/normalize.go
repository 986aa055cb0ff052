// Package nutrition holds the label normalizers, the serving-weight parser and
// the macro arithmetic shared by the catalog and the resolver.
package nutrition

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keepRune reports whether r survives normalization: ASCII letters, ASCII
// digits and precomposed Hangul syllables.
func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= 0xAC00 && r <= 0xD7A3:
		return true
	}
	return false
}

var dropRunes = runes.Predicate(func(r rune) bool { return !keepRune(r) })

// Normalize turns a label into its lookup key: NFKC, everything but ASCII
// letters/digits and Hangul syllables removed, lowercased.
// "Fried-Chicken" and "fried chicken" both become "friedchicken".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Chains carry buffers, so one per call.
	t := transform.Chain(norm.NFKC, runes.Remove(dropRunes), runes.Map(unicode.ToLower))
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return out
}

// Fold is the token-preserving variant of Normalize used for similarity
// scoring: dropped characters become spaces and runs of spaces collapse.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKC, runes.Map(func(r rune) rune {
		if keepRune(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}))
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(out), " ")
}
