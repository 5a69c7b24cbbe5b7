// Package textnorm normalises user text and registered keys into one
// comparable form so that lookups are insensitive to case, Unicode
// compatibility variants and stray whitespace.
package textnorm

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the canonical matching form of s: NFKC-normalised, fully case
// folded, trimmed, with runs of whitespace collapsed to a single space.
//
// A [cases.Caser] is stateful, so a fresh one is created per call.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Len returns the length of s in runes. Edit distances and thresholds are
// measured in runes, never bytes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
