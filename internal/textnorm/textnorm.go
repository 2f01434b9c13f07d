// Package textnorm canonicalizes free text before it is compared.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds compatibility forms (NFKC), replaces every rune that is not a
// letter, digit or whitespace with a space, lower-cases and collapses
// whitespace runs into single spaces. Empty input yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded := norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(folded))

	pendingSpace := false
	for _, r := range folded {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// NormalizeAll normalizes every text, keeping positions.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Normalize(t)
	}
	return out
}
