package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics strips combining marks, so "Curaçao" becomes "Curacao"
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// Normalize folds case, removes diacritics and collapses whitespace.
// All filter comparisons go through it.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = cases.Fold().String(RemoveDiacritics(s))
	return strings.Join(strings.Fields(s), " ")
}

// tokenDelimiters split rendered values such as "Cozumel / Roatan, Belize"
const tokenDelimiters = "/,:;|"

// tokenize splits a normalized value on tokenDelimiters and trims each token
func tokenize(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(tokenDelimiters, r)
	})
	tokens := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
