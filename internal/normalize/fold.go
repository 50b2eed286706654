// Package normalize implements the lexical normalizers the source mappers
// use to repair raw directory fields: accent-insensitive folding, fuzzy
// province matching, address and locality canonicalization, and coordinate
// parsing and sanity checks.
//
// Every function in this package is pure and safe for concurrent use.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder builds a fresh transformer chain. transform.Chain keeps internal
// buffers, so a chain must not be shared between goroutines.
func folder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		cases.Fold(),
	)
}

// Fold returns s with diacritics removed, case folded and inner whitespace
// collapsed. It is the key used for every accent- and case-insensitive
// comparison in the pipeline ("València" and "VALENCIA" fold equal).
func Fold(s string) string {
	out, _, err := transform.String(folder(), s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// EqualFold reports whether a and b are equal ignoring case and accents.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Capitalize upper-cases the first letter of s and leaves the rest intact.
func Capitalize(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			return s[:i] + string(unicode.ToUpper(r)) + s[i+len(string(r)):]
		}
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			return s
		}
	}
	return s
}

// IsURL reports whether s looks like a web address rather than contact
// details.
func IsURL(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(l, "http://") ||
		strings.HasPrefix(l, "https://") ||
		strings.HasPrefix(l, "www.")
}
