package normalize

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)
	// "Pontes, As", "Hospitalet de Llobregat, L'", "Vall d'Uixó, La".
	trailingArticle = regexp.MustCompile(`(?i)^(.+?)\s*,\s*(el|la|los|las|lo|els|les|l'|l’|es|sa|ses|o|a|os|as)$`)
)

// NormalizeLocality canonicalizes a municipality name: parenthetical
// suffixes are removed and a trailing article moves to the front.
//
//	"Pontes, As"            -> "As Pontes"
//	"Alcoi (Alcoy)"         -> "Alcoi"
//	"Hospitalet de Ll., L'" -> "L'Hospitalet de Ll."
func NormalizeLocality(s string) string {
	s = parenthetical.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if m := trailingArticle.FindStringSubmatch(s); m != nil {
		base, art := m[1], Capitalize(strings.ToLower(m[2]))
		if strings.HasSuffix(art, "'") || strings.HasSuffix(art, "’") {
			s = art + base
		} else {
			s = art + " " + base
		}
	}
	return strings.TrimSpace(s)
}
