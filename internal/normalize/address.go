package normalize

import (
	"regexp"
	"strings"
)

// Dialect selects the street-type vocabulary abbreviations expand to.
type Dialect int

const (
	// Spanish expands to Castilian street types (Calle, Avenida, ...).
	Spanish Dialect = iota
	// Catalan expands to Catalan street types (Carrer, Avinguda, ...).
	Catalan
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

func rw(pattern, repl string) rewrite {
	return rewrite{re: regexp.MustCompile(pattern), repl: repl}
}

// Expansion rules run in order: multi-word abbreviations first so that the
// single-word rules below never see a half-expanded form.
var (
	spanishRules = []rewrite{
		rw(`(?i)\bctra(?:\.|\b)\s*`, "Carretera "),
		rw(`(?i)\bavda(?:\.|\b)\s*`, "Avenida "),
		rw(`(?i)\bav\.\s*`, "Avenida "),
		rw(`(?i)\bpol\.\s*ind\.\s*`, "Polígono Industrial "),
		rw(`(?i)\bpol\.\s*`, "Polígono "),
		rw(`(?i)\bpl\.\s*`, "Plaza "),
		rw(`(?i)(^|[\s,(])c\s*[/.]\s*`, "${1}Calle "),
		rw(`(?i)\bn\.?\s?[º°]\.?\s*`, "Número "),
		rw(`(?i)\b(?:p\.\s?k\.?|km\b\.?)\s*`, "km "),
	}
	catalanRules = []rewrite{
		rw(`(?i)\bctra(?:\.|\b)\s*`, "Carretera "),
		rw(`(?i)\bavda(?:\.|\b)\s*`, "Avinguda "),
		rw(`(?i)\bav\.\s*`, "Avinguda "),
		rw(`(?i)\bpol\.\s*ind\.\s*`, "Polígon Industrial "),
		rw(`(?i)\bpol\.\s*`, "Polígon "),
		rw(`(?i)\bpl\.\s*`, "Plaça "),
		rw(`(?i)\bpg\.\s*`, "Passeig "),
		rw(`(?i)(^|[\s,(])c\s*[/.]\s*`, "${1}Carrer "),
		rw(`(?i)\bn\.?\s?[º°]\.?\s*`, "Número "),
		rw(`(?i)\b(?:p\.\s?k\.?|km\b\.?)\s*`, "km "),
	}

	wordThenNumber = regexp.MustCompile(`(\p{L}+)\s+(\d)`)
	sinNumero      = regexp.MustCompile(`(?i)\bs\s*/\s*n\b`)
	spaces         = regexp.MustCompile(`\s+`)
	commas         = regexp.MustCompile(`\s*,[\s,]*`)
)

// noCommaAfter lists folded words a numeral legitimately follows without a
// separating comma.
var noCommaAfter = map[string]struct{}{
	"km": {}, "numero": {}, "calle": {}, "carrer": {}, "avenida": {},
	"avinguda": {}, "plaza": {}, "placa": {}, "carretera": {}, "passeig": {},
	"poligono": {}, "poligon": {}, "nave": {}, "parcela": {}, "sector": {},
}

// NormalizeAddress expands street abbreviations and tidies punctuation:
//
//	"C/ Mayor 10"    -> "Calle Mayor, 10"
//	"Ctra. N-1 Km 5" -> "Carretera N-1 km 5"
//
// The rules form a fixed pipeline; later steps assume earlier expansions
// already happened.
func NormalizeAddress(s string, d Dialect) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	rules := spanishRules
	if d == Catalan {
		rules = catalanRules
	}
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}

	s = wordThenNumber.ReplaceAllStringFunc(s, func(m string) string {
		g := wordThenNumber.FindStringSubmatch(m)
		if _, skip := noCommaAfter[Fold(g[1])]; skip {
			return m
		}
		return g[1] + ", " + g[2]
	})

	s = sinNumero.ReplaceAllString(s, "s/n")
	s = spaces.ReplaceAllString(s, " ")
	s = commas.ReplaceAllString(s, ", ")
	s = strings.Trim(s, " ,")
	return Capitalize(s)
}
