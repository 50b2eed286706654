package mapper

import (
	"github.com/cloudflare/ahocorasick"

	"itvetl/internal/domain"
	"itvetl/internal/normalize"
)

// classifier assigns a station type from free text. Keywords are matched on
// folded text, so "Móvil", "MOVIL" and "mòbil" all hit "movil"/"mobil".
// Mobile keywords take precedence over fixed ones.
//
// ahocorasick matchers keep per-match scratch state, so a classifier belongs
// to one mapper instance and is never shared between goroutines.
type classifier struct {
	matcher  *ahocorasick.Matcher
	types    []domain.StationType
	fallback domain.StationType
	subtypes *ahocorasick.Matcher
}

func newClassifier(mobile, fixed []string, fallback domain.StationType) *classifier {
	patterns := make([]string, 0, len(mobile)+len(fixed))
	types := make([]domain.StationType, 0, cap(patterns))
	for _, k := range mobile {
		patterns = append(patterns, k)
		types = append(types, domain.TypeMobile)
	}
	for _, k := range fixed {
		patterns = append(patterns, k)
		types = append(types, domain.TypeFixed)
	}
	return &classifier{
		matcher:  ahocorasick.NewStringMatcher(patterns),
		types:    types,
		fallback: fallback,
		subtypes: ahocorasick.NewStringMatcher([]string{"agric", "movil", "mobil"}),
	}
}

func (c *classifier) Classify(text string) domain.StationType {
	hits := c.matcher.Match([]byte(normalize.Fold(text)))
	if len(hits) == 0 {
		return c.fallback
	}
	best := c.types[hits[0]]
	for _, h := range hits[1:] {
		if c.types[h] == domain.TypeMobile {
			best = domain.TypeMobile
		}
	}
	return best
}

// Subtype names the kind of non-fixed station for generated names.
func (c *classifier) Subtype(text string, t domain.StationType) string {
	hits := c.subtypes.Match([]byte(normalize.Fold(text)))
	for _, h := range hits {
		if h == 0 {
			return "Agrícola"
		}
	}
	if len(hits) > 0 || t == domain.TypeMobile {
		return "Móvil"
	}
	return "Otros"
}
