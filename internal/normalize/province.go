package normalize

import (
	"itvetl/internal/reference"
)

// Thresholds groups the heuristic constants used by the normalizers. They
// were tuned on the published directories and are kept configurable until
// they are validated against more data.
type Thresholds struct {
	// FuzzyMatch is the minimum similarity a raw province needs to be
	// accepted as a canonical name.
	FuzzyMatch float64
	// NearZero marks a coordinate pair as "not geocoded" when both axes are
	// below it in magnitude.
	NearZero float64
	// GarbageMagnitude rejects axes at or above it as overflow garbage.
	GarbageMagnitude float64
}

// DefaultThresholds returns the production values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FuzzyMatch:       0.5,
		NearZero:         0.0001,
		GarbageMagnitude: 200,
	}
}

// EditDistance is the Levenshtein distance between a and b measured in runes.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity is 1 - EditDistance/max(len(a), len(b)) over folded strings.
func Similarity(a, b string) float64 {
	fa, fb := Fold(a), Fold(b)
	n := max(len([]rune(fa)), len([]rune(fb)))
	if n == 0 {
		return 1
	}
	return 1 - float64(EditDistance(fa, fb))/float64(n)
}

// ProvinceMatcher resolves free-text province names onto a canonical list.
type ProvinceMatcher struct {
	names     []string
	folded    []string
	threshold float64
}

// NewProvinceMatcher builds a matcher over names. A nil names slice uses the
// full reference list.
func NewProvinceMatcher(names []string, threshold float64) *ProvinceMatcher {
	if names == nil {
		names = reference.Provinces()
	}
	m := &ProvinceMatcher{
		names:     names,
		folded:    make([]string, len(names)),
		threshold: threshold,
	}
	for i, n := range names {
		m.folded[i] = Fold(n)
	}
	return m
}

// Match returns the best canonical name and its score. When the best score
// is below the threshold the name is reference.UnknownProvince.
func (m *ProvinceMatcher) Match(raw string) (string, float64) {
	f := Fold(raw)
	if f == "" {
		return reference.UnknownProvince, 0
	}
	best, bestScore := -1, -1.0
	for i, cand := range m.folded {
		n := max(len([]rune(f)), len([]rune(cand)))
		score := 1 - float64(EditDistance(f, cand))/float64(n)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < m.threshold {
		return reference.UnknownProvince, bestScore
	}
	return m.names[best], bestScore
}

var defaultMatcher = NewProvinceMatcher(nil, DefaultThresholds().FuzzyMatch)

// MatchProvince resolves raw against every Spanish province with the default
// threshold.
func MatchProvince(raw string) string {
	name, _ := defaultMatcher.Match(raw)
	return name
}
