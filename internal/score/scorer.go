package score

import (
	"sort"
	"strings"

	"github.com/ppiankov/proptable/internal/model"
)

// Scoring constants. The scale is shared with stored mapping confidences,
// so it must not change.
const (
	ContainmentScore = 0.8 // One name contains the other
	Threshold        = 0.6 // Minimum score kept as a suggestion
	MaxSuggestions   = 3
)

// Scorer ranks canonical-name candidates for a raw property name
type Scorer struct {
	threshold float64
	limit     int
}

// NewScorer creates a scorer with the standard threshold and limit
func NewScorer() *Scorer {
	return &Scorer{
		threshold: Threshold,
		limit:     MaxSuggestions,
	}
}

// Similarity scores two names in [0,1].
//
// Containment of one lower-cased name in the other scores ContainmentScore; this
// check comes first, so identical names also score 0.8. Otherwise the score is
// the size of the shared character set over the larger character set.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if strings.Contains(b, a) || strings.Contains(a, b) {
		return ContainmentScore
	}

	setA := charSet(a)
	setB := charSet(b)

	common := 0
	for r := range setA {
		if setB[r] {
			common++
		}
	}

	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	// Both sets are non-empty here: an empty name is contained in any other
	return float64(common) / float64(larger)
}

// Rank scores every candidate against name and returns those at or above the
// threshold, best first, at most limit entries. Ties are ordered by name.
func (s *Scorer) Rank(name string, candidates []string) []model.Suggestion {
	var suggestions []model.Suggestion
	seen := make(map[string]bool)

	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		score := Similarity(name, candidate)
		if score >= s.threshold {
			suggestions = append(suggestions, model.Suggestion{Name: candidate, Score: score})
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Name < suggestions[j].Name
	})

	if len(suggestions) > s.limit {
		suggestions = suggestions[:s.limit]
	}

	return suggestions
}

func charSet(s string) map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range s {
		set[r] = true
	}
	return set
}

// Rank ranks candidates with the standard threshold and limit
func Rank(name string, candidates []string) []model.Suggestion {
	return NewScorer().Rank(name, candidates)
}
