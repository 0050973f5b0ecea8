// Package match resolves raw property names against the registry and ranks
// advisory canonical-name suggestions for names without a confirmed mapping.
package match

import (
	"strings"

	"github.com/ppiankov/proptable/internal/cache"
	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/registry"
	"github.com/ppiankov/proptable/internal/score"
)

// Matcher reads the registry snapshot. It never writes to the registry;
// applying a suggestion goes through registry.Confirm.
type Matcher struct {
	registry *registry.Registry
	scorer   *score.Scorer
	cache    cache.Cache // Optional
}

// NewMatcher creates a matcher over reg. A nil cache disables memoization.
func NewMatcher(reg *registry.Registry, c cache.Cache) *Matcher {
	return &Matcher{
		registry: reg,
		scorer:   score.NewScorer(),
		cache:    c,
	}
}

// StandardName returns the mapped canonical name for a raw name, or the raw
// name unchanged when no mapping exists
func (m *Matcher) StandardName(original string, lang model.Language) string {
	if mapping, ok := m.lookup(original, lang); ok {
		return mapping.Standard
	}
	return original
}

// SuggestMappings ranks candidates for every distinct name that has no
// confirmed mapping. Names without a candidate above the threshold map to an
// empty list.
func (m *Matcher) SuggestMappings(lang model.Language, names []string) map[string][]model.Suggestion {
	out := make(map[string][]model.Suggestion)
	version := m.registry.Version()

	var candidates []string
	for _, name := range names {
		if _, done := out[name]; done {
			continue
		}
		if mapping, ok := m.lookup(name, lang); ok && mapping.Authoritative() {
			continue
		}

		key := cache.SuggestionKey(version, lang, name)
		if m.cache != nil {
			if cached, ok := m.cache.Get(key); ok {
				out[name] = cached
				continue
			}
		}

		if candidates == nil {
			candidates = m.registry.CandidateNames(lang)
		}
		suggestions := m.scorer.Rank(name, candidates)
		if suggestions == nil {
			suggestions = []model.Suggestion{}
		}
		if m.cache != nil {
			m.cache.Set(key, suggestions)
		}
		out[name] = suggestions
	}

	return out
}

// lookup tries the raw name as written, then without surrounding space and
// a trailing colon
func (m *Matcher) lookup(original string, lang model.Language) (model.PropertyMapping, bool) {
	if mapping, ok := m.registry.Mapping(original, lang); ok {
		return mapping, true
	}
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(original), ":"))
	if trimmed != original {
		return m.registry.Mapping(trimmed, lang)
	}
	return model.PropertyMapping{}, false
}
