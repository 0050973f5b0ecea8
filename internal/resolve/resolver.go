// Package resolve merges extracted base values with category and article
// overrides. Precedence is article over category over base.
package resolve

import (
	"context"
	"fmt"

	"github.com/ppiankov/proptable/internal/model"
)

// Layer names where a resolved value came from
type Layer string

const (
	LayerBase     Layer = "base"
	LayerCategory Layer = "category"
	LayerArticle  Layer = "article"
)

// Apply returns a new map: a copy of base with every category override and
// then every article override set on it. Overrides may add keys absent from
// base. Within one scope the last override for a key wins. base is not modified.
func Apply(base model.PropertyMap, category, article []model.Override) model.PropertyMap {
	resolved, _ := ApplyTraced(base, category, article)
	return resolved
}

// ApplyTraced is Apply that also reports the layer each value came from
func ApplyTraced(base model.PropertyMap, category, article []model.Override) (model.PropertyMap, map[model.PropertyKey]Layer) {
	resolved := base.Clone()
	origin := make(map[model.PropertyKey]Layer, len(resolved))
	for k := range resolved {
		origin[k] = LayerBase
	}

	for _, o := range category {
		resolved[o.Key] = o.Value
		origin[o.Key] = LayerCategory
	}
	for _, o := range article {
		resolved[o.Key] = o.Value
		origin[o.Key] = LayerArticle
	}

	return resolved, origin
}

// OverrideSource supplies the overrides for one article
type OverrideSource interface {
	Overrides(ctx context.Context, articleID, category string) (article, categoryOverrides []model.Override, err error)
}

// KeyFunc canonicalizes an override key before it is applied
type KeyFunc func(model.PropertyKey) model.PropertyKey

// Resolver applies stored overrides to base maps
type Resolver struct {
	source OverrideSource
	keyFn  KeyFunc
}

// NewResolver creates a resolver. keyFn may be nil, in which case override
// keys are used as stored.
func NewResolver(source OverrideSource, keyFn KeyFunc) *Resolver {
	return &Resolver{source: source, keyFn: keyFn}
}

// Resolve returns the final property map for one article
func (r *Resolver) Resolve(ctx context.Context, articleID, category string, base model.PropertyMap) (model.PropertyMap, error) {
	resolved, _, err := r.ResolveTraced(ctx, articleID, category, base)
	return resolved, err
}

// ResolveTraced is Resolve that also reports the layer of each value
func (r *Resolver) ResolveTraced(ctx context.Context, articleID, category string, base model.PropertyMap) (model.PropertyMap, map[model.PropertyKey]Layer, error) {
	articleOverrides, categoryOverrides, err := r.source.Overrides(ctx, articleID, category)
	if err != nil {
		return nil, nil, fmt.Errorf("loading overrides for %s: %w", articleID, err)
	}

	articleOverrides = r.scoped(articleOverrides, model.ScopeArticle, articleID)
	if category == "" {
		categoryOverrides = nil
	} else {
		categoryOverrides = r.scoped(categoryOverrides, model.ScopeCategory, category)
	}

	resolved, origin := ApplyTraced(base, categoryOverrides, articleOverrides)
	return resolved, origin, nil
}

// scoped drops overrides addressed to another scope and canonicalizes keys
func (r *Resolver) scoped(overrides []model.Override, scope model.OverrideScope, scopeKey string) []model.Override {
	out := make([]model.Override, 0, len(overrides))
	for _, o := range overrides {
		if o.Scope != scope || o.ScopeKey != scopeKey {
			continue
		}
		if r.keyFn != nil {
			o.Key = r.keyFn(o.Key)
		}
		if o.Key.Name == "" {
			continue
		}
		out = append(out, o)
	}
	return out
}
