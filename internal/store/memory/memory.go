// Package memory implements the property store in process memory. It backs
// tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/store"
)

type overrideID struct {
	scope    model.OverrideScope
	scopeKey string
	key      model.PropertyKey
}

// Store is a mutex-protected in-memory store
type Store struct {
	mu          sync.RWMutex
	definitions map[model.PropertyKey]model.PropertyDefinition
	mappings    map[model.PropertyKey]model.PropertyMapping
	articles    map[string]model.Article
	extracted   map[string][]model.ExtractedProperty
	overrides   map[overrideID]model.Override
	runs        []model.ImportRun
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		definitions: make(map[model.PropertyKey]model.PropertyDefinition),
		mappings:    make(map[model.PropertyKey]model.PropertyMapping),
		articles:    make(map[string]model.Article),
		extracted:   make(map[string][]model.ExtractedProperty),
		overrides:   make(map[overrideID]model.Override),
	}
}

// LoadDefinitions returns all definitions ordered by key
func (s *Store) LoadDefinitions(ctx context.Context) ([]model.PropertyDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]model.PropertyDefinition, 0, len(s.definitions))
	for _, d := range s.definitions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Key.Less(defs[j].Key) })
	return defs, nil
}

// UpsertDefinition inserts or replaces a definition
func (s *Store) UpsertDefinition(ctx context.Context, def model.PropertyDefinition) error {
	if def.Key.Name == "" {
		return fmt.Errorf("definition without name")
	}
	if def.DataType == "" {
		def.DataType = model.TypeString
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions[def.Key] = def
	return nil
}

// AddPropertyIfAbsent inserts a default definition when none exists
func (s *Store) AddPropertyIfAbsent(ctx context.Context, key model.PropertyKey) (bool, error) {
	if key.Name == "" {
		return false, fmt.Errorf("definition without name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.definitions[key]; ok {
		return false, nil
	}
	s.definitions[key] = model.PropertyDefinition{Key: key, DataType: model.TypeString}
	return true, nil
}

// LoadMappings returns all mappings ordered by original name and language
func (s *Store) LoadMappings(ctx context.Context) ([]model.PropertyMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mappings := make([]model.PropertyMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		mappings = append(mappings, m)
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Key().Less(mappings[j].Key()) })
	return mappings, nil
}

// UpsertMapping replaces a mapping unless that would downgrade a confirmed one
func (s *Store) UpsertMapping(ctx context.Context, m model.PropertyMapping) error {
	if m.Original == "" || m.Standard == "" {
		return fmt.Errorf("mapping needs original and standard names")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mappings[m.Key()]; ok && existing.Authoritative() && !m.Authoritative() {
		return nil
	}
	s.mappings[m.Key()] = m
	return nil
}

// UpsertArticle inserts or replaces an article
func (s *Store) UpsertArticle(ctx context.Context, a model.Article) error {
	if a.ID == "" {
		return fmt.Errorf("article without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID] = cloneArticle(a)
	return nil
}

// Article returns one article or store.ErrNotFound
func (s *Store) Article(ctx context.Context, id string) (model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return model.Article{}, fmt.Errorf("article %s: %w", id, store.ErrNotFound)
	}
	return cloneArticle(a), nil
}

// Articles returns all articles ordered by id
func (s *Store) Articles(ctx context.Context) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	articles := make([]model.Article, 0, len(s.articles))
	for _, a := range s.articles {
		articles = append(articles, cloneArticle(a))
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].ID < articles[j].ID })
	return articles, nil
}

// ReplaceExtracted supersedes all extracted properties of an article
func (s *Store) ReplaceExtracted(ctx context.Context, articleID string, props []model.ExtractedProperty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.extracted, articleID)
	for _, p := range props {
		p.ArticleID = articleID
		s.upsertExtractedLocked(p)
	}
	return nil
}

// UpsertExtracted inserts or replaces one extracted property
func (s *Store) UpsertExtracted(ctx context.Context, p model.ExtractedProperty) error {
	if p.ArticleID == "" || p.Key.Name == "" {
		return fmt.Errorf("extracted property needs article id and name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertExtractedLocked(p)
	return nil
}

func (s *Store) upsertExtractedLocked(p model.ExtractedProperty) {
	props := s.extracted[p.ArticleID]
	for i := range props {
		if props[i].Key == p.Key {
			props[i] = p
			return
		}
	}
	s.extracted[p.ArticleID] = append(props, p)
}

// ExtractedFor returns the extracted properties of an article in insertion order
func (s *Store) ExtractedFor(ctx context.Context, articleID string) ([]model.ExtractedProperty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.ExtractedProperty(nil), s.extracted[articleID]...), nil
}

// Overrides returns the overrides applying to one article
func (s *Store) Overrides(ctx context.Context, articleID, category string) ([]model.Override, []model.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var article, categoryOverrides []model.Override
	for _, o := range s.sortedOverridesLocked() {
		switch {
		case o.Scope == model.ScopeArticle && o.ScopeKey == articleID:
			article = append(article, o)
		case o.Scope == model.ScopeCategory && category != "" && o.ScopeKey == category:
			categoryOverrides = append(categoryOverrides, o)
		}
	}
	return article, categoryOverrides, nil
}

// SetOverride inserts or replaces an override
func (s *Store) SetOverride(ctx context.Context, o model.Override) error {
	if o.ScopeKey == "" || o.Key.Name == "" {
		return fmt.Errorf("override needs scope key and property name")
	}
	if o.Scope != model.ScopeArticle && o.Scope != model.ScopeCategory {
		return fmt.Errorf("unknown override scope %q", o.Scope)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[overrideID{o.Scope, o.ScopeKey, o.Key}] = o
	return nil
}

// DeleteOverride removes an override or returns store.ErrNotFound
func (s *Store) DeleteOverride(ctx context.Context, scope model.OverrideScope, scopeKey string, key model.PropertyKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := overrideID{scope, scopeKey, key}
	if _, ok := s.overrides[id]; !ok {
		return fmt.Errorf("%s override %s/%s: %w", scope, scopeKey, key, store.ErrNotFound)
	}
	delete(s.overrides, id)
	return nil
}

// ListOverrides returns every override ordered by scope, scope key and property
func (s *Store) ListOverrides(ctx context.Context) ([]model.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedOverridesLocked(), nil
}

func (s *Store) sortedOverridesLocked() []model.Override {
	out := make([]model.Override, 0, len(s.overrides))
	for _, o := range s.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		if out[i].ScopeKey != out[j].ScopeKey {
			return out[i].ScopeKey < out[j].ScopeKey
		}
		return out[i].Key.Less(out[j].Key)
	})
	return out
}

// RecordRun stores an import run record, replacing one with the same id
func (s *Store) RecordRun(ctx context.Context, run model.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

// Runs returns import runs in recording order
func (s *Store) Runs(ctx context.Context) ([]model.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ImportRun(nil), s.runs...), nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func cloneArticle(a model.Article) model.Article {
	if a.Descriptions != nil {
		descs := make(map[model.Language]string, len(a.Descriptions))
		for lang, d := range a.Descriptions {
			descs[lang] = d
		}
		a.Descriptions = descs
	}
	return a
}
