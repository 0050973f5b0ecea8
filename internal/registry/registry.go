// Package registry holds the session snapshot of property definitions and
// name mappings. It is constructed once per session and passed explicitly to
// every component that needs it.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/proptable/internal/model"
)

// Source loads the persisted definitions and mappings
type Source interface {
	LoadDefinitions(ctx context.Context) ([]model.PropertyDefinition, error)
	LoadMappings(ctx context.Context) ([]model.PropertyMapping, error)
}

// MappingWriter persists a mapping
type MappingWriter interface {
	UpsertMapping(ctx context.Context, m model.PropertyMapping) error
}

// Registry is an in-memory snapshot of definitions and mappings. Reads are
// safe from concurrent workers; Load and Confirm swap state under a lock.
type Registry struct {
	mu          sync.RWMutex
	definitions map[model.PropertyKey]model.PropertyDefinition
	mappings    map[model.PropertyKey]model.PropertyMapping // keyed by (original name, language)
	version     uint64
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		definitions: make(map[model.PropertyKey]model.PropertyDefinition),
		mappings:    make(map[model.PropertyKey]model.PropertyMapping),
	}
}

// Load replaces the snapshot with the contents of src. On error the previous
// snapshot stays in place. Duplicate rows for one identity resolve to the last one.
func (r *Registry) Load(ctx context.Context, src Source) error {
	defs, err := src.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}
	mappings, err := src.LoadMappings(ctx)
	if err != nil {
		return fmt.Errorf("loading mappings: %w", err)
	}

	defIndex := make(map[model.PropertyKey]model.PropertyDefinition, len(defs))
	for _, d := range defs {
		defIndex[d.Key] = d
	}
	mapIndex := make(map[model.PropertyKey]model.PropertyMapping, len(mappings))
	for _, m := range mappings {
		mapIndex[m.Key()] = m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions = defIndex
	r.mappings = mapIndex
	r.version++
	return nil
}

// Reload re-reads the snapshot from src
func (r *Registry) Reload(ctx context.Context, src Source) error {
	return r.Load(ctx, src)
}

// Version changes whenever the snapshot changes
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Mapping returns the mapping for a raw name in one language
func (r *Registry) Mapping(original string, lang model.Language) (model.PropertyMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[model.Key(original, lang)]
	return m, ok
}

// Definition returns the definition for a canonical key
func (r *Registry) Definition(key model.PropertyKey) (model.PropertyDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.definitions[key]
	return d, ok
}

// KnownNames returns the set of definitions and mapping targets
func (r *Registry) KnownNames() map[model.PropertyKey]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	known := make(map[model.PropertyKey]struct{}, len(r.definitions)+len(r.mappings))
	for k := range r.definitions {
		known[k] = struct{}{}
	}
	for _, m := range r.mappings {
		known[m.Target()] = struct{}{}
	}
	return known
}

// CandidateNames returns the sorted known canonical names of one language
func (r *Registry) CandidateNames(lang model.Language) []string {
	var names []string
	for k := range r.KnownNames() {
		if k.Language == lang {
			names = append(names, k.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Definitions returns all definitions ordered by key
func (r *Registry) Definitions() []model.PropertyDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.PropertyDefinition, 0, len(r.definitions))
	for _, d := range r.definitions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Key.Less(defs[j].Key) })
	return defs
}

// Mappings returns all mappings ordered by original name and language
func (r *Registry) Mappings() []model.PropertyMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mappings := make([]model.PropertyMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		mappings = append(mappings, m)
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Key().Less(mappings[j].Key()) })
	return mappings
}

// Confirm records a human-confirmed mapping: it is written through w with
// confidence 1.0 and then added to the snapshot
func (r *Registry) Confirm(ctx context.Context, w MappingWriter, original string, lang model.Language, standard string) (model.PropertyMapping, error) {
	if original == "" || standard == "" {
		return model.PropertyMapping{}, fmt.Errorf("confirm needs original and standard names")
	}
	if !lang.Valid() {
		return model.PropertyMapping{}, fmt.Errorf("unsupported language %q", lang)
	}

	m := model.PropertyMapping{
		Original:   original,
		Language:   lang,
		Standard:   standard,
		Confidence: model.ConfirmedConfidence,
	}
	if err := w.UpsertMapping(ctx, m); err != nil {
		return model.PropertyMapping{}, fmt.Errorf("confirming mapping %s: %w", m.Key(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.Key()] = m
	r.version++
	return m, nil
}

// Remember adds definitions that were registered after the last load
func (r *Registry) Remember(defs ...model.PropertyDefinition) {
	if len(defs) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		if _, ok := r.definitions[d.Key]; !ok {
			r.definitions[d.Key] = d
		}
	}
	r.version++
}
