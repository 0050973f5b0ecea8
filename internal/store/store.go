// Package store defines the property store collaborator consumed by the
// import, export and curation paths.
package store

import (
	"context"
	"errors"

	"github.com/ppiankov/proptable/internal/model"
)

var (
	// ErrUnavailable means the store cannot be reached at all. It is the only
	// failure that ends a whole batch.
	ErrUnavailable = errors.New("property store unavailable")

	// ErrNotFound means the addressed row does not exist
	ErrNotFound = errors.New("not found")
)

// DefinitionStore persists canonical property definitions
type DefinitionStore interface {
	LoadDefinitions(ctx context.Context) ([]model.PropertyDefinition, error)
	UpsertDefinition(ctx context.Context, def model.PropertyDefinition) error
	// AddPropertyIfAbsent inserts a default definition (string, no unit) and
	// reports whether a row was created. Existing definitions are left untouched.
	AddPropertyIfAbsent(ctx context.Context, key model.PropertyKey) (bool, error)
}

// MappingStore persists raw-name to canonical-name mappings
type MappingStore interface {
	LoadMappings(ctx context.Context) ([]model.PropertyMapping, error)
	// UpsertMapping replaces the mapping for (original, language), except that
	// an advisory mapping never replaces a confirmed one.
	UpsertMapping(ctx context.Context, m model.PropertyMapping) error
}

// ArticleStore persists imported articles
type ArticleStore interface {
	UpsertArticle(ctx context.Context, a model.Article) error
	Article(ctx context.Context, id string) (model.Article, error)
	Articles(ctx context.Context) ([]model.Article, error)
}

// ExtractedStore persists the properties extracted by the latest import
type ExtractedStore interface {
	// ReplaceExtracted supersedes every extracted property of the article
	ReplaceExtracted(ctx context.Context, articleID string, props []model.ExtractedProperty) error
	UpsertExtracted(ctx context.Context, p model.ExtractedProperty) error
	ExtractedFor(ctx context.Context, articleID string) ([]model.ExtractedProperty, error)
}

// OverrideStore persists operator overrides
type OverrideStore interface {
	// Overrides returns the article-scoped and category-scoped overrides that
	// apply to one article. An empty category yields no category overrides.
	Overrides(ctx context.Context, articleID, category string) (article, categoryOverrides []model.Override, err error)
	SetOverride(ctx context.Context, o model.Override) error
	DeleteOverride(ctx context.Context, scope model.OverrideScope, scopeKey string, key model.PropertyKey) error
	ListOverrides(ctx context.Context) ([]model.Override, error)
}

// RunStore records import passes
type RunStore interface {
	RecordRun(ctx context.Context, run model.ImportRun) error
	Runs(ctx context.Context) ([]model.ImportRun, error)
}

// Store is the complete property store
type Store interface {
	DefinitionStore
	MappingStore
	ArticleStore
	ExtractedStore
	OverrideStore
	RunStore
	Close() error
}
