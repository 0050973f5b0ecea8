package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/proptable/internal/cache"
	"github.com/ppiankov/proptable/internal/extract"
	"github.com/ppiankov/proptable/internal/match"
	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/normalize"
	"github.com/ppiankov/proptable/internal/registry"
	"github.com/ppiankov/proptable/internal/resolve"
	"github.com/ppiankov/proptable/internal/store"
)

// Logf receives progress and warning messages. Nil means silent.
type Logf func(format string, args ...any)

// Printf forwards to l when it is set
func (l Logf) Printf(format string, args ...any) {
	if l != nil {
		l(format, args...)
	}
}

// Pipeline wires the extraction, normalization, matching and resolution
// components around one store for the lifetime of a session
type Pipeline struct {
	store      store.Store
	registry   *registry.Registry
	extractor  *extract.TableExtractor
	normalizer *normalize.Normalizer
	matcher    *match.Matcher
	resolver   *resolve.Resolver
	config     *model.Config
	logf       Logf
}

// NewPipeline loads the registry from st and builds every component.
// Load failures are returned; store.ErrUnavailable survives wrapping.
func NewPipeline(ctx context.Context, cfg *model.Config, st store.Store, logf Logf) (*Pipeline, error) {
	reg := registry.New()
	if err := reg.Load(ctx, st); err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	ttl := cfg.Matching.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	p := &Pipeline{
		store:      st,
		registry:   reg,
		extractor:  extract.NewTableExtractor(),
		normalizer: normalize.New(cfg.SynonymTables()),
		matcher:    match.NewMatcher(reg, cache.NewMemoryCache(ttl, 2*ttl)),
		config:     cfg,
		logf:       logf,
	}
	p.resolver = resolve.NewResolver(st, p.CanonicalKey)

	logf.Printf("Loaded %d definitions and %d mappings\n", len(reg.Definitions()), len(reg.Mappings()))
	return p, nil
}

// Registry returns the session registry
func (p *Pipeline) Registry() *registry.Registry {
	return p.registry
}

// Matcher returns the session matcher
func (p *Pipeline) Matcher() *match.Matcher {
	return p.matcher
}

// Importer builds an importer for one input source
func (p *Pipeline) Importer(source string) *Importer {
	return NewImporter(p.store, p.registry, p.matcher, p.normalizer, p.extractor, ImportOptions{
		Source:              source,
		DetectNewProperties: p.config.Import.DetectNewProperties,
		Workers:             p.config.Import.Workers,
		RatePerSecond:       p.config.Import.RatePerSecond,
		Burst:               p.config.Import.Burst,
		Logf:                p.logf,
	})
}

// Exporter builds an exporter using the configured export options
func (p *Pipeline) Exporter() *Exporter {
	return NewExporter(p.store, p.resolver, ExportOptions{
		ApplyOverrides: p.config.Export.ApplyOverrides,
		IncludeHTML:    p.config.Export.IncludeHTML,
		Logf:           p.logf,
	})
}

// CanonicalKey maps a raw or canonical key to its canonical form: a stored
// mapping applies first, then the synonym tables
func (p *Pipeline) CanonicalKey(k model.PropertyKey) model.PropertyKey {
	name := p.matcher.StandardName(k.Name, k.Language)
	return model.Key(p.normalizer.CanonicalName(name, k.Language), k.Language)
}

// CanonicalName applies the synonym tables and name cleanup to a curated
// name, so curated names match the keys imports produce
func (p *Pipeline) CanonicalName(name string, lang model.Language) string {
	return p.normalizer.CanonicalName(name, lang)
}

// ConfirmMapping stores a confirmed mapping from original to the canonical
// form of standard
func (p *Pipeline) ConfirmMapping(ctx context.Context, original string, lang model.Language, standard string) (model.PropertyMapping, error) {
	return p.registry.Confirm(ctx, p.store, strings.TrimSpace(original), lang, p.CanonicalName(standard, lang))
}

// Resolution is the resolved property map of one article with the layer each
// value came from
type Resolution struct {
	Article    model.Article
	Properties model.PropertyMap
	Layers     map[model.PropertyKey]resolve.Layer
}

// Keys returns the resolved keys ordered by name and language
func (r Resolution) Keys() []model.PropertyKey {
	keys := make([]model.PropertyKey, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	model.SortKeys(keys)
	return keys
}

// ResolveArticle resolves the stored properties of one article against its
// category and article overrides
func (p *Pipeline) ResolveArticle(ctx context.Context, articleID string) (*Resolution, error) {
	article, err := p.store.Article(ctx, articleID)
	if err != nil {
		return nil, err
	}

	props, err := p.store.ExtractedFor(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("load properties of %s: %w", articleID, err)
	}

	resolved, layers, err := p.resolver.ResolveTraced(ctx, article.ID, article.Category, BaseMap(props))
	if err != nil {
		return nil, err
	}

	return &Resolution{Article: article, Properties: resolved, Layers: layers}, nil
}

// Suggest ranks canonical-name candidates for every raw name in articles that
// neither a stored mapping nor a synonym covers, keyed by "raw@lang"
func (p *Pipeline) Suggest(articles []model.Article) map[string][]model.Suggestion {
	return p.Importer("").Suggest(articles)
}
