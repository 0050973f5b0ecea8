package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/proptable/internal/detect"
	"github.com/ppiankov/proptable/internal/extract"
	"github.com/ppiankov/proptable/internal/match"
	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/normalize"
	"github.com/ppiankov/proptable/internal/registry"
	"github.com/ppiankov/proptable/internal/store"
	"github.com/ppiankov/proptable/internal/worker"
)

// ImportOptions configures an import pass
type ImportOptions struct {
	Source              string // Recorded with the run, e.g. the CSV path
	DetectNewProperties bool
	Workers             int
	RatePerSecond       float64
	Burst               int
	Logf                Logf
}

// Importer runs one import pass: extract, normalize, detect new names,
// register them, then persist every article
type Importer struct {
	store      store.Store
	registry   *registry.Registry
	matcher    *match.Matcher
	normalizer *normalize.Normalizer
	extractor  *extract.TableExtractor
	detector   *detect.Detector
	opts       ImportOptions
}

// NewImporter creates an importer
func NewImporter(st store.Store, reg *registry.Registry, matcher *match.Matcher, normalizer *normalize.Normalizer, extractor *extract.TableExtractor, opts ImportOptions) *Importer {
	return &Importer{
		store:      st,
		registry:   reg,
		matcher:    matcher,
		normalizer: normalizer,
		extractor:  extractor,
		detector:   detect.NewDetector(),
		opts:       opts,
	}
}

// Import processes a batch of articles. Per-article store failures are
// counted in the report and the batch continues; an unreachable store is
// returned as an error wrapping store.ErrUnavailable alongside the partial report.
func (im *Importer) Import(ctx context.Context, articles []model.Article) (*model.ImportReport, error) {
	report := &model.ImportReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logf := im.opts.Logf

	run := model.ImportRun{ID: report.RunID, Source: im.opts.Source, StartedAt: report.StartedAt}
	if err := im.store.RecordRun(ctx, run); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return report, err
		}
		report.Record(model.Failed("record_run", report.RunID, err))
	}

	articles = im.dedupe(articles, report)
	report.Articles = len(articles)

	// Pass 1: pure extraction and normalization over the whole batch
	extracted := make(map[string][]model.ExtractedProperty, len(articles))
	unmapped := make(map[model.PropertyKey][]string) // canonical key -> raw names without mapping or synonym
	var batch []model.PropertyKey

	for _, a := range articles {
		props := im.extractArticle(a, report, unmapped)
		extracted[a.ID] = props
		report.Properties += len(props)
		for _, p := range props {
			batch = append(batch, p.Key)
		}
	}
	logf.Printf("Extracted %d properties from %d articles\n", report.Properties, report.Articles)

	// Batch-level detection of names the registry does not know
	if im.opts.DetectNewProperties {
		report.NewProperties = im.detector.Detect(batch, im.registry.KnownNames())

		// Suggestions are ranked before registration so new names do not match themselves
		raw := make(map[model.Language][]string)
		for _, k := range report.NewProperties {
			raw[k.Language] = append(raw[k.Language], unmapped[k]...)
		}
		report.Suggestions = im.suggest(raw)

		if len(report.NewProperties) > 0 {
			logf.Printf("Registering %d new properties\n", len(report.NewProperties))
			reg := im.detector.Register(ctx, im.store, report.NewProperties)
			report.Registered = len(reg.Created)

			created := make([]model.PropertyDefinition, 0, len(reg.Created))
			for _, k := range reg.Created {
				created = append(created, model.PropertyDefinition{Key: k, DataType: model.TypeString})
			}
			im.registry.Remember(created...)

			for _, o := range reg.Outcomes {
				report.Record(o)
			}
			if err := unavailable(reg.Outcomes); err != nil {
				return im.finish(ctx, report, err)
			}
		}
	}

	// Pass 2: persist articles, one job per article
	writer := &articleWriter{store: im.store, extracted: extracted}
	processor := worker.NewBatchProcessor(writer, im.opts.Workers, im.opts.RatePerSecond, im.opts.Burst)

	var outcomes []model.Outcome
	for _, res := range processor.ProcessArticles(ctx, articles) {
		for _, o := range res.Outcomes {
			report.Record(o)
		}
		outcomes = append(outcomes, res.Outcomes...)
		if res.Error != nil {
			logf.Printf("Warning: article %s: %v\n", res.ArticleID, res.Error)
		}
	}

	return im.finish(ctx, report, unavailable(outcomes))
}

// Suggest ranks candidates for the raw names of articles that neither a stored
// mapping nor a synonym covers and whose canonical name the registry does not
// know. It does not touch the store.
func (im *Importer) Suggest(articles []model.Article) map[string][]model.Suggestion {
	known := im.registry.KnownNames()
	unmapped := make(map[model.Language][]string)

	for _, a := range articles {
		for _, lang := range model.Languages {
			fragment := a.Descriptions[lang]
			if fragment == "" {
				continue
			}
			for _, pair := range im.extractor.Extract(fragment).Pairs {
				if !im.unmapped(pair.Name, lang) {
					continue
				}
				if _, ok := known[model.Key(im.normalizer.CanonicalName(pair.Name, lang), lang)]; ok {
					continue
				}
				unmapped[lang] = append(unmapped[lang], pair.Name)
			}
		}
	}
	return im.suggest(unmapped)
}

// extractArticle turns the descriptions of one article into normalized
// properties. Two raw names normalizing to the same key resolve to the later one.
func (im *Importer) extractArticle(a model.Article, report *model.ImportReport, unmapped map[model.PropertyKey][]string) []model.ExtractedProperty {
	var props []model.ExtractedProperty
	index := make(map[model.PropertyKey]int)

	for _, lang := range model.Languages {
		fragment := a.Descriptions[lang]
		if fragment == "" {
			continue
		}

		result := im.extractor.Extract(fragment)
		for _, d := range result.Diagnostics {
			report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("%s/%s: %s", a.ID, lang, d))
		}
		if len(result.Pairs) == 0 {
			report.Record(model.Outcome{
				Op:     "extract",
				Target: a.ID + "/" + string(lang),
				Status: model.StatusDegraded,
				Detail: "no properties found",
			})
			continue
		}

		for _, pair := range result.Pairs {
			standard := im.matcher.StandardName(pair.Name, lang)
			name, value, _ := im.normalizer.NormalizeRaw(standard, pair.Value, lang)
			if name == "" {
				continue
			}
			p := model.ExtractedProperty{ArticleID: a.ID, Key: model.Key(name, lang), Value: value}
			if i, ok := index[p.Key]; ok {
				report.Diagnostics = append(report.Diagnostics,
					fmt.Sprintf("%s/%s: %q and an earlier name both map to %s; keeping %q", a.ID, lang, pair.Name, name, p.Display()))
				props[i] = p
				continue
			}
			index[p.Key] = len(props)
			props = append(props, p)

			if im.unmapped(pair.Name, lang) {
				unmapped[p.Key] = append(unmapped[p.Key], pair.Name)
			}
		}
	}

	return props
}

// dedupe keeps the last row for each article id at the position of the first
func (im *Importer) dedupe(articles []model.Article, report *model.ImportReport) []model.Article {
	index := make(map[string]int, len(articles))
	out := make([]model.Article, 0, len(articles))

	for _, a := range articles {
		if a.ID == "" {
			report.Record(model.Outcome{Op: "read_article", Target: "(no id)", Status: model.StatusDegraded, Detail: "row without article id skipped"})
			continue
		}
		if i, ok := index[a.ID]; ok {
			report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("%s: duplicate article row, later row wins", a.ID))
			out[i] = a
			continue
		}
		index[a.ID] = len(out)
		out = append(out, a)
	}

	return out
}

func (im *Importer) unmapped(raw string, lang model.Language) bool {
	return im.matcher.StandardName(raw, lang) == raw && !im.normalizer.HasSynonym(raw, lang)
}

// suggest ranks suggestions per language, keyed by "raw@lang"
func (im *Importer) suggest(unmapped map[model.Language][]string) map[string][]model.Suggestion {
	out := make(map[string][]model.Suggestion)
	for _, lang := range model.Languages {
		names := unmapped[lang]
		sort.Strings(names)
		for raw, suggestions := range im.matcher.SuggestMappings(lang, names) {
			out[model.Key(raw, lang).String()] = suggestions
		}
	}
	return out
}

func (im *Importer) finish(ctx context.Context, report *model.ImportReport, cause error) (*model.ImportReport, error) {
	report.FinishedAt = time.Now().UTC()

	run := model.ImportRun{
		ID:         report.RunID,
		Source:     im.opts.Source,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Articles:   report.Articles,
		Failures:   report.Failures,
	}
	if cause == nil {
		if err := im.store.RecordRun(ctx, run); err != nil {
			report.Record(model.Failed("record_run", report.RunID, err))
		}
		return report, nil
	}
	return report, cause
}

// unavailable returns the first connectivity failure among outcomes
func unavailable(outcomes []model.Outcome) error {
	for _, o := range outcomes {
		if o.Err != nil && errors.Is(o.Err, store.ErrUnavailable) {
			return o.Err
		}
	}
	return nil
}

// articleWriter persists one article and its extracted properties
type articleWriter struct {
	store     store.Store
	extracted map[string][]model.ExtractedProperty
}

// HandleArticle implements worker.Handler
func (w *articleWriter) HandleArticle(ctx context.Context, a model.Article) []model.Outcome {
	if err := w.store.UpsertArticle(ctx, a); err != nil {
		return []model.Outcome{model.Failed("upsert_article", a.ID, err)}
	}

	props := w.extracted[a.ID]
	if err := w.store.ReplaceExtracted(ctx, a.ID, props); err != nil {
		return []model.Outcome{model.Failed("upsert_extracted", a.ID, err)}
	}

	return []model.Outcome{{
		Op:     "upsert_extracted",
		Target: a.ID,
		Status: model.StatusOK,
		Detail: fmt.Sprintf("%d properties", len(props)),
	}}
}
