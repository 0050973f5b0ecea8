package pipeline

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/resolve"
	"github.com/ppiankov/proptable/internal/store"
)

// ColumnPrefix starts every flattened property column
const ColumnPrefix = "prop_"

// ExportOptions configures an export pass
type ExportOptions struct {
	ApplyOverrides bool
	IncludeHTML    bool // Regenerate the description tables from resolved values
	Logf           Logf
}

// ExportRow is one resolved article ready for CSV output
type ExportRow struct {
	Article    model.Article
	Properties model.PropertyMap
	Order      []model.PropertyKey       // Extraction order, then inserted keys by name
	Columns    map[string]string         // Flattened property columns
	HTML       map[model.Language]string // Regenerated description tables
}

// Exporter resolves every stored article and flattens it into columns
type Exporter struct {
	store    store.Store
	resolver *resolve.Resolver
	opts     ExportOptions
}

// NewExporter creates an exporter
func NewExporter(st store.Store, resolver *resolve.Resolver, opts ExportOptions) *Exporter {
	return &Exporter{
		store:    st,
		resolver: resolver,
		opts:     opts,
	}
}

// Export resolves all stored articles in id order. Articles that fail are
// reported and skipped; an unreachable store aborts the pass.
func (e *Exporter) Export(ctx context.Context) ([]ExportRow, *model.ExportReport, error) {
	report := &model.ExportReport{}

	articles, err := e.store.Articles(ctx)
	if err != nil {
		return nil, report, fmt.Errorf("load articles: %w", err)
	}

	columns := make(map[string]struct{})
	rows := make([]ExportRow, 0, len(articles))

	for _, a := range articles {
		row, err := e.exportArticle(ctx, a)
		if err != nil {
			if errors.Is(err, store.ErrUnavailable) {
				return rows, report, err
			}
			report.Record(model.Failed("export_article", a.ID, err))
			e.opts.Logf.Printf("Warning: article %s: %v\n", a.ID, err)
			continue
		}

		for col := range row.Columns {
			columns[col] = struct{}{}
		}
		rows = append(rows, row)
	}

	report.Articles = len(rows)
	report.Columns = len(columns)
	return rows, report, nil
}

func (e *Exporter) exportArticle(ctx context.Context, a model.Article) (ExportRow, error) {
	props, err := e.store.ExtractedFor(ctx, a.ID)
	if err != nil {
		return ExportRow{}, err
	}

	resolved := BaseMap(props)
	if e.opts.ApplyOverrides {
		resolved, err = e.resolver.Resolve(ctx, a.ID, a.Category, resolved)
		if err != nil {
			return ExportRow{}, err
		}
	}

	row := ExportRow{
		Article:    a,
		Properties: resolved,
		Order:      order(props, resolved),
		Columns:    Flatten(resolved),
	}
	if e.opts.IncludeHTML {
		row.HTML = make(map[model.Language]string)
		for _, lang := range model.Languages {
			if table := RenderTable(resolved, row.Order, lang); table != "" {
				row.HTML[lang] = table
			}
		}
	}
	return row, nil
}

// BaseMap turns extracted properties into a property map of display values
func BaseMap(props []model.ExtractedProperty) model.PropertyMap {
	m := make(model.PropertyMap, len(props))
	for _, p := range props {
		m[p.Key] = p.Display()
	}
	return m
}

// ColumnName is the flattened column of a key: prop_<name> for German,
// prop_<name>.<lang> for any other language
func ColumnName(k model.PropertyKey) string {
	if k.Language == model.LangDE {
		return ColumnPrefix + k.Name
	}
	return ColumnPrefix + k.Name + "." + string(k.Language)
}

// Flatten maps every property to its column name
func Flatten(m model.PropertyMap) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[ColumnName(k)] = v
	}
	return out
}

// Columns returns the sorted union of the property columns of rows
func Columns(rows []ExportRow) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for col := range r.Columns {
			seen[col] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// RenderTable renders the properties of one language as a two-column table.
// It returns an empty string when the language has no properties.
func RenderTable(m model.PropertyMap, keys []model.PropertyKey, lang model.Language) string {
	var b strings.Builder
	for _, k := range keys {
		if k.Language != lang {
			continue
		}
		v, ok := m[k]
		if !ok {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("<table>")
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>", html.EscapeString(k.Name), html.EscapeString(v))
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString("</table>")
	return b.String()
}

// order lists the extracted keys in extraction order followed by keys the
// overrides inserted, sorted
func order(props []model.ExtractedProperty, resolved model.PropertyMap) []model.PropertyKey {
	keys := make([]model.PropertyKey, 0, len(resolved))
	seen := make(map[model.PropertyKey]bool, len(resolved))

	for _, p := range props {
		if _, ok := resolved[p.Key]; ok && !seen[p.Key] {
			seen[p.Key] = true
			keys = append(keys, p.Key)
		}
	}

	var inserted []model.PropertyKey
	for k := range resolved {
		if !seen[k] {
			inserted = append(inserted, k)
		}
	}
	model.SortKeys(inserted)

	return append(keys, inserted...)
}
