// Package sqlite implements the property store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/store"
	"github.com/ppiankov/proptable/internal/store/sqlite/migrations"
)

// Store is the SQLite-backed property store
type Store struct {
	db   *sql.DB
	path string
}

var _ store.Store = (*Store)(nil)

// NewStore opens (creating if needed) the database at path and applies pending
// migrations. Any failure to reach the database wraps store.ErrUnavailable.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("%w: creating data directory: %v", store.ErrUnavailable, err)
		}
	}

	// WAL mode lets concurrent import workers read while one writes
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", store.ErrUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to %s: %v", store.ErrUnavailable, path, err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// migrate applies every embedded NNN_name.up.sql newer than the recorded version
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, formatTime(time.Now())); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Definitions ====================

// LoadDefinitions returns all definitions ordered by name and language
func (s *Store) LoadDefinitions(ctx context.Context) ([]model.PropertyDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, language, data_type, unit
		FROM property_definitions
		ORDER BY name, language
	`)
	if err != nil {
		return nil, wrap("loading definitions", err)
	}
	defer rows.Close()

	var defs []model.PropertyDefinition
	for rows.Next() {
		var d model.PropertyDefinition
		var lang, dataType string
		if err := rows.Scan(&d.Key.Name, &lang, &dataType, &d.Unit); err != nil {
			return nil, fmt.Errorf("scanning definition: %w", err)
		}
		d.Key.Language = model.Language(lang)
		d.DataType = model.DataType(dataType)
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// UpsertDefinition inserts or replaces a definition
func (s *Store) UpsertDefinition(ctx context.Context, def model.PropertyDefinition) error {
	if def.Key.Name == "" {
		return errors.New("definition without name")
	}
	if def.DataType == "" {
		def.DataType = model.TypeString
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_definitions (name, language, data_type, unit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name, language) DO UPDATE SET
			data_type = excluded.data_type,
			unit = excluded.unit
	`, def.Key.Name, string(def.Key.Language), string(def.DataType), def.Unit)
	if err != nil {
		return wrap("saving definition", err)
	}
	return nil
}

// AddPropertyIfAbsent inserts a default definition unless one exists
func (s *Store) AddPropertyIfAbsent(ctx context.Context, key model.PropertyKey) (bool, error) {
	if key.Name == "" {
		return false, errors.New("definition without name")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO property_definitions (name, language, data_type, unit)
		VALUES (?, ?, 'string', '')
		ON CONFLICT(name, language) DO NOTHING
	`, key.Name, string(key.Language))
	if err != nil {
		return false, wrap("adding property", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adding property: %w", err)
	}
	return n > 0, nil
}

// ==================== Mappings ====================

// LoadMappings returns all mappings ordered by original name and language
func (s *Store) LoadMappings(ctx context.Context) ([]model.PropertyMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT original_name, language, standard_name, confidence
		FROM property_mappings
		ORDER BY original_name, language
	`)
	if err != nil {
		return nil, wrap("loading mappings", err)
	}
	defer rows.Close()

	var mappings []model.PropertyMapping
	for rows.Next() {
		var m model.PropertyMapping
		var lang string
		if err := rows.Scan(&m.Original, &lang, &m.Standard, &m.Confidence); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		m.Language = model.Language(lang)
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// UpsertMapping replaces the mapping for (original, language). The conflict
// clause keeps a confirmed mapping when the incoming one is advisory.
func (s *Store) UpsertMapping(ctx context.Context, m model.PropertyMapping) error {
	if m.Original == "" || m.Standard == "" {
		return errors.New("mapping needs original and standard names")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_mappings (original_name, language, standard_name, confidence, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(original_name, language) DO UPDATE SET
			standard_name = excluded.standard_name,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
		WHERE excluded.confidence >= ? OR property_mappings.confidence < ?
	`, m.Original, string(m.Language), m.Standard, m.Confidence, formatTime(time.Now()),
		model.ConfirmedConfidence, model.ConfirmedConfidence)
	if err != nil {
		return wrap("saving mapping", err)
	}
	return nil
}

// ==================== Articles ====================

// UpsertArticle inserts or replaces an article
func (s *Store) UpsertArticle(ctx context.Context, a model.Article) error {
	if a.ID == "" {
		return errors.New("article without id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (article_id, name, category, description_de, description_en, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(article_id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description_de = excluded.description_de,
			description_en = excluded.description_en,
			updated_at = excluded.updated_at
	`, a.ID, a.Name, a.Category, a.Descriptions[model.LangDE], a.Descriptions[model.LangEN], formatTime(time.Now()))
	if err != nil {
		return wrap("saving article", err)
	}
	return nil
}

// Article returns one article or store.ErrNotFound
func (s *Store) Article(ctx context.Context, id string) (model.Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT article_id, name, category, description_de, description_en
		FROM products WHERE article_id = ?
	`, id)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Article{}, fmt.Errorf("article %s: %w", id, store.ErrNotFound)
		}
		return model.Article{}, wrap("loading article", err)
	}
	return a, nil
}

// Articles returns all articles ordered by id
func (s *Store) Articles(ctx context.Context) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT article_id, name, category, description_de, description_en
		FROM products ORDER BY article_id
	`)
	if err != nil {
		return nil, wrap("loading articles", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (model.Article, error) {
	var a model.Article
	var de, en string
	if err := row.Scan(&a.ID, &a.Name, &a.Category, &de, &en); err != nil {
		return model.Article{}, err
	}
	a.Descriptions = make(map[model.Language]string)
	if de != "" {
		a.Descriptions[model.LangDE] = de
	}
	if en != "" {
		a.Descriptions[model.LangEN] = en
	}
	return a, nil
}

// ==================== Extracted properties ====================

// ReplaceExtracted supersedes all extracted properties of an article in one transaction
func (s *Store) ReplaceExtracted(ctx context.Context, articleID string, props []model.ExtractedProperty) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM properties WHERE article_id = ?", articleID); err != nil {
		return wrap("clearing properties", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO properties (article_id, name, language, position, value_kind, value_text, value_num, value_min, value_max, unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(article_id, name, language) DO UPDATE SET
			value_kind = excluded.value_kind,
			value_text = excluded.value_text,
			value_num = excluded.value_num,
			value_min = excluded.value_min,
			value_max = excluded.value_max,
			unit = excluded.unit
	`)
	if err != nil {
		return wrap("preparing property insert", err)
	}
	defer stmt.Close()

	for i, p := range props {
		v := p.Value
		if _, err := stmt.ExecContext(ctx, articleID, p.Key.Name, string(p.Key.Language), i,
			string(v.Kind), v.Text, v.Number, v.Min, v.Max, v.Unit); err != nil {
			return wrap("saving property "+p.Key.String(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("committing properties", err)
	}
	return nil
}

// UpsertExtracted inserts or replaces one extracted property, appending new
// properties after the existing ones
func (s *Store) UpsertExtracted(ctx context.Context, p model.ExtractedProperty) error {
	if p.ArticleID == "" || p.Key.Name == "" {
		return errors.New("extracted property needs article id and name")
	}

	v := p.Value
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (article_id, name, language, position, value_kind, value_text, value_num, value_min, value_max, unit)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM properties WHERE article_id = ?), ?, ?, ?, ?, ?, ?)
		ON CONFLICT(article_id, name, language) DO UPDATE SET
			value_kind = excluded.value_kind,
			value_text = excluded.value_text,
			value_num = excluded.value_num,
			value_min = excluded.value_min,
			value_max = excluded.value_max,
			unit = excluded.unit
	`, p.ArticleID, p.Key.Name, string(p.Key.Language), p.ArticleID,
		string(v.Kind), v.Text, v.Number, v.Min, v.Max, v.Unit)
	if err != nil {
		return wrap("saving property", err)
	}
	return nil
}

// ExtractedFor returns an article's extracted properties in extraction order
func (s *Store) ExtractedFor(ctx context.Context, articleID string) ([]model.ExtractedProperty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, language, value_kind, value_text, value_num, value_min, value_max, unit
		FROM properties WHERE article_id = ?
		ORDER BY position, name, language
	`, articleID)
	if err != nil {
		return nil, wrap("loading properties", err)
	}
	defer rows.Close()

	var props []model.ExtractedProperty
	for rows.Next() {
		p := model.ExtractedProperty{ArticleID: articleID}
		var lang, kind string
		if err := rows.Scan(&p.Key.Name, &lang, &kind, &p.Value.Text, &p.Value.Number,
			&p.Value.Min, &p.Value.Max, &p.Value.Unit); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		p.Key.Language = model.Language(lang)
		p.Value.Kind = model.ValueKind(kind)
		props = append(props, p)
	}
	return props, rows.Err()
}

// ==================== Overrides ====================

// Overrides returns the article and category overrides applying to one article
func (s *Store) Overrides(ctx context.Context, articleID, category string) ([]model.Override, []model.Override, error) {
	article, err := s.queryOverrides(ctx, model.ScopeArticle, `
		SELECT article_id, name, language, value FROM property_overrides
		WHERE article_id = ? ORDER BY name, language
	`, articleID)
	if err != nil {
		return nil, nil, err
	}

	if category == "" {
		return article, nil, nil
	}

	categoryOverrides, err := s.queryOverrides(ctx, model.ScopeCategory, `
		SELECT category, name, language, value FROM category_property_overrides
		WHERE category = ? ORDER BY name, language
	`, category)
	if err != nil {
		return nil, nil, err
	}

	return article, categoryOverrides, nil
}

// SetOverride inserts or replaces an override
func (s *Store) SetOverride(ctx context.Context, o model.Override) error {
	if o.ScopeKey == "" || o.Key.Name == "" {
		return errors.New("override needs scope key and property name")
	}

	table, column, err := overrideTable(o.Scope)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s, name, language, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(%s, name, language) DO UPDATE SET value = excluded.value
	`, table, column, column), o.ScopeKey, o.Key.Name, string(o.Key.Language), o.Value)
	if err != nil {
		return wrap("saving override", err)
	}
	return nil
}

// DeleteOverride removes an override or returns store.ErrNotFound
func (s *Store) DeleteOverride(ctx context.Context, scope model.OverrideScope, scopeKey string, key model.PropertyKey) error {
	table, column, err := overrideTable(scope)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND name = ? AND language = ?", table, column),
		scopeKey, key.Name, string(key.Language))
	if err != nil {
		return wrap("deleting override", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting override: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s override %s/%s: %w", scope, scopeKey, key, store.ErrNotFound)
	}
	return nil
}

// ListOverrides returns all overrides, article scope first
func (s *Store) ListOverrides(ctx context.Context) ([]model.Override, error) {
	article, err := s.queryOverrides(ctx, model.ScopeArticle, `
		SELECT article_id, name, language, value FROM property_overrides
		ORDER BY article_id, name, language
	`)
	if err != nil {
		return nil, err
	}

	category, err := s.queryOverrides(ctx, model.ScopeCategory, `
		SELECT category, name, language, value FROM category_property_overrides
		ORDER BY category, name, language
	`)
	if err != nil {
		return nil, err
	}

	return append(article, category...), nil
}

func (s *Store) queryOverrides(ctx context.Context, scope model.OverrideScope, query string, args ...any) ([]model.Override, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("loading overrides", err)
	}
	defer rows.Close()

	var overrides []model.Override
	for rows.Next() {
		o := model.Override{Scope: scope}
		var lang string
		if err := rows.Scan(&o.ScopeKey, &o.Key.Name, &lang, &o.Value); err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		o.Key.Language = model.Language(lang)
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func overrideTable(scope model.OverrideScope) (table, column string, err error) {
	switch scope {
	case model.ScopeArticle:
		return "property_overrides", "article_id", nil
	case model.ScopeCategory:
		return "category_property_overrides", "category", nil
	default:
		return "", "", fmt.Errorf("unknown override scope %q", scope)
	}
}

// ==================== Import runs ====================

// RecordRun inserts or updates an import run record
func (s *Store) RecordRun(ctx context.Context, run model.ImportRun) error {
	finished := ""
	if !run.FinishedAt.IsZero() {
		finished = formatTime(run.FinishedAt)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, source, started_at, finished_at, articles, failures)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			articles = excluded.articles,
			failures = excluded.failures
	`, run.ID, run.Source, formatTime(run.StartedAt), finished, run.Articles, run.Failures)
	if err != nil {
		return wrap("saving import run", err)
	}
	return nil
}

// Runs returns import runs, oldest first
func (s *Store) Runs(ctx context.Context) ([]model.ImportRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, articles, failures
		FROM import_runs ORDER BY started_at, id
	`)
	if err != nil {
		return nil, wrap("loading import runs", err)
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Source, &started, &finished, &run.Articles, &run.Failures); err != nil {
			return nil, fmt.Errorf("scanning import run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ==================== Helpers ====================

// wrap adds context to a query error and marks lost connections as unavailable
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %s: %v", store.ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
