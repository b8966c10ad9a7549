package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/filings-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path with WAL mode and
// foreign keys enabled (cascading deletes depend on it).
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id            TEXT PRIMARY KEY,
	ticker        TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	entity_code   TEXT NOT NULL DEFAULT '',
	entity_name   TEXT NOT NULL DEFAULT '',
	main_industry TEXT NOT NULL DEFAULT '',
	sector        TEXT NOT NULL DEFAULT '',
	subsector     TEXT NOT NULL DEFAULT '',
	industry      TEXT NOT NULL DEFAULT '',
	subindustry   TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS filings (
	id              TEXT PRIMARY KEY,
	company_id      TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	period_label    TEXT NOT NULL,
	period_start    DATETIME,
	period_end      DATETIME,
	instant_date    DATETIME,
	source_filename TEXT NOT NULL DEFAULT '',
	stored_path     TEXT NOT NULL DEFAULT '',
	uploaded_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, period_label)
);

CREATE TABLE IF NOT EXISTS contexts (
	id                TEXT PRIMARY KEY,
	filing_id         TEXT NOT NULL REFERENCES filings(id) ON DELETE CASCADE,
	context_id        TEXT NOT NULL,
	entity_identifier TEXT NOT NULL DEFAULT '',
	start_date        DATETIME,
	end_date          DATETIME,
	instant_date      DATETIME,
	period_type       TEXT NOT NULL DEFAULT 'unknown',
	ordinal           INTEGER NOT NULL DEFAULT 0,
	UNIQUE (filing_id, context_id)
);

CREATE TABLE IF NOT EXISTS facts (
	id         TEXT PRIMARY KEY,
	filing_id  TEXT NOT NULL REFERENCES filings(id) ON DELETE CASCADE,
	context_id TEXT REFERENCES contexts(id) ON DELETE SET NULL,
	name       TEXT NOT NULL,
	namespace  TEXT NOT NULL DEFAULT '',
	value      TEXT NOT NULL DEFAULT '',
	decimals   TEXT NOT NULL DEFAULT '',
	unit       TEXT NOT NULL DEFAULT '',
	ordinal    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS report_templates (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	slug        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS template_items (
	id             TEXT PRIMARY KEY,
	template_id    TEXT NOT NULL REFERENCES report_templates(id) ON DELETE CASCADE,
	label          TEXT NOT NULL,
	primary_fact   TEXT NOT NULL,
	fallback_facts TEXT NOT NULL DEFAULT '',
	sort_order     INTEGER NOT NULL DEFAULT 0,
	level          INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_filings_company ON filings(company_id);
CREATE INDEX IF NOT EXISTS idx_contexts_filing ON contexts(filing_id);
CREATE INDEX IF NOT EXISTS idx_facts_filing ON facts(filing_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_facts_name ON facts(filing_id, name);
CREATE INDEX IF NOT EXISTS idx_template_items_template ON template_items(template_id, sort_order);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Companies ---

const companyColumns = `id, ticker, name, entity_code, entity_name, main_industry, sector, subsector, industry, subindustry, created_at`

func (s *SQLiteStore) GetCompanyByTicker(ctx context.Context, ticker string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE ticker = ?`, ticker)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", ticker)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Ticker, c.Name, c.EntityCode, c.EntityName, c.MainIndustry,
		c.Sector, c.Subsector, c.Industry, c.Subindustry, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert company %s", c.Ticker)
	}
	return &c, nil
}

func (s *SQLiteStore) PatchCompany(ctx context.Context, id string, patch model.CompanyPatch) error {
	if len(patch) == 0 {
		return nil
	}

	var sets []string
	var args []any
	for _, field := range companyPatchOrder {
		value, ok := patch[field]
		if !ok {
			continue
		}
		sets = append(sets, string(field)+" = ?")
		args = append(args, value)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: patch company %s", id)
	}
	return checkRowsAffected(res, "company", id)
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY ticker`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

// --- Filings ---

const filingColumns = `id, company_id, period_label, period_start, period_end, instant_date, source_filename, stored_path, uploaded_at`

func (s *SQLiteStore) FindFiling(ctx context.Context, companyID, periodLabel string) (*model.Filing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE company_id = ? AND period_label = ?`,
		companyID, periodLabel)
	f, err := scanFiling(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find filing %s/%s", companyID, periodLabel)
	}
	return f, nil
}

func (s *SQLiteStore) GetFiling(ctx context.Context, id string) (*model.Filing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE id = ?`, id)
	f, err := scanFiling(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("filing not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get filing %s", id)
	}
	return f, nil
}

func (s *SQLiteStore) ListFilings(ctx context.Context, companyID string) ([]model.Filing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE company_id = ?
		 ORDER BY uploaded_at DESC, period_label DESC`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list filings")
	}
	defer rows.Close()

	var filings []model.Filing
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan filing")
		}
		filings = append(filings, *f)
	}
	return filings, eris.Wrap(rows.Err(), "sqlite: list filings iterate")
}

func (s *SQLiteStore) ReplaceFiling(ctx context.Context, filing model.Filing, contexts []model.Context, facts []model.Fact) (*model.Filing, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin replace filing")
	}
	defer tx.Rollback() //nolint:errcheck

	// Drop any previous filing for this period; contexts and facts cascade.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM filings WHERE company_id = ? AND period_label = ?`,
		filing.CompanyID, filing.PeriodLabel,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: delete previous filing")
	}

	filing.ID = uuid.New().String()
	if filing.UploadedAt.IsZero() {
		filing.UploadedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO filings (`+filingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filing.ID, filing.CompanyID, filing.PeriodLabel,
		filing.PeriodStart, filing.PeriodEnd, filing.InstantDate,
		filing.SourceFilename, filing.StoredPath, filing.UploadedAt,
	); err != nil {
		return nil, wrapUniqueViolation(err, "sqlite: insert filing")
	}

	contextRows := make(map[string]string, len(contexts))
	for _, c := range contexts {
		c.ID = uuid.New().String()
		c.FilingID = filing.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contexts (id, filing_id, context_id, entity_identifier, start_date, end_date, instant_date, period_type, ordinal)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.FilingID, c.ContextID, c.EntityIdentifier,
			c.StartDate, c.EndDate, c.InstantDate, string(c.PeriodType), c.Ordinal,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert context")
		}
		contextRows[c.ContextID] = c.ID
	}

	for _, f := range facts {
		f.ID = uuid.New().String()
		f.FilingID = filing.ID
		var contextRowID *string
		if rowID, ok := contextRows[f.ContextRef]; ok && f.ContextRef != "" {
			contextRowID = &rowID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO facts (id, filing_id, context_id, name, namespace, value, decimals, unit, ordinal)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.FilingID, contextRowID, f.Name, f.Namespace,
			f.Value, f.Decimals, f.Unit, f.Ordinal,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert fact")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapUniqueViolation(err, "sqlite: commit replace filing")
	}
	return &filing, nil
}

func (s *SQLiteStore) DeleteFiling(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM filings WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete filing %s", id)
	}
	return checkRowsAffected(res, "filing", id)
}

func (s *SQLiteStore) ListContexts(ctx context.Context, filingID string) ([]model.Context, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filing_id, context_id, entity_identifier, start_date, end_date, instant_date, period_type, ordinal
		 FROM contexts WHERE filing_id = ? ORDER BY ordinal, id`, filingID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contexts")
	}
	defer rows.Close()

	var contexts []model.Context
	for rows.Next() {
		var c model.Context
		var start, end, instant sql.NullTime
		var periodType string
		if err := rows.Scan(&c.ID, &c.FilingID, &c.ContextID, &c.EntityIdentifier,
			&start, &end, &instant, &periodType, &c.Ordinal); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan context")
		}
		c.StartDate = timePtr(start)
		c.EndDate = timePtr(end)
		c.InstantDate = timePtr(instant)
		c.PeriodType = model.PeriodType(periodType)
		contexts = append(contexts, c)
	}
	return contexts, eris.Wrap(rows.Err(), "sqlite: list contexts iterate")
}

func (s *SQLiteStore) ListFacts(ctx context.Context, filingID string) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filing_id, context_id, name, namespace, value, decimals, unit, ordinal
		 FROM facts WHERE filing_id = ? ORDER BY ordinal, id`, filingID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list facts")
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var f model.Fact
		var contextRowID sql.NullString
		if err := rows.Scan(&f.ID, &f.FilingID, &contextRowID, &f.Name, &f.Namespace,
			&f.Value, &f.Decimals, &f.Unit, &f.Ordinal); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fact")
		}
		if contextRowID.Valid {
			f.ContextRowID = &contextRowID.String
		}
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "sqlite: list facts iterate")
}

// --- Report templates ---

func (s *SQLiteStore) CreateTemplate(ctx context.Context, t model.ReportTemplate) (*model.ReportTemplate, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_templates (id, name, slug, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, t.Description, t.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert template %s", t.Slug)
	}
	return &t, nil
}

func (s *SQLiteStore) GetTemplateBySlug(ctx context.Context, slug string) (*model.ReportTemplate, error) {
	var t model.ReportTemplate
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, created_at FROM report_templates WHERE slug = ?`,
		slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get template %s", slug)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]model.ReportTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, description, created_at FROM report_templates ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list templates")
	}
	defer rows.Close()

	var templates []model.ReportTemplate
	for rows.Next() {
		var t model.ReportTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template")
		}
		templates = append(templates, t)
	}
	return templates, eris.Wrap(rows.Err(), "sqlite: list templates iterate")
}

func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM report_templates WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete template %s", id)
	}
	return checkRowsAffected(res, "template", id)
}

func (s *SQLiteStore) CreateTemplateItem(ctx context.Context, item model.TemplateItem) (*model.TemplateItem, error) {
	item.ID = uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO template_items (id, template_id, label, primary_fact, fallback_facts, sort_order, level)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.TemplateID, item.Label, item.PrimaryFact,
		model.JoinFallbacks(item.FallbackFacts), item.SortOrder, item.Level,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert template item %s", item.Label)
	}
	return &item, nil
}

func (s *SQLiteStore) UpdateTemplateItem(ctx context.Context, item model.TemplateItem) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE template_items SET label = ?, primary_fact = ?, fallback_facts = ?, sort_order = ?, level = ?
		 WHERE id = ?`,
		item.Label, item.PrimaryFact, model.JoinFallbacks(item.FallbackFacts),
		item.SortOrder, item.Level, item.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update template item %s", item.ID)
	}
	return checkRowsAffected(res, "template_item", item.ID)
}

func (s *SQLiteStore) DeleteTemplateItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM template_items WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete template item %s", id)
	}
	return checkRowsAffected(res, "template_item", id)
}

func (s *SQLiteStore) ListTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, template_id, label, primary_fact, fallback_facts, sort_order, level
		 FROM template_items WHERE template_id = ? ORDER BY sort_order, id`, templateID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list template items")
	}
	defer rows.Close()

	var items []model.TemplateItem
	for rows.Next() {
		var item model.TemplateItem
		var fallbacks string
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.Label, &item.PrimaryFact,
			&fallbacks, &item.SortOrder, &item.Level); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template item")
		}
		item.FallbackFacts = model.ParseFallbacks(fallbacks)
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list template items iterate")
}

// --- helpers ---

// companyPatchOrder fixes the SET clause order so generated SQL is stable.
var companyPatchOrder = []model.CompanyField{
	model.CompanyFieldName,
	model.CompanyFieldEntityCode,
	model.CompanyFieldEntityName,
	model.CompanyFieldMainIndustry,
	model.CompanyFieldSector,
	model.CompanyFieldSubsector,
	model.CompanyFieldIndustry,
	model.CompanyFieldSubindustry,
}

func wrapUniqueViolation(err error, msg string) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return eris.Wrap(ErrDuplicateFiling, msg)
	}
	return eris.Wrap(err, msg)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCompany(row scannable) (*model.Company, error) {
	var c model.Company
	err := row.Scan(&c.ID, &c.Ticker, &c.Name, &c.EntityCode, &c.EntityName,
		&c.MainIndustry, &c.Sector, &c.Subsector, &c.Industry, &c.Subindustry, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanFiling(row scannable) (*model.Filing, error) {
	var f model.Filing
	var start, end, instant sql.NullTime
	err := row.Scan(&f.ID, &f.CompanyID, &f.PeriodLabel, &start, &end, &instant,
		&f.SourceFilename, &f.StoredPath, &f.UploadedAt)
	if err != nil {
		return nil, err
	}
	f.PeriodStart = timePtr(start)
	f.PeriodEnd = timePtr(end)
	f.InstantDate = timePtr(instant)
	return &f, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
