package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/filings-cli/internal/db"
	"github.com/sells-group/filings-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; tests use this with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS filings (
	id              TEXT PRIMARY KEY,
	company_id      TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	period_label    TEXT NOT NULL,
	period_start    DATE,
	period_end      DATE,
	instant_date    DATE,
	source_filename TEXT NOT NULL DEFAULT '',
	stored_path     TEXT NOT NULL DEFAULT '',
	uploaded_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, period_label)
);

CREATE TABLE IF NOT EXISTS contexts (
	id                TEXT PRIMARY KEY,
	filing_id         TEXT NOT NULL REFERENCES filings(id) ON DELETE CASCADE,
	context_id        TEXT NOT NULL,
	entity_identifier TEXT NOT NULL DEFAULT '',
	start_date        DATE,
	end_date          DATE,
	instant_date      DATE,
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
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Companies ---

func (s *PostgresStore) GetCompanyByTicker(ctx context.Context, ticker string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE ticker = $1`, ticker,
	).Scan(&c.ID, &c.Ticker, &c.Name, &c.EntityCode, &c.EntityName,
		&c.MainIndustry, &c.Sector, &c.Subsector, &c.Industry, &c.Subindustry, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", ticker)
	}
	return &c, nil
}

func (s *PostgresStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (`+companyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Ticker, c.Name, c.EntityCode, c.EntityName, c.MainIndustry,
		c.Sector, c.Subsector, c.Industry, c.Subindustry, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert company %s", c.Ticker)
	}
	return &c, nil
}

func (s *PostgresStore) PatchCompany(ctx context.Context, id string, patch model.CompanyPatch) error {
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
		args = append(args, value)
		sets = append(sets, string(field)+" = $"+itoa(len(args)))
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET `+strings.Join(sets, ", ")+` WHERE id = $`+itoa(len(args)),
		args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: patch company %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY ticker`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Ticker, &c.Name, &c.EntityCode, &c.EntityName,
			&c.MainIndustry, &c.Sector, &c.Subsector, &c.Industry, &c.Subindustry, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

// --- Filings ---

func (s *PostgresStore) FindFiling(ctx context.Context, companyID, periodLabel string) (*model.Filing, error) {
	f, err := s.queryFiling(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE company_id = $1 AND period_label = $2`,
		companyID, periodLabel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find filing %s/%s", companyID, periodLabel)
	}
	return f, nil
}

func (s *PostgresStore) GetFiling(ctx context.Context, id string) (*model.Filing, error) {
	f, err := s.queryFiling(ctx, `SELECT `+filingColumns+` FROM filings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("filing not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get filing %s", id)
	}
	return f, nil
}

func (s *PostgresStore) queryFiling(ctx context.Context, sql string, args ...any) (*model.Filing, error) {
	var f model.Filing
	err := s.pool.QueryRow(ctx, sql, args...).Scan(
		&f.ID, &f.CompanyID, &f.PeriodLabel, &f.PeriodStart, &f.PeriodEnd,
		&f.InstantDate, &f.SourceFilename, &f.StoredPath, &f.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) ListFilings(ctx context.Context, companyID string) ([]model.Filing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE company_id = $1
		 ORDER BY uploaded_at DESC, period_label DESC`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list filings")
	}
	defer rows.Close()

	var filings []model.Filing
	for rows.Next() {
		var f model.Filing
		if err := rows.Scan(&f.ID, &f.CompanyID, &f.PeriodLabel, &f.PeriodStart, &f.PeriodEnd,
			&f.InstantDate, &f.SourceFilename, &f.StoredPath, &f.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan filing")
		}
		filings = append(filings, f)
	}
	return filings, eris.Wrap(rows.Err(), "postgres: list filings iterate")
}

func (s *PostgresStore) ReplaceFiling(ctx context.Context, filing model.Filing, contexts []model.Context, facts []model.Fact) (*model.Filing, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin replace filing")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM filings WHERE company_id = $1 AND period_label = $2`,
		filing.CompanyID, filing.PeriodLabel,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: delete previous filing")
	}

	filing.ID = uuid.New().String()
	if filing.UploadedAt.IsZero() {
		filing.UploadedAt = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO filings (`+filingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		filing.ID, filing.CompanyID, filing.PeriodLabel,
		filing.PeriodStart, filing.PeriodEnd, filing.InstantDate,
		filing.SourceFilename, filing.StoredPath, filing.UploadedAt,
	); err != nil {
		return nil, wrapPgUniqueViolation(err, "postgres: insert filing")
	}

	contextRowIDs := make(map[string]string, len(contexts))
	contextRows := make([][]any, 0, len(contexts))
	for _, c := range contexts {
		rowID := uuid.New().String()
		contextRowIDs[c.ContextID] = rowID
		contextRows = append(contextRows, []any{
			rowID, filing.ID, c.ContextID, c.EntityIdentifier,
			c.StartDate, c.EndDate, c.InstantDate, string(c.PeriodType), c.Ordinal,
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "contexts",
		[]string{"id", "filing_id", "context_id", "entity_identifier", "start_date", "end_date", "instant_date", "period_type", "ordinal"},
		contextRows,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: copy contexts")
	}

	factRows := make([][]any, 0, len(facts))
	for _, f := range facts {
		var contextRowID *string
		if rowID, ok := contextRowIDs[f.ContextRef]; ok && f.ContextRef != "" {
			contextRowID = &rowID
		}
		factRows = append(factRows, []any{
			uuid.New().String(), filing.ID, contextRowID, f.Name, f.Namespace,
			f.Value, f.Decimals, f.Unit, f.Ordinal,
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "facts",
		[]string{"id", "filing_id", "context_id", "name", "namespace", "value", "decimals", "unit", "ordinal"},
		factRows,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: copy facts")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapPgUniqueViolation(err, "postgres: commit replace filing")
	}
	return &filing, nil
}

func (s *PostgresStore) DeleteFiling(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM filings WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete filing %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("filing not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListContexts(ctx context.Context, filingID string) ([]model.Context, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, filing_id, context_id, entity_identifier, start_date, end_date, instant_date, period_type, ordinal
		 FROM contexts WHERE filing_id = $1 ORDER BY ordinal, id`, filingID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contexts")
	}
	defer rows.Close()

	var contexts []model.Context
	for rows.Next() {
		var c model.Context
		var periodType string
		if err := rows.Scan(&c.ID, &c.FilingID, &c.ContextID, &c.EntityIdentifier,
			&c.StartDate, &c.EndDate, &c.InstantDate, &periodType, &c.Ordinal); err != nil {
			return nil, eris.Wrap(err, "postgres: scan context")
		}
		c.PeriodType = model.PeriodType(periodType)
		contexts = append(contexts, c)
	}
	return contexts, eris.Wrap(rows.Err(), "postgres: list contexts iterate")
}

func (s *PostgresStore) ListFacts(ctx context.Context, filingID string) ([]model.Fact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, filing_id, context_id, name, namespace, value, decimals, unit, ordinal
		 FROM facts WHERE filing_id = $1 ORDER BY ordinal, id`, filingID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list facts")
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var f model.Fact
		if err := rows.Scan(&f.ID, &f.FilingID, &f.ContextRowID, &f.Name, &f.Namespace,
			&f.Value, &f.Decimals, &f.Unit, &f.Ordinal); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fact")
		}
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "postgres: list facts iterate")
}

// --- Report templates ---

func (s *PostgresStore) CreateTemplate(ctx context.Context, t model.ReportTemplate) (*model.ReportTemplate, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO report_templates (id, name, slug, description, created_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, t.Slug, t.Description, t.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert template %s", t.Slug)
	}
	return &t, nil
}

func (s *PostgresStore) GetTemplateBySlug(ctx context.Context, slug string) (*model.ReportTemplate, error) {
	var t model.ReportTemplate
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, description, created_at FROM report_templates WHERE slug = $1`,
		slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get template %s", slug)
	}
	return &t, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]model.ReportTemplate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug, description, created_at FROM report_templates ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list templates")
	}
	defer rows.Close()

	var templates []model.ReportTemplate
	for rows.Next() {
		var t model.ReportTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan template")
		}
		templates = append(templates, t)
	}
	return templates, eris.Wrap(rows.Err(), "postgres: list templates iterate")
}

func (s *PostgresStore) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM report_templates WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete template %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("template not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateTemplateItem(ctx context.Context, item model.TemplateItem) (*model.TemplateItem, error) {
	item.ID = uuid.New().String()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO template_items (id, template_id, label, primary_fact, fallback_facts, sort_order, level)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.TemplateID, item.Label, item.PrimaryFact,
		model.JoinFallbacks(item.FallbackFacts), item.SortOrder, item.Level,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert template item %s", item.Label)
	}
	return &item, nil
}

func (s *PostgresStore) UpdateTemplateItem(ctx context.Context, item model.TemplateItem) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE template_items SET label = $1, primary_fact = $2, fallback_facts = $3, sort_order = $4, level = $5
		 WHERE id = $6`,
		item.Label, item.PrimaryFact, model.JoinFallbacks(item.FallbackFacts),
		item.SortOrder, item.Level, item.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update template item %s", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("template_item not found: %s", item.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteTemplateItem(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM template_items WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete template item %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("template_item not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, template_id, label, primary_fact, fallback_facts, sort_order, level
		 FROM template_items WHERE template_id = $1 ORDER BY sort_order, id`, templateID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list template items")
	}
	defer rows.Close()

	var items []model.TemplateItem
	for rows.Next() {
		var item model.TemplateItem
		var fallbacks string
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.Label, &item.PrimaryFact,
			&fallbacks, &item.SortOrder, &item.Level); err != nil {
			return nil, eris.Wrap(err, "postgres: scan template item")
		}
		item.FallbackFacts = model.ParseFallbacks(fallbacks)
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list template items iterate")
}

// --- helpers ---

func wrapPgUniqueViolation(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return eris.Wrap(ErrDuplicateFiling, msg)
	}
	return eris.Wrap(err, msg)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
