package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/filings-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS companies").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetCompanyByTicker_Missing(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT .* FROM companies WHERE ticker").
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	got, err := st.GetCompanyByTicker(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetCompanyByTicker_Found(t *testing.T) {
	st, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .* FROM companies WHERE ticker").
		WithArgs("BBCA").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "ticker", "name", "entity_code", "entity_name", "main_industry",
			"sector", "subsector", "industry", "subindustry", "created_at",
		}).AddRow("id-1", "BBCA", "Bank Central Asia Tbk", "BBCA", "Bank Central Asia Tbk",
			"", "Financials", "", "Banks", "", now))

	got, err := st.GetCompanyByTicker(context.Background(), "BBCA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bank Central Asia Tbk", got.Name)
	assert.Equal(t, "Financials", got.Sector)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PatchCompany(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE companies SET").
		WithArgs("Banks", "id-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := st.PatchCompany(context.Background(), "id-1", model.CompanyPatch{
		model.CompanyFieldIndustry: "Banks",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PatchCompany_Missing(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE companies SET").
		WithArgs("X", "no-such-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.PatchCompany(context.Background(), "no-such-id", model.CompanyPatch{
		model.CompanyFieldName: "X",
	})
	assert.Error(t, err)
}

func TestPostgres_PatchCompany_Empty(t *testing.T) {
	st, mock := newMockPostgres(t)

	// No SQL expected for an empty patch.
	require.NoError(t, st.PatchCompany(context.Background(), "id-1", model.CompanyPatch{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceFiling(t *testing.T) {
	st, mock := newMockPostgres(t)
	filing, contexts, facts := testFilingInput("company-1")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM filings WHERE company_id").
		WithArgs("company-1", "2024-12-31").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO filings").
		WithArgs(pgxmock.AnyArg(), "company-1", "2024-12-31",
			filing.PeriodStart, filing.PeriodEnd, pgxmock.AnyArg(),
			"instance.xbrl", "BBCA/2024-12-31_x.xbrl", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"contexts"},
		[]string{"id", "filing_id", "context_id", "entity_identifier", "start_date", "end_date", "instant_date", "period_type", "ordinal"}).
		WillReturnResult(int64(len(contexts)))
	mock.ExpectCopyFrom(pgx.Identifier{"facts"},
		[]string{"id", "filing_id", "context_id", "name", "namespace", "value", "decimals", "unit", "ordinal"}).
		WillReturnResult(int64(len(facts)))
	mock.ExpectCommit()

	created, err := st.ReplaceFiling(context.Background(), filing, contexts, facts)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceFiling_UniqueViolation(t *testing.T) {
	st, mock := newMockPostgres(t)
	filing, contexts, facts := testFilingInput("company-1")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM filings WHERE company_id").
		WithArgs("company-1", "2024-12-31").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO filings").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := st.ReplaceFiling(context.Background(), filing, contexts, facts)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateFiling))
}

func TestPostgres_DeleteFiling_Missing(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("DELETE FROM filings WHERE id").
		WithArgs("no-such-id").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.Error(t, st.DeleteFiling(context.Background(), "no-such-id"))
}

func TestPostgres_GetTemplateBySlug_Missing(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT .* FROM report_templates WHERE slug").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	got, err := st.GetTemplateBySlug(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgres_ListTemplateItems_ParsesFallbacks(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT .* FROM template_items WHERE template_id").
		WithArgs("tmpl-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "template_id", "label", "primary_fact", "fallback_facts", "sort_order", "level",
		}).AddRow("item-1", "tmpl-1", "Revenue", "SalesAndRevenue", "Revenue\nSales", 10, 0))

	items, err := st.ListTemplateItems(context.Background(), "tmpl-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"Revenue", "Sales"}, items[0].FallbackFacts)
}
