package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/filings-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createTestCompany(t *testing.T, st *SQLiteStore, ticker string) *model.Company {
	t.Helper()
	c, err := st.CreateCompany(context.Background(), model.Company{
		Ticker:     ticker,
		Name:       ticker + " Corp",
		EntityName: ticker + " Corp",
		Sector:     "Financials",
	})
	require.NoError(t, err)
	return c
}

func testFilingInput(companyID string) (model.Filing, []model.Context, []model.Fact) {
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	filing := model.Filing{
		CompanyID:      companyID,
		PeriodLabel:    "2024-12-31",
		PeriodStart:    &start,
		PeriodEnd:      &end,
		SourceFilename: "instance.xbrl",
		StoredPath:     "BBCA/2024-12-31_x.xbrl",
	}
	contexts := []model.Context{
		{ContextID: "CurrentYearDuration", EntityIdentifier: "idx:bbca", StartDate: &start, EndDate: &end, PeriodType: model.PeriodDuration, Ordinal: 0},
		{ContextID: "CurrentYearInstant", EntityIdentifier: "idx:bbca", InstantDate: &end, PeriodType: model.PeriodInstant, Ordinal: 1},
	}
	facts := []model.Fact{
		{ContextRef: "CurrentYearInstant", Name: "Assets", Namespace: "http://example.com/t", Value: "1234500", Unit: "IDR", Ordinal: 0},
		{ContextRef: "CurrentYearDuration", Name: "ProfitLoss", Namespace: "http://example.com/t", Value: "48600", Unit: "IDR", Ordinal: 1},
		{ContextRef: "NoSuchContext", Name: "Orphan", Namespace: "http://example.com/t", Value: "1", Ordinal: 2},
	}
	return filing, contexts, facts
}

// --- Companies ---

func TestSQLite_Company_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := createTestCompany(t, st, "BBCA")
	require.NotEmpty(t, created.ID)

	got, err := st.GetCompanyByTicker(ctx, "BBCA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "BBCA Corp", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_Company_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCompanyByTicker(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Company_Patch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := createTestCompany(t, st, "TLKM")
	err := st.PatchCompany(ctx, created.ID, model.CompanyPatch{
		model.CompanyFieldIndustry: "Telecommunications",
		model.CompanyFieldName:     "Telkom Indonesia",
	})
	require.NoError(t, err)

	got, err := st.GetCompanyByTicker(ctx, "TLKM")
	require.NoError(t, err)
	assert.Equal(t, "Telecommunications", got.Industry)
	assert.Equal(t, "Telkom Indonesia", got.Name)
	// Untouched fields survive.
	assert.Equal(t, "Financials", got.Sector)
}

func TestSQLite_Company_PatchMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.PatchCompany(context.Background(), "no-such-id", model.CompanyPatch{
		model.CompanyFieldName: "X",
	})
	assert.Error(t, err)
}

func TestSQLite_Company_List(t *testing.T) {
	st := newTestSQLiteStore(t)

	createTestCompany(t, st, "TLKM")
	createTestCompany(t, st, "BBCA")

	companies, err := st.ListCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	// Ordered by ticker.
	assert.Equal(t, "BBCA", companies[0].Ticker)
	assert.Equal(t, "TLKM", companies[1].Ticker)
}

// --- Filings ---

func TestSQLite_ReplaceFiling_Creates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	company := createTestCompany(t, st, "BBCA")
	filing, contexts, facts := testFilingInput(company.ID)

	created, err := st.ReplaceFiling(ctx, filing, contexts, facts)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.UploadedAt.IsZero())

	storedContexts, err := st.ListContexts(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, storedContexts, 2)

	storedFacts, err := st.ListFacts(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, storedFacts, 3)
	assert.Equal(t, "Assets", storedFacts[0].Name)
	assert.Equal(t, "1234500", storedFacts[0].Value)
}

func TestSQLite_ReplaceFiling_LinksContexts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	company := createTestCompany(t, st, "BBCA")
	filing, contexts, facts := testFilingInput(company.ID)

	created, err := st.ReplaceFiling(ctx, filing, contexts, facts)
	require.NoError(t, err)

	storedContexts, err := st.ListContexts(ctx, created.ID)
	require.NoError(t, err)
	rowIDs := map[string]string{}
	for _, c := range storedContexts {
		rowIDs[c.ContextID] = c.ID
	}

	storedFacts, err := st.ListFacts(ctx, created.ID)
	require.NoError(t, err)

	require.NotNil(t, storedFacts[0].ContextRowID)
	assert.Equal(t, rowIDs["CurrentYearInstant"], *storedFacts[0].ContextRowID)
	require.NotNil(t, storedFacts[1].ContextRowID)
	assert.Equal(t, rowIDs["CurrentYearDuration"], *storedFacts[1].ContextRowID)
	// Unresolvable reference stays unlinked rather than failing the load.
	assert.Nil(t, storedFacts[2].ContextRowID)
}

func TestSQLite_ListContexts_DocumentOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	company := createTestCompany(t, st, "BBCA")
	filing, _, _ := testFilingInput(company.ID)

	// Lexicographic order would flip these; ordinal keeps document order.
	contexts := []model.Context{
		{ContextID: "ZLastNamed", PeriodType: model.PeriodInstant, Ordinal: 0},
		{ContextID: "AFirstNamed", PeriodType: model.PeriodInstant, Ordinal: 1},
	}

	created, err := st.ReplaceFiling(ctx, filing, contexts, nil)
	require.NoError(t, err)

	stored, err := st.ListContexts(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "ZLastNamed", stored[0].ContextID)
	assert.Equal(t, "AFirstNamed", stored[1].ContextID)
}

func TestSQLite_ReplaceFiling_Overwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	company := createTestCompany(t, st, "BBCA")
	filing, contexts, facts := testFilingInput(company.ID)

	first, err := st.ReplaceFiling(ctx, filing, contexts, facts)
	require.NoError(t, err)

	second, err := st.ReplaceFiling(ctx, filing, contexts[:1], facts[:1])
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	filings, err := st.ListFilings(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, filings, 1)
	assert.Equal(t, second.ID, filings[0].ID)

	// The replaced filing's rows are gone.
	oldFacts, err := st.ListFacts(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, oldFacts)

	newFacts, err := st.ListFacts(ctx, second.ID)
	require.NoError(t, err)
	assert.Len(t, newFacts, 1)
}

func TestSQLite_FindFiling(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	company := createTestCompany(t, st, "BBCA")
	filing, contexts, facts := testFilingInput(company.ID)
	created, err := st.ReplaceFiling(ctx, filing, contexts, facts)
	require.NoError(t, err)

	found, err := st.FindFiling(ctx, company.ID, "2024-12-31")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	require.NotNil(t, found.PeriodEnd)
	assert.Equal(t, "2024-12-31", found.PeriodEnd.Format("2006-01-02"))

	missing, err := st.FindFiling(ctx, company.ID, "2023-12-31")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_DeleteFiling_Cascades(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	company := createTestCompany(t, st, "BBCA")
	filing, contexts, facts := testFilingInput(company.ID)
	created, err := st.ReplaceFiling(ctx, filing, contexts, facts)
	require.NoError(t, err)

	require.NoError(t, st.DeleteFiling(ctx, created.ID))

	storedContexts, err := st.ListContexts(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, storedContexts)

	storedFacts, err := st.ListFacts(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, storedFacts)
}

func TestSQLite_DeleteFiling_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.Error(t, st.DeleteFiling(context.Background(), "no-such-id"))
}

// --- Templates ---

func TestSQLite_Template_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateTemplate(ctx, model.ReportTemplate{
		Name: "Balance Sheet", Slug: "balance-sheet", Description: "desc",
	})
	require.NoError(t, err)

	got, err := st.GetTemplateBySlug(ctx, "balance-sheet")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := st.GetTemplateBySlug(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_TemplateItems_FallbackRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tmpl, err := st.CreateTemplate(ctx, model.ReportTemplate{Name: "IS", Slug: "income-statement"})
	require.NoError(t, err)

	_, err = st.CreateTemplateItem(ctx, model.TemplateItem{
		TemplateID:    tmpl.ID,
		Label:         "Revenue",
		PrimaryFact:   "SalesAndRevenue",
		FallbackFacts: []string{"RevenueFromContractsWithCustomers", "Revenue"},
		SortOrder:     10,
	})
	require.NoError(t, err)

	items, err := st.ListTemplateItems(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"RevenueFromContractsWithCustomers", "Revenue"}, items[0].FallbackFacts)
}

func TestSQLite_TemplateItems_OrderedBySortOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tmpl, err := st.CreateTemplate(ctx, model.ReportTemplate{Name: "BS", Slug: "bs"})
	require.NoError(t, err)

	for _, it := range []model.TemplateItem{
		{TemplateID: tmpl.ID, Label: "Third", PrimaryFact: "C", SortOrder: 30},
		{TemplateID: tmpl.ID, Label: "First", PrimaryFact: "A", SortOrder: 10},
		{TemplateID: tmpl.ID, Label: "Second", PrimaryFact: "B", SortOrder: 20},
	} {
		_, err := st.CreateTemplateItem(ctx, it)
		require.NoError(t, err)
	}

	items, err := st.ListTemplateItems(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "First", items[0].Label)
	assert.Equal(t, "Second", items[1].Label)
	assert.Equal(t, "Third", items[2].Label)
}

func TestSQLite_Template_DeleteCascadesItems(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tmpl, err := st.CreateTemplate(ctx, model.ReportTemplate{Name: "CF", Slug: "cf"})
	require.NoError(t, err)
	_, err = st.CreateTemplateItem(ctx, model.TemplateItem{
		TemplateID: tmpl.ID, Label: "Op cash", PrimaryFact: "X", SortOrder: 10,
	})
	require.NoError(t, err)

	require.NoError(t, st.DeleteTemplate(ctx, tmpl.ID))

	items, err := st.ListTemplateItems(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSQLite_TemplateItem_Update(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	tmpl, err := st.CreateTemplate(ctx, model.ReportTemplate{Name: "BS", Slug: "bs2"})
	require.NoError(t, err)
	item, err := st.CreateTemplateItem(ctx, model.TemplateItem{
		TemplateID: tmpl.ID, Label: "Assets", PrimaryFact: "Assets", SortOrder: 10,
	})
	require.NoError(t, err)

	item.Label = "Total assets"
	item.FallbackFacts = []string{"TotalAssets"}
	require.NoError(t, st.UpdateTemplateItem(ctx, *item))

	items, err := st.ListTemplateItems(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Total assets", items[0].Label)
	assert.Equal(t, []string{"TotalAssets"}, items[0].FallbackFacts)
}
