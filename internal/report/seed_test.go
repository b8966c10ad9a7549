package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/filings-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestSeedTemplates_InstallsBuiltins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, SeedTemplates(ctx, st))

	templates, err := st.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 3)

	slugs := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		slugs = append(slugs, tmpl.Slug)
	}
	assert.ElementsMatch(t, []string{"balance-sheet", "income-statement", "cash-flow"}, slugs)

	bs, err := st.GetTemplateBySlug(ctx, "balance-sheet")
	require.NoError(t, err)
	items, err := st.ListTemplateItems(ctx, bs.ID)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "Total assets", items[0].Label)
	assert.Equal(t, "Assets", items[0].PrimaryFact)
	assert.Equal(t, []string{"TotalAssets"}, items[0].FallbackFacts)
}

func TestSeedTemplates_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, SeedTemplates(ctx, st))

	// Local edit survives a re-seed.
	bs, err := st.GetTemplateBySlug(ctx, "balance-sheet")
	require.NoError(t, err)
	_, err = st.CreateTemplateItem(ctx, model.TemplateItem{
		TemplateID: bs.ID, Label: "Goodwill", PrimaryFact: "Goodwill", SortOrder: 999,
	})
	require.NoError(t, err)

	require.NoError(t, SeedTemplates(ctx, st))

	templates, err := st.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 3)

	items, err := st.ListTemplateItems(ctx, bs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Goodwill", items[len(items)-1].Label)
}
