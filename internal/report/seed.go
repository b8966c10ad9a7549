package report

import (
	"context"
	"embed"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/filings-cli/internal/model"
	"github.com/sells-group/filings-cli/internal/store"
)

//go:embed seeds/*.yaml
var seedFS embed.FS

type seedTemplate struct {
	Name        string     `yaml:"name"`
	Slug        string     `yaml:"slug"`
	Description string     `yaml:"description"`
	Items       []seedItem `yaml:"items"`
}

type seedItem struct {
	Label     string   `yaml:"label"`
	Primary   string   `yaml:"primary"`
	Fallbacks []string `yaml:"fallbacks"`
	Level     int      `yaml:"level"`
}

// SeedTemplates installs the built-in statement templates. Templates whose
// slug already exists are left untouched, so re-running is safe and never
// clobbers local edits.
func SeedTemplates(ctx context.Context, st store.Store) error {
	entries, err := seedFS.ReadDir("seeds")
	if err != nil {
		return eris.Wrap(err, "report: read seed dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := seedFS.ReadFile("seeds/" + name)
		if err != nil {
			return eris.Wrapf(err, "report: read seed %s", name)
		}
		var seed seedTemplate
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			return eris.Wrapf(err, "report: decode seed %s", name)
		}

		existing, err := st.GetTemplateBySlug(ctx, seed.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			zap.S().Debugw("seed template already present", "slug", seed.Slug)
			continue
		}

		created, err := st.CreateTemplate(ctx, model.ReportTemplate{
			Name:        seed.Name,
			Slug:        seed.Slug,
			Description: seed.Description,
		})
		if err != nil {
			return err
		}
		for i, item := range seed.Items {
			if _, err := st.CreateTemplateItem(ctx, model.TemplateItem{
				TemplateID:    created.ID,
				Label:         item.Label,
				PrimaryFact:   item.Primary,
				FallbackFacts: item.Fallbacks,
				SortOrder:     (i + 1) * 10,
				Level:         item.Level,
			}); err != nil {
				return err
			}
		}
		zap.S().Infow("seed template installed", "slug", seed.Slug, "items", len(seed.Items))
	}
	return nil
}
