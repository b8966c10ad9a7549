package report

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/filings-cli/internal/model"
	"github.com/sells-group/filings-cli/internal/store"
)

// Report is a fully rendered comparative report for one company.
type Report struct {
	Template   model.ReportTemplate `json:"template"`
	Company    model.Company        `json:"company"`
	Primary    model.Filing         `json:"primary"`
	Comparison *model.Filing        `json:"comparison,omitempty"`
	Rows       []Row                `json:"rows"`
}

// Build loads the template, resolves the company's filings and projects
// the rows. Empty period labels select by recency: the latest filing as
// primary and the next one as comparison. A single-filing company renders
// with an empty comparison column.
func Build(ctx context.Context, st store.Store, slug, ticker, periodLabel, comparisonLabel string) (*Report, error) {
	tmpl, err := st.GetTemplateBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, eris.Errorf("report: unknown template: %s", slug)
	}
	items, err := st.ListTemplateItems(ctx, tmpl.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, eris.Errorf("report: template %s has no items", slug)
	}

	company, err := st.GetCompanyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, eris.Errorf("report: unknown ticker: %s", ticker)
	}

	primary, comparison, err := selectFilings(ctx, st, company.ID, periodLabel, comparisonLabel)
	if err != nil {
		return nil, err
	}

	primaryFacts, err := st.ListFacts(ctx, primary.ID)
	if err != nil {
		return nil, err
	}
	var comparisonFacts []model.Fact
	if comparison != nil {
		if comparisonFacts, err = st.ListFacts(ctx, comparison.ID); err != nil {
			return nil, err
		}
	}

	return &Report{
		Template:   *tmpl,
		Company:    *company,
		Primary:    *primary,
		Comparison: comparison,
		Rows:       Project(items, primaryFacts, comparisonFacts),
	}, nil
}

func selectFilings(ctx context.Context, st store.Store, companyID, periodLabel, comparisonLabel string) (*model.Filing, *model.Filing, error) {
	filings, err := st.ListFilings(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	if len(filings) == 0 {
		return nil, nil, eris.New("report: company has no filings")
	}

	byLabel := func(label string) *model.Filing {
		for i := range filings {
			if filings[i].PeriodLabel == label {
				return &filings[i]
			}
		}
		return nil
	}

	var primary *model.Filing
	if periodLabel == "" {
		primary = &filings[0]
	} else if primary = byLabel(periodLabel); primary == nil {
		return nil, nil, eris.Errorf("report: no filing for period %s", periodLabel)
	}

	var comparison *model.Filing
	if comparisonLabel != "" {
		if comparison = byLabel(comparisonLabel); comparison == nil {
			return nil, nil, eris.Errorf("report: no filing for comparison period %s", comparisonLabel)
		}
	} else {
		// First filing older than the primary in the recency ordering.
		seenPrimary := false
		for i := range filings {
			if filings[i].ID == primary.ID {
				seenPrimary = true
				continue
			}
			if seenPrimary {
				comparison = &filings[i]
				break
			}
		}
	}
	if comparison != nil && comparison.ID == primary.ID {
		return nil, nil, eris.New("report: primary and comparison periods are the same")
	}
	return primary, comparison, nil
}
