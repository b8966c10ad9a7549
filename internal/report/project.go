// Package report projects persisted filing facts through user-authored
// report templates into comparative rows.
package report

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/filings-cli/internal/model"
)

// Row is one rendered report line. Fact pointers are nil when no code on
// the item resolved for that filing; display fields render absence as the
// "-" placeholder. DeltaValue and DeltaPercent are set only when both sides
// parsed as numbers (and, for the percent, the comparison is nonzero).
type Row struct {
	Label      string      `json:"label"`
	Level      int         `json:"level"`
	Primary    *model.Fact `json:"primary,omitempty"`
	Comparison *model.Fact `json:"comparison,omitempty"`

	DeltaValue   *decimal.Decimal `json:"delta_value,omitempty"`
	DeltaPercent *decimal.Decimal `json:"delta_percent,omitempty"`

	PrimaryDisplay      string `json:"primary_display"`
	ComparisonDisplay   string `json:"comparison_display"`
	DeltaDisplay        string `json:"delta_display"`
	DeltaPercentDisplay string `json:"delta_percent_display"`
}

// Project resolves every template item against the primary and comparison
// filings' facts and computes period-over-period deltas. It is pure and
// deterministic: identical inputs produce identical rows. Items must
// already be in template order; comparison may be nil when no comparison
// filing was selected.
func Project(items []model.TemplateItem, primary, comparison []model.Fact) []Row {
	primaryLookup := factLookup(primary)
	comparisonLookup := factLookup(comparison)

	rows := make([]Row, 0, len(items))
	for _, item := range items {
		row := Row{
			Label:      item.Label,
			Level:      item.Level,
			Primary:    resolveFact(primaryLookup, item),
			Comparison: resolveFact(comparisonLookup, item),
		}

		primaryValue := factAmount(row.Primary)
		comparisonValue := factAmount(row.Comparison)

		if primaryValue != nil && comparisonValue != nil {
			delta := primaryValue.Sub(*comparisonValue)
			row.DeltaValue = &delta
			if !comparisonValue.IsZero() {
				pct := delta.Div(*comparisonValue).Mul(decimal.NewFromInt(100))
				row.DeltaPercent = &pct
			}
		}

		row.PrimaryDisplay = FormatDecimal(primaryValue)
		row.ComparisonDisplay = FormatDecimal(comparisonValue)
		row.DeltaDisplay = FormatDecimal(row.DeltaValue)
		row.DeltaPercentDisplay = FormatPercent(row.DeltaPercent)

		rows = append(rows, row)
	}
	return rows
}

// factLookup builds a case-insensitive name index over a filing's facts.
// On name collision the first fact by stored order wins.
func factLookup(facts []model.Fact) map[string]*model.Fact {
	lookup := make(map[string]*model.Fact, len(facts))
	for i := range facts {
		key := strings.ToLower(facts[i].Name)
		if _, ok := lookup[key]; !ok {
			lookup[key] = &facts[i]
		}
	}
	return lookup
}

// resolveFact tries the item's primary code then each fallback in listed
// order. No hit is a normal outcome: not every line applies to every
// company.
func resolveFact(lookup map[string]*model.Fact, item model.TemplateItem) *model.Fact {
	codes := append([]string{item.PrimaryFact}, item.FallbackFacts...)
	for _, code := range codes {
		if fact, ok := lookup[strings.ToLower(code)]; ok {
			return fact
		}
	}
	return nil
}

// factAmount parses a fact's raw value as an arbitrary-precision decimal.
// Thousands-separator commas are stripped; anything else non-numeric means
// the fact has no numeric value.
func factAmount(fact *model.Fact) *decimal.Decimal {
	if fact == nil {
		return nil
	}
	cleaned := strings.ReplaceAll(fact.Value, ",", "")
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}
