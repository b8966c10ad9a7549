package report

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteXLSX renders a report as a spreadsheet with one sheet named after
// the template slug.
func WriteXLSX(r *Report, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName(r.Template.Slug))
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	title := sheet.AddRow()
	title.AddCell().SetString(r.Template.Name + " - " + r.Company.Ticker)

	comparisonLabel := ""
	if r.Comparison != nil {
		comparisonLabel = r.Comparison.PeriodLabel
	}
	header := sheet.AddRow()
	for _, h := range []string{"Line item", r.Primary.PeriodLabel, comparisonLabel, "Delta", "Delta %"} {
		header.AddCell().SetString(h)
	}

	for _, row := range r.Rows {
		xr := sheet.AddRow()
		xr.AddCell().SetString(strings.Repeat("  ", row.Level) + row.Label)
		xr.AddCell().SetString(row.PrimaryDisplay)
		xr.AddCell().SetString(row.ComparisonDisplay)
		xr.AddCell().SetString(row.DeltaDisplay)
		xr.AddCell().SetString(row.DeltaPercentDisplay)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// sheetName keeps sheet titles inside Excel's 31-character limit.
func sheetName(slug string) string {
	if len(slug) > 31 {
		return slug[:31]
	}
	return slug
}
