package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/filings-cli/internal/report"
)

var (
	reportPeriod     string
	reportComparison string
	reportOutput     string
	reportFormat     string
)

var reportCmd = &cobra.Command{
	Use:   "report <template-slug> <ticker>",
	Short: "Render a comparative report",
	Long:  "Projects a company's stored facts through a report template, comparing two reporting periods. With no --period the two most recent filings are used.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rpt, err := report.Build(ctx, st, args[0], args[1], reportPeriod, reportComparison)
		if err != nil {
			return err
		}

		switch reportFormat {
		case "table":
			formatReport(os.Stdout, rpt)
			return nil
		case "xlsx":
			out := reportOutput
			if out == "" {
				out = fmt.Sprintf("%s_%s.xlsx", args[1], args[0])
			}
			if err := report.WriteXLSX(rpt, out); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("file", out))
			return nil
		default:
			return eris.Errorf("unsupported format: %s", reportFormat)
		}
	},
}

func formatReport(w io.Writer, rpt *report.Report) {
	comparisonLabel := "-"
	if rpt.Comparison != nil {
		comparisonLabel = rpt.Comparison.PeriodLabel
	}
	fmt.Fprintf(w, "%s: %s (%s)\n\n", rpt.Template.Name, rpt.Company.Name, rpt.Company.Ticker)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "LINE ITEM\t%s\t%s\tDELTA\tDELTA %%\t\n", rpt.Primary.PeriodLabel, comparisonLabel)
	for _, row := range rpt.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			strings.Repeat("  ", row.Level)+row.Label,
			row.PrimaryDisplay, row.ComparisonDisplay,
			row.DeltaDisplay, row.DeltaPercentDisplay)
	}
	tw.Flush()
}

func init() {
	reportCmd.Flags().StringVar(&reportPeriod, "period", "", "primary period label (default latest filing)")
	reportCmd.Flags().StringVar(&reportComparison, "comparison", "", "comparison period label (default next most recent)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "output format: table or xlsx")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "xlsx output path (default <ticker>_<slug>.xlsx)")
	rootCmd.AddCommand(reportCmd)
}
