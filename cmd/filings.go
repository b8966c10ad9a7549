package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/filings-cli/internal/model"
)

var filingsCmd = &cobra.Command{
	Use:   "filings",
	Short: "Inspect stored filings",
}

// -- filings list --

var filingsListCmd = &cobra.Command{
	Use:   "list <ticker>",
	Short: "List filings for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		company, err := st.GetCompanyByTicker(ctx, args[0])
		if err != nil {
			return err
		}
		if company == nil {
			return eris.Errorf("unknown ticker: %s", args[0])
		}

		filings, err := st.ListFilings(ctx, company.ID)
		if err != nil {
			return err
		}
		if len(filings) == 0 {
			fmt.Fprintln(os.Stderr, "No filings found.")
			return nil
		}

		formatFilingsList(os.Stdout, filings)
		return nil
	},
}

// -- filings show --

var filingsShowCmd = &cobra.Command{
	Use:   "show <filing-id>",
	Short: "Show a filing with its contexts and facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filing, err := st.GetFiling(ctx, args[0])
		if err != nil {
			return err
		}
		contexts, err := st.ListContexts(ctx, filing.ID)
		if err != nil {
			return err
		}
		facts, err := st.ListFacts(ctx, filing.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Filing %s\n", filing.ID)
		fmt.Printf("  Period:   %s\n", filing.PeriodLabel)
		fmt.Printf("  Start:    %s\n", formatDate(filing.PeriodStart))
		fmt.Printf("  End:      %s\n", formatDate(filing.PeriodEnd))
		fmt.Printf("  Instant:  %s\n", formatDate(filing.InstantDate))
		fmt.Printf("  Source:   %s\n", filing.SourceFilename)
		fmt.Printf("  Stored:   %s\n", filing.StoredPath)
		fmt.Printf("  Uploaded: %s\n", filing.UploadedAt.Format(time.RFC3339))
		fmt.Printf("  Contexts: %d\n", len(contexts))
		fmt.Printf("  Facts:    %d\n\n", len(facts))

		limit, _ := cmd.Flags().GetInt("facts")
		if limit > 0 && limit < len(facts) {
			facts = facts[:limit]
		}
		formatFactsList(os.Stdout, facts)
		return nil
	},
}

// -- filings delete --

var filingsDeleteCmd = &cobra.Command{
	Use:   "delete <filing-id>",
	Short: "Delete a filing and its stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filing, err := st.GetFiling(ctx, args[0])
		if err != nil {
			return err
		}
		if err := st.DeleteFiling(ctx, filing.ID); err != nil {
			return err
		}
		if err := initFilestore().Remove(filing.StoredPath); err != nil {
			zap.L().Warn("stored document cleanup failed",
				zap.String("path", filing.StoredPath), zap.Error(err))
		}

		zap.L().Info("filing deleted",
			zap.String("id", filing.ID),
			zap.String("period", filing.PeriodLabel))
		return nil
	},
}

func formatFilingsList(w io.Writer, filings []model.Filing) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPERIOD\tSTART\tEND\tSOURCE\tUPLOADED")
	for _, f := range filings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.PeriodLabel, formatDate(f.PeriodStart), formatDate(f.PeriodEnd),
			f.SourceFilename, f.UploadedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func formatFactsList(w io.Writer, facts []model.Fact) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORD\tNAME\tVALUE\tUNIT")
	for _, f := range facts {
		value := f.Value
		if len(value) > 40 {
			value = value[:37] + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.Ordinal, f.Name, value, f.Unit)
	}
	tw.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func init() {
	filingsShowCmd.Flags().Int("facts", 50, "max facts to print (0 for all)")
	filingsCmd.AddCommand(filingsListCmd, filingsShowCmd, filingsDeleteCmd)
	rootCmd.AddCommand(filingsCmd)
}
