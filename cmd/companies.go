package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/filings-cli/internal/model"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Inspect known companies",
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		companies, err := st.ListCompanies(ctx)
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			fmt.Fprintln(os.Stderr, "No companies found.")
			return nil
		}

		formatCompaniesList(os.Stdout, companies)
		return nil
	},
}

func formatCompaniesList(w io.Writer, companies []model.Company) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tNAME\tSECTOR\tINDUSTRY\tCREATED")
	for _, c := range companies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Ticker, c.Name, c.Sector, c.Industry,
			c.CreatedAt.Format("2006-01-02"))
	}
	tw.Flush()
}

func init() {
	companiesCmd.AddCommand(companiesListCmd)
	rootCmd.AddCommand(companiesCmd)
}
