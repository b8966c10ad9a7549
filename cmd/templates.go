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

	"github.com/sells-group/filings-cli/internal/model"
	"github.com/sells-group/filings-cli/internal/report"
	"github.com/sells-group/filings-cli/internal/store"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage report templates",
}

// -- templates list --

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		templates, err := st.ListTemplates(ctx)
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			fmt.Fprintln(os.Stderr, "No templates found. Run `filings-cli templates seed` to install the built-ins.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SLUG\tNAME\tDESCRIPTION")
		for _, t := range templates {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Slug, t.Name, t.Description)
		}
		tw.Flush()
		return nil
	},
}

// -- templates show --

var templatesShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show a template and its line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tmpl, items, err := lookupTemplate(cmd, st, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n%s\n\n", tmpl.Name, tmpl.Slug, tmpl.Description)
		formatTemplateItems(os.Stdout, items)
		return nil
	},
}

// -- templates seed --

var templatesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the built-in statement templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return report.SeedTemplates(ctx, st)
	},
}

// -- templates create --

var templatesCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Create an empty report template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		if name == "" {
			name = args[0]
		}

		created, err := st.CreateTemplate(ctx, model.ReportTemplate{
			Name:        name,
			Slug:        args[0],
			Description: description,
		})
		if err != nil {
			return err
		}
		zap.L().Info("template created", zap.String("slug", created.Slug), zap.String("id", created.ID))
		return nil
	},
}

// -- templates delete --

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a template and its line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tmpl, _, err := lookupTemplate(cmd, st, args[0])
		if err != nil {
			return err
		}
		if err := st.DeleteTemplate(ctx, tmpl.ID); err != nil {
			return err
		}
		zap.L().Info("template deleted", zap.String("slug", tmpl.Slug))
		return nil
	},
}

// -- templates additem --

var templatesAddItemCmd = &cobra.Command{
	Use:   "additem <slug>",
	Short: "Add a line item to a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tmpl, items, err := lookupTemplate(cmd, st, args[0])
		if err != nil {
			return err
		}

		label, _ := cmd.Flags().GetString("label")
		primary, _ := cmd.Flags().GetString("fact")
		fallbacks, _ := cmd.Flags().GetStringSlice("fallback")
		level, _ := cmd.Flags().GetInt("level")
		sortOrder, _ := cmd.Flags().GetInt("order")
		if sortOrder == 0 {
			// Append after the current last item.
			for _, item := range items {
				if item.SortOrder >= sortOrder {
					sortOrder = item.SortOrder + 10
				}
			}
			if sortOrder == 0 {
				sortOrder = 10
			}
		}

		item, err := st.CreateTemplateItem(ctx, model.TemplateItem{
			TemplateID:    tmpl.ID,
			Label:         label,
			PrimaryFact:   primary,
			FallbackFacts: fallbacks,
			SortOrder:     sortOrder,
			Level:         level,
		})
		if err != nil {
			return err
		}
		zap.L().Info("template item added",
			zap.String("slug", tmpl.Slug),
			zap.String("label", item.Label),
			zap.Int("order", item.SortOrder))
		return nil
	},
}

// -- templates rmitem --

var templatesRmItemCmd = &cobra.Command{
	Use:   "rmitem <item-id>",
	Short: "Remove a line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteTemplateItem(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("template item removed", zap.String("id", args[0]))
		return nil
	},
}

func lookupTemplate(cmd *cobra.Command, st store.Store, slug string) (*model.ReportTemplate, []model.TemplateItem, error) {
	ctx := cmd.Context()

	tmpl, err := st.GetTemplateBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if tmpl == nil {
		return nil, nil, eris.Errorf("unknown template: %s", slug)
	}
	items, err := st.ListTemplateItems(ctx, tmpl.ID)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, items, nil
}

func formatTemplateItems(w io.Writer, items []model.TemplateItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tORDER\tLABEL\tPRIMARY FACT\tFALLBACKS")
	for _, item := range items {
		label := strings.Repeat("  ", item.Level) + item.Label
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			item.ID, item.SortOrder, label, item.PrimaryFact,
			strings.Join(item.FallbackFacts, ", "))
	}
	tw.Flush()
}

func init() {
	templatesCreateCmd.Flags().String("name", "", "display name (defaults to the slug)")
	templatesCreateCmd.Flags().String("description", "", "template description")

	templatesAddItemCmd.Flags().String("label", "", "line item label (required)")
	templatesAddItemCmd.Flags().String("fact", "", "primary fact name (required)")
	templatesAddItemCmd.Flags().StringSlice("fallback", nil, "fallback fact names, in priority order")
	templatesAddItemCmd.Flags().Int("level", 0, "indent level")
	templatesAddItemCmd.Flags().Int("order", 0, "sort order (0 appends at the end)")
	_ = templatesAddItemCmd.MarkFlagRequired("label")
	_ = templatesAddItemCmd.MarkFlagRequired("fact")

	templatesCmd.AddCommand(templatesListCmd, templatesShowCmd, templatesSeedCmd,
		templatesCreateCmd, templatesDeleteCmd, templatesAddItemCmd, templatesRmItemCmd)
	rootCmd.AddCommand(templatesCmd)
}
