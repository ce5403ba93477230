package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickproject/qpc/internal/catalog"
	"github.com/quickproject/qpc/internal/ui"
	"github.com/quickproject/qpc/pkg/models"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the scaffold catalog",
	Long: `List every scaffold in the catalog, grouped by category.

Use --filter to keep entries whose label, id or category contains the
query (case-insensitive).`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("filter", "", "Only show scaffolds matching this text")
}

func runList(cmd *cobra.Command, _ []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}

	var entries []models.CatalogEntry
	query := getStringFlag(cmd, "filter")
	if query != "" {
		entries = catalog.Filter(query)
	} else {
		entries = catalog.Flatten()
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(out, "No scaffolds match %q.\n", query)
		return nil
	}

	rendered, err := d.Theme.RenderMarkdown(ui.CatalogMarkdown(entries), 0)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(out, rendered)
	return nil
}
