package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quickproject/qpc/internal/templates"
	"github.com/quickproject/qpc/internal/ui"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Manage custom templates",
	Long: `Manage custom templates: named bundles of scaffolds that are created
together, each in its own sub-directory of one project directory.`,
}

var templateAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a custom template with the guided wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := requireDeps()
		if err != nil {
			return err
		}
		return d.Adapter.RequestNewCustomTemplateWizard(commandContext(cmd))
	},
}

var templateUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Create a project from a custom template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := requireDeps()
		if err != nil {
			return err
		}
		return d.Adapter.RequestUseTemplate(commandContext(cmd), args[0], intentOptions(cmd)...)
	},
}

var templateRemoveCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete a custom template",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := requireDeps()
		if err != nil {
			return err
		}
		return d.Adapter.RequestDeleteTemplate(commandContext(cmd), args[0])
	},
}

var templateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every custom template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := requireDeps()
		if err != nil {
			return err
		}
		return d.Adapter.RequestDeleteAllTemplates(commandContext(cmd), intentOptions(cmd)...)
	},
}

var templateListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List custom templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

var templateExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write every custom template to a bundle file",
	Long: `Write every custom template to a versioned bundle. Without FILE, or
with "-", the bundle is written to standard output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplateExport,
}

var templateImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add the custom templates of a bundle file",
	Long: `Validate a bundle (YAML or JSON) and add its templates. Use "-" to read
from standard input.

Templates whose name already exists are skipped unless --on-conflict=fail,
which stops at the first collision.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplateImport,
}

func init() {
	rootCmd.AddCommand(templateCmd)

	templateCmd.AddCommand(templateAddCmd)
	templateCmd.AddCommand(templateUseCmd)
	templateCmd.AddCommand(templateRemoveCmd)
	templateCmd.AddCommand(templateClearCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateExportCmd)
	templateCmd.AddCommand(templateImportCmd)

	addIntentFlags(templateUseCmd)
	templateClearCmd.Flags().BoolP("yes", "y", false, "Delete without asking for confirmation")
	templateExportCmd.Flags().String("format", string(templates.FormatYAML), "Bundle format: yaml or json")
	templateImportCmd.Flags().String("on-conflict", string(templates.ConflictSkip), "On a name collision: skip or fail")
}

func runTemplateList(cmd *cobra.Command, _ []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}

	list := d.Templates.List()
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		_, _ = fmt.Fprintln(out, "No custom templates yet. Run `qpc template add` to create one.")
		return nil
	}
	rendered, err := d.Theme.RenderMarkdown(ui.TemplatesMarkdown(list), 0)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(out, rendered)
	return nil
}

func runTemplateExport(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}

	format := templates.Format(strings.ToLower(getStringFlag(cmd, "format")))
	if format != templates.FormatYAML && format != templates.FormatJSON {
		return fmt.Errorf("invalid --format %q: must be yaml or json", format)
	}

	if len(args) == 0 || args[0] == "-" {
		return d.Templates.Export(cmd.OutOrStdout(), format)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	if err := d.Templates.Export(f, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write bundle file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d custom templates to %s\n", len(d.Templates.List()), args[0])
	return nil
}

func runTemplateImport(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}

	mode := templates.ConflictMode(strings.ToLower(getStringFlag(cmd, "on-conflict")))
	if mode != templates.ConflictSkip && mode != templates.ConflictFail {
		return fmt.Errorf("invalid --on-conflict %q: must be skip or fail", mode)
	}

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	result, err := d.Templates.Import(commandContext(cmd), data, mode)
	out := cmd.OutOrStdout()
	if result != nil && len(result.Added) > 0 {
		_, _ = fmt.Fprintf(out, "Imported %d custom templates: %s\n", len(result.Added), strings.Join(result.Added, ", "))
	}
	if err != nil {
		return fmt.Errorf("import bundle: %w", err)
	}
	if len(result.Skipped) > 0 {
		_, _ = fmt.Fprintf(out, "Skipped existing templates: %s\n", strings.Join(result.Skipped, ", "))
	}
	if len(result.Added) == 0 && len(result.Skipped) == 0 {
		_, _ = fmt.Fprintln(out, "The bundle contains no templates.")
	}
	return nil
}
