package cli

import (
	"github.com/spf13/cobra"

	"github.com/quickproject/qpc/internal/adapter"
)

var newCmd = &cobra.Command{
	Use:   "new [scaffold-id]",
	Short: "Create a project from the scaffold catalog",
	Long: `Create a new project by running the scaffold command of a catalog entry
in a fresh directory.

Without an argument the catalog is shown as a searchable list. Run
"qpc list" to see every scaffold id.

Examples:
  qpc new                           Pick a scaffold interactively
  qpc new react-ts --name web       Create ./web with Create React App
  qpc new express --base ~/src -y   Create under ~/src, overwrite without asking`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)

	addIntentFlags(newCmd)
}

// addIntentFlags registers the flags shared by commands that create projects.
func addIntentFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Project directory name (skips the name prompt)")
	cmd.Flags().String("base", "", "Directory the project is created in (default: workspace.dir)")
	cmd.Flags().BoolP("yes", "y", false, "Overwrite an existing directory without asking")
}

// intentOptions converts the shared flags into adapter options.
func intentOptions(cmd *cobra.Command) []adapter.IntentOption {
	var opts []adapter.IntentOption
	if name := getStringFlag(cmd, "name"); name != "" {
		opts = append(opts, adapter.WithProjectName(name))
	}
	if base := getStringFlag(cmd, "base"); base != "" {
		opts = append(opts, adapter.WithBaseDir(base))
	}
	if getBoolFlag(cmd, "yes") {
		opts = append(opts, adapter.WithAssumeYes())
	}
	return opts
}

func runNew(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	var selection string
	if len(args) > 0 {
		selection = args[0]
	}
	return d.Adapter.RequestNewProject(commandContext(cmd), selection, intentOptions(cmd)...)
}
