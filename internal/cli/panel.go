package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickproject/qpc/internal/adapter"
	"github.com/quickproject/qpc/internal/cli/panel"
)

// ErrPanelNeedsTerminal is returned when the panel is opened without an
// interactive terminal.
var ErrPanelNeedsTerminal = errors.New("cli: the panel needs an interactive terminal")

// runPanel shows the panel once. Replaced in tests.
var runPanel = func(ctx context.Context, d *Dependencies) (panel.Selection, error) {
	return panel.Run(ctx, d.Templates, d.Theme)
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive template panel",
	Long: `Open the interactive panel listing custom templates with the New Project,
New Boilerplate, Use, Delete and Delete All actions.

The list refreshes when another qpc process changes the templates. The
panel reopens after each action until you quit.`,
	Args: cobra.NoArgs,
	RunE: runPanelCmd,
}

func init() {
	rootCmd.AddCommand(panelCmd)
}

func runPanelCmd(cmd *cobra.Command, _ []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	if d.Headless.IsHeadless() {
		return ErrPanelNeedsTerminal
	}

	ctx := commandContext(cmd)
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.WatchTemplates(watchCtx)

	for {
		sel, err := runPanel(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if sel.Action == panel.ActionQuit {
			return nil
		}
		if err := dispatchPanel(ctx, d.Adapter, sel); err != nil && !errors.Is(err, adapter.ErrReported) {
			return err
		}
	}
}

// dispatchPanel runs the intent for a panel selection. Errors already shown
// to the user keep the panel open.
func dispatchPanel(ctx context.Context, a *adapter.Adapter, sel panel.Selection) error {
	switch sel.Action {
	case panel.ActionNewProject:
		return a.RequestNewProject(ctx, "")
	case panel.ActionNewTemplate:
		return a.RequestNewCustomTemplateWizard(ctx)
	case panel.ActionUseTemplate:
		return a.RequestUseTemplate(ctx, sel.Template)
	case panel.ActionDeleteTemplate:
		return a.RequestDeleteTemplate(ctx, sel.Template)
	case panel.ActionDeleteAll:
		return a.RequestDeleteAllTemplates(ctx)
	default:
		return fmt.Errorf("unknown panel action %v", sel.Action)
	}
}
