package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickproject/qpc/internal/config"
	"github.com/quickproject/qpc/internal/paths"
	"github.com/quickproject/qpc/pkg/version"
)

// skipDepsAnnotation marks commands that run without the composition root.
const skipDepsAnnotation = "qpc/skip-deps"

var rootCmd = &cobra.Command{
	Use:   "qpc",
	Short: "Quick Project Creator: scaffold projects from a catalog or custom templates",
	Long: `Quick Project Creator (qpc) creates new projects by running well-known
scaffolding commands in a fresh directory, inside a tmux pane when one is
available or a plain shell otherwise.

Custom templates bundle several scaffolds that are created side by side
under one directory, each in its own session.`,
	Version:           version.GetVersion(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRootDeps,
}

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-format":      "log.format",
	"no-color":        "ui.no_color",
	"non-interactive": "ui.non_interactive",
	"host":            "session.host",
	"store":           "store.backend",
}

// Execute runs the root command and releases dependencies afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if d := GetDeps(); d != nil {
			_ = d.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("qpc %s\n", version.GetFullVersion()))

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: $XDG_CONFIG_HOME/qpc/config.yaml)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")
	pf.Bool("no-color", false, "Disable colors and animations")
	pf.Bool("non-interactive", false, "Never prompt; answer from headless defaults")
	pf.String("host", "", "Session host: auto, tmux or exec")
	pf.String("store", "", "Template store backend: file or sqlite")
}

// initRootDeps loads the configuration and builds the composition root
// unless dependencies were already injected.
func initRootDeps(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipDepsAnnotation] == "true" || deps != nil {
		return nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	d, err := InitDependencies(commandContext(cmd), cfg)
	if err != nil {
		return err
	}
	SetDeps(d)
	return nil
}

// loadConfig reads the config file and applies changed persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := config.LoadOptions{
		File:      getStringFlag(cmd, "config"),
		Overrides: map[string]any{},
	}
	if opts.File != "" {
		opts.Explicit = true
	} else {
		opts.File = paths.Default().ConfigFile()
	}

	flags := cmd.Flags()
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if f.Value.Type() == "bool" {
			opts.Overrides[key] = getBoolFlag(cmd, name)
		} else {
			opts.Overrides[key] = f.Value.String()
		}
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// getStringFlag retrieves a string flag value from the command.
func getStringFlag(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return val
}

// getBoolFlag retrieves a bool flag value from the command.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return val
}

// commandContext returns the command context, falling back to Background
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
