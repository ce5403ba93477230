// Package cli provides the Cobra command tree and dependency injection
// wiring for the qpc CLI. This file defines the Dependencies struct
// (Composition Root) that wires all domain modules together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/quickproject/qpc/internal/adapter"
	"github.com/quickproject/qpc/internal/config"
	"github.com/quickproject/qpc/internal/kv"
	"github.com/quickproject/qpc/internal/paths"
	"github.com/quickproject/qpc/internal/provision"
	"github.com/quickproject/qpc/internal/session"
	"github.com/quickproject/qpc/internal/templates"
	"github.com/quickproject/qpc/internal/ui"
	"github.com/quickproject/qpc/pkg/models"
)

// Dependencies holds all domain-level services used by CLI commands.
// This is the Composition Root: the only place where concrete types
// are instantiated and wired together.
type Dependencies struct {
	Config    *config.Config
	Logger    *slog.Logger
	Theme     *ui.Theme
	Headless  *ui.HeadlessManager
	Prompter  ui.Prompter
	Progress  ui.Progress
	Backend   kv.Store
	Templates *templates.Store
	Host      session.Host
	Adapter   *adapter.Adapter
}

// deps is the global dependencies instance, initialized by InitDependencies
// or injected with SetDeps.
var deps *Dependencies

// InitDependencies creates and wires all domain dependencies from cfg.
func InitDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	logger := newLogger(cfg.Log, os.Stderr)

	_, noColorEnv := os.LookupEnv("NO_COLOR")
	theme := ui.NewTheme(cfg.UI.NoColor || noColorEnv)

	hm := ui.NewHeadlessManager()
	if cfg.UI.NonInteractive {
		hm.ForceHeadless(true)
	}
	hm.SetDefaults(cfg.Headless)

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = paths.Default().StoreFile(cfg.Store.Backend)
	}
	backend, err := kv.Open(ctx, cfg.Store.Backend, storePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open template store: %w", err)
	}
	store := templates.NewStore(backend, templates.WithLogger(logger))
	store.Load(ctx)

	host, err := session.Resolve(session.ResolveOptions{
		Mode:        cfg.Session.Host,
		Interactive: !hm.IsHeadless(),
		Tmux: []session.TmuxOption{
			session.WithTmuxLogger(logger),
			session.WithMaxVisible(cfg.Session.MaxVisible),
			session.WithPollInterval(cfg.Session.PollInterval),
			session.WithNamePrefix(cfg.Session.NamePrefix),
		},
		Exec: []session.ExecOption{
			session.WithExecLogger(logger),
			session.WithShell(cfg.Session.Shell),
			session.WithOutput(os.Stdout),
		},
		Logger: logger,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("resolve session host: %w", err)
	}

	workspace := cfg.Workspace.Dir
	if workspace == "" {
		if workspace, err = os.Getwd(); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}

	fs := afero.NewOsFs()
	prov := provision.New(fs, host,
		provision.WithLogger(logger),
		provision.WithCheckChildExit(cfg.Provision.CheckChildExit),
		provision.WithStateHook(stateLogger(logger)),
	)

	prompter := ui.NewPrompter(theme, hm)
	progress := ui.NewProgress(theme, hm)

	return &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Theme:     theme,
		Headless:  hm,
		Prompter:  prompter,
		Progress:  progress,
		Backend:   backend,
		Templates: store,
		Host:      host,
		Adapter: adapter.New(store, prov, prompter, progress, fs,
			adapter.WithLogger(logger),
			adapter.WithWorkspace(workspace),
		),
	}, nil
}

// GetDeps returns the current Dependencies instance.
// Returns nil if no dependencies have been initialized.
func GetDeps() *Dependencies {
	return deps
}

// SetDeps replaces the global dependencies (used for testing).
func SetDeps(d *Dependencies) {
	deps = d
}

// Close releases the store backend.
func (d *Dependencies) Close() error {
	if d == nil || d.Backend == nil {
		return nil
	}
	return d.Backend.Close()
}

// WatchTemplates reloads the template list when another process changes the
// store, until ctx is done. It is a no-op when store.watch is off.
func (d *Dependencies) WatchTemplates(ctx context.Context) {
	if d.Config != nil && !d.Config.Store.Watch {
		return
	}
	if err := d.Templates.Watch(ctx); err != nil {
		d.Logger.Warn("template store watch unavailable", "error", err)
	}
}

// requireDeps returns the dependencies or an error when they were never set.
func requireDeps() (*Dependencies, error) {
	if deps == nil {
		return nil, errors.New("dependencies not initialized")
	}
	return deps, nil
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// stateLogger traces provisioning state transitions at debug level.
func stateLogger(logger *slog.Logger) func(models.ProvisionRequest, provision.State) {
	logger = logger.With("module", "provision")
	return func(req models.ProvisionRequest, s provision.State) {
		logger.Debug("provision state", "kind", req.Kind().String(), "base", req.BasePath, "state", s.String())
	}
}
