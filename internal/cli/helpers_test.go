package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/quickproject/qpc/internal/adapter"
	"github.com/quickproject/qpc/internal/config"
	"github.com/quickproject/qpc/internal/kv"
	"github.com/quickproject/qpc/internal/provision"
	"github.com/quickproject/qpc/internal/templates"
	"github.com/quickproject/qpc/internal/ui"
	"github.com/quickproject/qpc/pkg/models"
)

// fakeProvisioner records requests instead of running scaffold commands.
type fakeProvisioner struct {
	mu       sync.Mutex
	requests []models.ProvisionRequest
}

func (f *fakeProvisioner) Provision(_ context.Context, req models.ProvisionRequest, rep provision.Reporter) (*provision.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	rep.Report(models.ProvisionProgress{Increment: 100, Message: provision.SingleSuccessMessage})
	return &provision.Result{State: provision.StateCompleted}, nil
}

type discardProgress struct{}

func (discardProgress) Start(string) ui.Reporter { return discardReporter{} }

type discardReporter struct{}

func (discardReporter) Report(models.ProvisionProgress) {}
func (discardReporter) Done()                           {}

// testEnv is a headless composition root backed by a temporary file store
// and an in-memory filesystem rooted at /ws.
type testEnv struct {
	deps     *Dependencies
	prov     *fakeProvisioner
	fs       afero.Fs
	messages *bytes.Buffer
}

func newTestEnv(t *testing.T, headlessDefaults map[string]string) *testEnv {
	t.Helper()

	backend := kv.NewFileStore(filepath.Join(t.TempDir(), "templates.yaml"))
	store := templates.NewStore(backend)
	store.Load(context.Background())

	theme := ui.NewTheme(true)
	hm := ui.NewHeadlessManager()
	hm.ForceHeadless(true)
	hm.SetDefaults(headlessDefaults)

	messages := new(bytes.Buffer)
	prompter := ui.NewHeadlessPrompter(theme, hm, messages)
	prov := &fakeProvisioner{}
	fs := afero.NewMemMapFs()

	cfg := config.NewDefaultConfig()
	cfg.Store.Watch = false

	d := &Dependencies{
		Config:    cfg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Theme:     theme,
		Headless:  hm,
		Prompter:  prompter,
		Progress:  discardProgress{},
		Backend:   backend,
		Templates: store,
		Adapter:   adapter.New(store, prov, prompter, discardProgress{}, fs, adapter.WithWorkspace("/ws")),
	}
	SetDeps(d)
	t.Cleanup(func() {
		SetDeps(nil)
		_ = backend.Close()
	})
	return &testEnv{deps: d, prov: prov, fs: fs, messages: messages}
}

func (e *testEnv) addTemplate(t *testing.T, name string, ids ...string) {
	t.Helper()
	tpl := models.CustomTemplate{Name: name}
	for _, id := range ids {
		tpl.Projects = append(tpl.Projects, models.ScaffoldDefinition{ID: id, Label: "Express", Command: "npx express-generator " + id})
	}
	if err := e.deps.Templates.Add(context.Background(), tpl); err != nil {
		t.Fatalf("add template %q: %v", name, err)
	}
}

// setFlag sets a flag for the duration of the test.
func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	// Merges persistent flags into Flags() as command execution does.
	cmd.InheritedFlags()
	f := cmd.Flags().Lookup(name)
	if f == nil {
		t.Fatalf("flag --%s not found on %s", name, cmd.Name())
	}
	if err := cmd.Flags().Set(name, value); err != nil {
		t.Fatalf("set --%s: %v", name, err)
	}
	t.Cleanup(func() {
		_ = cmd.Flags().Set(name, f.DefValue)
		f.Changed = false
	})
}

// captureOutput routes the command output to a buffer.
func captureOutput(t *testing.T, cmd *cobra.Command) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	return buf
}
