package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quickproject/qpc/internal/adapter"
	"github.com/quickproject/qpc/internal/cli/panel"
	"github.com/quickproject/qpc/internal/ui"
	"github.com/quickproject/qpc/pkg/models"
)

func TestNewCmd_HasFlags(t *testing.T) {
	for _, name := range []string{"name", "base", "yes"} {
		if newCmd.Flags().Lookup(name) == nil {
			t.Errorf("new command should have --%s flag", name)
		}
	}
	if err := newCmd.Args(newCmd, []string{"a", "b"}); err == nil {
		t.Error("new should accept at most one argument")
	}
}

func TestNewCmd_CreatesScaffold(t *testing.T) {
	env := newTestEnv(t, nil)
	setFlag(t, newCmd, "name", "api")
	setFlag(t, newCmd, "yes", "true")

	if err := newCmd.RunE(newCmd, []string{"express"}); err != nil {
		t.Fatalf("new RunE error = %v", err)
	}

	if len(env.prov.requests) != 1 {
		t.Fatalf("got %d provision requests, want 1", len(env.prov.requests))
	}
	req := env.prov.requests[0]
	if req.Kind() != models.KindScaffold {
		t.Errorf("Kind() = %v, want scaffold", req.Kind())
	}
	if want := filepath.Join("/ws", "api"); req.BasePath != want {
		t.Errorf("BasePath = %q, want %q", req.BasePath, want)
	}
	if !strings.Contains(env.messages.String(), `Express.js (Node.js) project "api" creation process has completed.`) {
		t.Errorf("messages = %q, want completion info", env.messages.String())
	}
}

func TestNewCmd_BaseAndHeadlessName(t *testing.T) {
	env := newTestEnv(t, map[string]string{ui.KeyProjectName: "site"})
	setFlag(t, newCmd, "base", "/projects")

	if err := newCmd.RunE(newCmd, []string{"express"}); err != nil {
		t.Fatalf("new RunE error = %v", err)
	}
	if got := env.prov.requests[0].BasePath; got != filepath.Join("/projects", "site") {
		t.Errorf("BasePath = %q, want /projects/site", got)
	}
}

func TestNewCmd_UnknownScaffoldIsReported(t *testing.T) {
	env := newTestEnv(t, nil)

	err := newCmd.RunE(newCmd, []string{"cobol"})
	if !errors.Is(err, adapter.ErrReported) {
		t.Fatalf("error = %v, want ErrReported", err)
	}
	if !strings.Contains(env.messages.String(), `Unknown project type "cobol"`) {
		t.Errorf("messages = %q", env.messages.String())
	}
	if len(env.prov.requests) != 0 {
		t.Error("nothing must be provisioned for an unknown scaffold")
	}
}

func TestNewCmd_HeadlessWithoutNameIsReported(t *testing.T) {
	env := newTestEnv(t, nil)

	err := newCmd.RunE(newCmd, []string{"express"})
	if !errors.Is(err, ui.ErrHeadlessNoDefault) || !errors.Is(err, adapter.ErrReported) {
		t.Fatalf("error = %v, want reported ErrHeadlessNoDefault", err)
	}
	if len(env.prov.requests) != 0 {
		t.Error("nothing must be provisioned without a name")
	}
}

func TestNewCmd_WithoutDependencies(t *testing.T) {
	SetDeps(nil)
	if err := newCmd.RunE(newCmd, []string{"express"}); err == nil {
		t.Fatal("new without dependencies should fail")
	}
}

func TestListCmd(t *testing.T) {
	newTestEnv(t, nil)
	buf := captureOutput(t, listCmd)

	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatalf("list RunE error = %v", err)
	}
	for _, want := range []string{"# Scaffolds", "`react-ts`", "`express`"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestListCmd_Filter(t *testing.T) {
	newTestEnv(t, nil)
	buf := captureOutput(t, listCmd)
	setFlag(t, listCmd, "filter", "express")

	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatalf("list RunE error = %v", err)
	}
	if !strings.Contains(buf.String(), "`express`") || strings.Contains(buf.String(), "`react-ts`") {
		t.Errorf("output = %q, want only matching entries", buf.String())
	}
}

func TestListCmd_NoMatch(t *testing.T) {
	newTestEnv(t, nil)
	buf := captureOutput(t, listCmd)
	setFlag(t, listCmd, "filter", "zzz-nothing")

	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatalf("list RunE error = %v", err)
	}
	if !strings.Contains(buf.String(), `No scaffolds match "zzz-nothing".`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTemplateCmd_HasSubcommands(t *testing.T) {
	expected := []string{"add", "use", "rm", "clear", "ls", "export", "import"}
	if got := len(templateCmd.Commands()); got != len(expected) {
		t.Errorf("template should have %d subcommands, got %d", len(expected), got)
	}
	for _, name := range expected {
		found := false
		for _, cmd := range templateCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("template should have %q subcommand", name)
		}
	}
}

func TestTemplateListCmd(t *testing.T) {
	env := newTestEnv(t, nil)
	buf := captureOutput(t, templateListCmd)

	if err := templateListCmd.RunE(templateListCmd, nil); err != nil {
		t.Fatalf("ls RunE error = %v", err)
	}
	if !strings.Contains(buf.String(), "No custom templates yet.") {
		t.Errorf("output = %q, want empty hint", buf.String())
	}

	buf.Reset()
	env.addTemplate(t, "Backend", "api", "worker")
	if err := templateListCmd.RunE(templateListCmd, nil); err != nil {
		t.Fatalf("ls RunE error = %v", err)
	}
	for _, want := range []string{"**Backend**", "`api`", "`worker`"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestTemplateUseCmd(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addTemplate(t, "Backend", "api", "worker")
	setFlag(t, templateUseCmd, "name", "shop")

	if err := templateUseCmd.RunE(templateUseCmd, []string{"Backend"}); err != nil {
		t.Fatalf("use RunE error = %v", err)
	}
	req := env.prov.requests[0]
	tpl, ok := req.Template()
	if !ok || tpl.Name != "Backend" || len(tpl.Projects) != 2 {
		t.Errorf("Template() = %+v, %v", tpl, ok)
	}
	if req.BasePath != filepath.Join("/ws", "shop") {
		t.Errorf("BasePath = %q", req.BasePath)
	}
}

func TestTemplateUseCmd_Missing(t *testing.T) {
	env := newTestEnv(t, nil)

	err := templateUseCmd.RunE(templateUseCmd, []string{"Nope"})
	if !errors.Is(err, adapter.ErrReported) {
		t.Fatalf("error = %v, want ErrReported", err)
	}
	if !strings.Contains(env.messages.String(), `Custom template "Nope" not found.`) {
		t.Errorf("messages = %q", env.messages.String())
	}
}

func TestTemplateRemoveCmd(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addTemplate(t, "Backend", "api")
	env.addTemplate(t, "Docs", "site")

	if err := templateRemoveCmd.RunE(templateRemoveCmd, []string{"Backend"}); err != nil {
		t.Fatalf("rm RunE error = %v", err)
	}
	list := env.deps.Templates.List()
	if len(list) != 1 || list[0].Name != "Docs" {
		t.Errorf("List() = %+v, want only Docs", list)
	}
}

func TestTemplateClearCmd(t *testing.T) {
	tests := []struct {
		name      string
		defaults  map[string]string
		yes       bool
		wantCount int
	}{
		{"declined", map[string]string{ui.KeyDeleteAll: adapter.AnswerNo}, false, 2},
		{"confirmed", map[string]string{ui.KeyDeleteAll: adapter.AnswerYes}, false, 0},
		{"assume yes", nil, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.defaults)
			env.addTemplate(t, "Backend", "api")
			env.addTemplate(t, "Docs", "site")
			if tt.yes {
				setFlag(t, templateClearCmd, "yes", "true")
			}

			if err := templateClearCmd.RunE(templateClearCmd, nil); err != nil {
				t.Fatalf("clear RunE error = %v", err)
			}
			if got := len(env.deps.Templates.List()); got != tt.wantCount {
				t.Errorf("templates left = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestTemplateExportImport(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "bundle.json")

	src := newTestEnv(t, nil)
	src.addTemplate(t, "Backend", "api", "worker")
	errBuf := captureOutput(t, templateExportCmd)
	setFlag(t, templateExportCmd, "format", "json")

	if err := templateExportCmd.RunE(templateExportCmd, []string{bundle}); err != nil {
		t.Fatalf("export RunE error = %v", err)
	}
	if !strings.Contains(errBuf.String(), "Exported 1 custom templates") {
		t.Errorf("export output = %q", errBuf.String())
	}
	data, err := os.ReadFile(bundle)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		t.Errorf("bundle is not JSON: %q", data)
	}

	dst := newTestEnv(t, nil)
	out := captureOutput(t, templateImportCmd)
	if err := templateImportCmd.RunE(templateImportCmd, []string{bundle}); err != nil {
		t.Fatalf("import RunE error = %v", err)
	}
	if !strings.Contains(out.String(), "Imported 1 custom templates: Backend") {
		t.Errorf("import output = %q", out.String())
	}
	if tpl, ok := dst.deps.Templates.Get("Backend"); !ok || len(tpl.Projects) != 2 {
		t.Errorf("Get(Backend) = %+v, %v", tpl, ok)
	}

	out.Reset()
	if err := templateImportCmd.RunE(templateImportCmd, []string{bundle}); err != nil {
		t.Fatalf("second import RunE error = %v", err)
	}
	if !strings.Contains(out.String(), "Skipped existing templates: Backend") {
		t.Errorf("second import output = %q", out.String())
	}

	setFlag(t, templateImportCmd, "on-conflict", "fail")
	if err := templateImportCmd.RunE(templateImportCmd, []string{bundle}); err == nil {
		t.Error("import with --on-conflict=fail should fail on an existing name")
	}
}

func TestTemplateExportCmd_Stdout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addTemplate(t, "Backend", "api")
	buf := captureOutput(t, templateExportCmd)

	if err := templateExportCmd.RunE(templateExportCmd, nil); err != nil {
		t.Fatalf("export RunE error = %v", err)
	}
	if !strings.Contains(buf.String(), "version: 1.0.0") || !strings.Contains(buf.String(), "name: Backend") {
		t.Errorf("output = %q, want YAML bundle", buf.String())
	}
}

func TestTemplateCmds_InvalidFlagValues(t *testing.T) {
	newTestEnv(t, nil)

	setFlag(t, templateExportCmd, "format", "toml")
	if err := templateExportCmd.RunE(templateExportCmd, nil); err == nil {
		t.Error("export with --format toml should fail")
	}

	setFlag(t, templateImportCmd, "on-conflict", "merge")
	if err := templateImportCmd.RunE(templateImportCmd, []string{"-"}); err == nil {
		t.Error("import with --on-conflict merge should fail")
	}
}

func TestPanelCmd_NeedsTerminal(t *testing.T) {
	newTestEnv(t, nil)

	if err := panelCmd.RunE(panelCmd, nil); !errors.Is(err, ErrPanelNeedsTerminal) {
		t.Errorf("error = %v, want ErrPanelNeedsTerminal", err)
	}
}

func TestPanelCmd_DispatchesUntilQuit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.deps.Headless.ForceHeadless(false)
	env.addTemplate(t, "Backend", "api")
	env.addTemplate(t, "Docs", "site")

	script := []panel.Selection{
		{Action: panel.ActionDeleteTemplate, Template: "Docs"},
		{Action: panel.ActionUseTemplate, Template: "Gone"},
		{Action: panel.ActionQuit},
	}
	calls := 0
	orig := runPanel
	runPanel = func(context.Context, *Dependencies) (panel.Selection, error) {
		sel := script[calls]
		calls++
		return sel, nil
	}
	t.Cleanup(func() { runPanel = orig })

	if err := panelCmd.RunE(panelCmd, nil); err != nil {
		t.Fatalf("panel RunE error = %v", err)
	}
	if calls != len(script) {
		t.Errorf("panel opened %d times, want %d", calls, len(script))
	}
	list := env.deps.Templates.List()
	if len(list) != 1 || list[0].Name != "Backend" {
		t.Errorf("List() = %+v, want only Backend", list)
	}
	if !strings.Contains(env.messages.String(), `Custom template "Gone" not found.`) {
		t.Errorf("messages = %q, a failed action must be reported and keep the panel open", env.messages.String())
	}
}

func TestPanelCmd_ReturnsPanelError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.deps.Headless.ForceHeadless(false)

	boom := errors.New("terminal gone")
	orig := runPanel
	runPanel = func(context.Context, *Dependencies) (panel.Selection, error) {
		return panel.Selection{}, boom
	}
	t.Cleanup(func() { runPanel = orig })

	if err := panelCmd.RunE(panelCmd, nil); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestDispatchPanel_UnknownAction(t *testing.T) {
	env := newTestEnv(t, nil)

	err := dispatchPanel(context.Background(), env.deps.Adapter, panel.Selection{Action: panel.Action(42)})
	if err == nil {
		t.Fatal("dispatchPanel() with an unknown action should fail")
	}
}
