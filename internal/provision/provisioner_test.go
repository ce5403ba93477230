package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/quickproject/qpc/internal/session"
	"github.com/quickproject/qpc/pkg/models"
)

// fakeSession closes as soon as a command is submitted, with the status
// configured on its host for its directory.
type fakeSession struct {
	host   *fakeHost
	id     string
	dir    string
	name   string
	status session.ExitStatus
	done   chan struct{}
	once   sync.Once
}

func (s *fakeSession) ID() string   { return s.id }
func (s *fakeSession) Name() string { return s.name }

func (s *fakeSession) Rename(_ context.Context, name string) error {
	s.host.record("rename %s %s", s.id, name)
	s.name = name
	return nil
}

func (s *fakeSession) Submit(_ context.Context, text string) error {
	s.host.record("submit %s %s", s.id, text)
	if s.host.holdOpen {
		return nil
	}
	s.once.Do(func() {
		s.status = s.host.statusFor(s.dir)
		close(s.done)
	})
	return nil
}

func (s *fakeSession) Show(context.Context) error { return nil }

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) ExitStatus() session.ExitStatus { return s.status }

type fakeHost struct {
	mu       sync.Mutex
	events   []string
	statuses map[string]session.ExitStatus
	openErr  error
	holdOpen bool
	count    int
}

func newFakeHost() *fakeHost {
	return &fakeHost{statuses: make(map[string]session.ExitStatus)}
}

func (h *fakeHost) record(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, fmt.Sprintf(format, args...))
}

func (h *fakeHost) statusFor(dir string) session.ExitStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.statuses[dir]; ok {
		return st
	}
	return session.ExitStatus{Code: 0, Known: true}
}

func (h *fakeHost) newSession(name, dir string) *fakeSession {
	h.mu.Lock()
	id := fmt.Sprintf("s%d", h.count)
	h.count++
	h.mu.Unlock()
	return &fakeSession{host: h, id: id, dir: dir, name: name, done: make(chan struct{})}
}

func (h *fakeHost) Open(_ context.Context, name, dir string) (session.Session, error) {
	if h.openErr != nil {
		return nil, h.openErr
	}
	s := h.newSession(name, dir)
	h.record("open %s %s %s", s.id, name, dir)
	return s, nil
}

func (h *fakeHost) Split(_ context.Context, from session.Session, name, dir string) (session.Session, error) {
	s := h.newSession(name, dir)
	h.record("split %s from %s %s", s.id, from.ID(), dir)
	return s, nil
}

type recordingReporter struct {
	reports []models.ProvisionProgress
}

func (r *recordingReporter) Report(p models.ProvisionProgress) {
	r.reports = append(r.reports, p)
}

func newTestProvisioner(fs afero.Fs, host session.Host, states *[]State, opts ...Option) *Provisioner {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithStateHook(func(_ models.ProvisionRequest, s State) {
			*states = append(*states, s)
		}),
	}
	return New(fs, host, append(base, opts...)...)
}

var reactTS = models.ScaffoldDefinition{
	ID:      "react-ts",
	Label:   "React (TypeScript)",
	Command: "npx create-react-app . --template typescript",
	Icon:    "react.svg",
}

func TestProvision_Single_Success(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	host := newFakeHost()
	var states []State
	p := newTestProvisioner(fs, host, &states)
	rep := &recordingReporter{}

	target := "/work/my-app"
	res, err := p.Provision(context.Background(), models.NewScaffoldRequest(reactTS, target, ""), rep)
	if err != nil {
		t.Fatalf("Provision() error: %v", err)
	}

	if res.State != StateCompleted {
		t.Errorf("State = %v, want completed", res.State)
	}
	if ok, _ := afero.DirExists(fs, target); !ok {
		t.Errorf("target %s was not created", target)
	}

	wantEvents := []string{
		"open s0 Quick Project Creator - React (TypeScript) /work/my-app",
		`submit s0 npx create-react-app . --template typescript && echo "Command execution finished" && exit`,
	}
	if diff := cmp.Diff(wantEvents, host.events); diff != "" {
		t.Errorf("host events mismatch (-want +got):\n%s", diff)
	}

	wantReports := []models.ProvisionProgress{{Increment: 100, Message: "Project created successfully."}}
	if diff := cmp.Diff(wantReports, rep.reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}

	wantStates := []State{StateDirectoryPrepared, StateSessionsLaunched, StateAwaitingCompletion, StateCompleted}
	if diff := cmp.Diff(wantStates, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestProvision_Single_Failure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  session.ExitStatus
		wantMsg string
	}{
		{name: "non-zero", status: session.ExitStatus{Code: 127, Known: true}, wantMsg: "Command failed with exit code 127"},
		{name: "missing", status: session.ExitStatus{}, wantMsg: "Command failed with exit code unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			host := newFakeHost()
			host.statuses["/w/app"] = tt.status
			var states []State
			p := newTestProvisioner(fs, host, &states)
			rep := &recordingReporter{}

			res, err := p.Provision(context.Background(), models.NewScaffoldRequest(reactTS, "/w/app", ""), rep)
			if !errors.Is(err, ErrCommandFailed) {
				t.Fatalf("Provision() error = %v, want ErrCommandFailed", err)
			}
			var cfe *CommandFailedError
			if !errors.As(err, &cfe) || cfe.Status != tt.status {
				t.Errorf("CommandFailedError status = %+v, want %+v", cfe, tt.status)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
			if res.State != StateFailed {
				t.Errorf("State = %v, want failed", res.State)
			}
			if len(rep.reports) != 0 {
				t.Errorf("expected no progress on failure, got %v", rep.reports)
			}
		})
	}
}

func TestProvision_Single_DirectoryError(t *testing.T) {
	t.Parallel()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	host := newFakeHost()
	var states []State
	p := newTestProvisioner(fs, host, &states)

	res, err := p.Provision(context.Background(), models.NewScaffoldRequest(reactTS, "/w/app", ""), nil)
	var dce *DirectoryCreationError
	if !errors.As(err, &dce) {
		t.Fatalf("Provision() error = %v, want *DirectoryCreationError", err)
	}
	if dce.Path != "/w/app" {
		t.Errorf("Path = %q, want /w/app", dce.Path)
	}
	if !errors.Is(err, ErrDirectoryCreation) {
		t.Error("expected errors.Is(err, ErrDirectoryCreation)")
	}
	if res.State != StateFailed {
		t.Errorf("State = %v, want failed", res.State)
	}
	if len(host.events) != 0 {
		t.Errorf("no session may open after a directory failure, got %v", host.events)
	}
}

func TestProvision_Single_OpenError(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.openErr = session.ErrTmuxUnavailable
	var states []State
	p := newTestProvisioner(afero.NewMemMapFs(), host, &states)

	_, err := p.Provision(context.Background(), models.NewScaffoldRequest(reactTS, "/w/app", ""), nil)
	if !errors.Is(err, session.ErrTmuxUnavailable) {
		t.Errorf("Provision() error = %v, want ErrTmuxUnavailable", err)
	}
}

func TestProvision_Single_ContextCancelled(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.holdOpen = true
	var states []State
	p := newTestProvisioner(afero.NewMemMapFs(), host, &states)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := p.Provision(ctx, models.NewScaffoldRequest(reactTS, "/w/app", ""), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Provision() error = %v, want context.Canceled", err)
	}
	if res.State != StateFailed {
		t.Errorf("State = %v, want failed", res.State)
	}
}

func fullstackTemplate() models.CustomTemplate {
	return models.CustomTemplate{
		Name: "Fullstack",
		Projects: []models.ScaffoldDefinition{
			{ID: "frontend", Label: "Vue", Command: "npm create vue@latest ."},
			{ID: "backend", Label: "Express", Command: "npx express-generator ."},
			{ID: "docs", Label: "Docusaurus", Command: "npx create-docusaurus@latest . classic"},
		},
	}
}

func TestProvision_Template_Success(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	host := newFakeHost()
	var states []State
	p := newTestProvisioner(fs, host, &states)
	rep := &recordingReporter{}

	base := "/w/stack"
	res, err := p.Provision(context.Background(), models.NewTemplateRequest(fullstackTemplate(), base, ""), rep)
	if err != nil {
		t.Fatalf("Provision() error: %v", err)
	}

	for _, id := range []string{"frontend", "backend", "docs"} {
		if ok, _ := afero.DirExists(fs, filepath.Join(base, id)); !ok {
			t.Errorf("sub-directory %s not created", id)
		}
	}
	if len(res.Directories) != 3 {
		t.Errorf("Directories = %v, want 3 entries", res.Directories)
	}

	wantEvents := []string{
		"open s0 Quick Project Creator - Vue /w/stack/frontend",
		`submit s0 cd '/w/stack/frontend' && npm create vue@latest . && echo "Command execution finished" && exit`,
		"split s1 from s0 /w/stack/backend",
		"rename s1 Quick Project Creator - Express",
		`submit s1 cd '/w/stack/backend' && npx express-generator . && echo "Command execution finished" && exit`,
		"split s2 from s0 /w/stack/docs",
		"rename s2 Quick Project Creator - Docusaurus",
		`submit s2 cd '/w/stack/docs' && npx create-docusaurus@latest . classic && echo "Command execution finished" && exit`,
	}
	if diff := cmp.Diff(wantEvents, host.events); diff != "" {
		t.Errorf("host events mismatch (-want +got):\n%s", diff)
	}

	third := 100.0 / 3
	wantReports := []models.ProvisionProgress{
		{Increment: third, Message: "Created Vue project (1/3)"},
		{Increment: third, Message: "Created Express project (2/3)"},
		{Increment: third, Message: "Created Docusaurus project (3/3)"},
	}
	if diff := cmp.Diff(wantReports, rep.reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %v, want completed", res.State)
	}
}

func TestProvision_Template_IgnoresChildExitByDefault(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.statuses["/w/stack/backend"] = session.ExitStatus{Code: 1, Known: true}
	var states []State
	p := newTestProvisioner(afero.NewMemMapFs(), host, &states)
	rep := &recordingReporter{}

	res, err := p.Provision(context.Background(), models.NewTemplateRequest(fullstackTemplate(), "/w/stack", ""), rep)
	if err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %v, want completed", res.State)
	}
	if len(rep.reports) != 3 {
		t.Errorf("reports = %d, want 3", len(rep.reports))
	}
	if res.Statuses[1].Code != 1 {
		t.Errorf("Statuses[1] = %+v, want code 1 recorded", res.Statuses[1])
	}
}

func TestProvision_Template_CheckChildExit(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.statuses["/w/stack/backend"] = session.ExitStatus{Code: 1, Known: true}
	host.statuses["/w/stack/docs"] = session.ExitStatus{}
	var states []State
	p := newTestProvisioner(afero.NewMemMapFs(), host, &states, WithCheckChildExit(true))
	rep := &recordingReporter{}

	res, err := p.Provision(context.Background(), models.NewTemplateRequest(fullstackTemplate(), "/w/stack", ""), rep)
	var cfe *ChildFailuresError
	if !errors.As(err, &cfe) {
		t.Fatalf("Provision() error = %v, want *ChildFailuresError", err)
	}
	want := []ChildFailure{
		{ID: "backend", Label: "Express", Status: session.ExitStatus{Code: 1, Known: true}},
		{ID: "docs", Label: "Docusaurus", Status: session.ExitStatus{}},
	}
	if diff := cmp.Diff(want, cfe.Failures); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
	if len(rep.reports) != 3 {
		t.Errorf("progress must still be reported for every project, got %d", len(rep.reports))
	}
	if res.State != StateFailed {
		t.Errorf("State = %v, want failed", res.State)
	}
}

func TestProvision_Template_Empty(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	var states []State
	p := newTestProvisioner(afero.NewMemMapFs(), host, &states)

	_, err := p.Provision(context.Background(), models.NewTemplateRequest(models.CustomTemplate{Name: "Empty"}, "/w/e", ""), nil)
	if !errors.Is(err, ErrEmptyTemplate) {
		t.Errorf("Provision() error = %v, want ErrEmptyTemplate", err)
	}
	if len(host.events) != 0 {
		t.Errorf("expected no sessions, got %v", host.events)
	}
}

func TestProvision_Template_EscapingID(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	host := newFakeHost()
	var states []State
	p := newTestProvisioner(fs, host, &states)

	tmpl := models.CustomTemplate{
		Name:     "Bad",
		Projects: []models.ScaffoldDefinition{{ID: "../outside", Label: "Vue", Command: "true"}},
	}
	_, err := p.Provision(context.Background(), models.NewTemplateRequest(tmpl, "/w/bad", ""), nil)
	if !errors.Is(err, ErrDirectoryCreation) {
		t.Errorf("Provision() error = %v, want ErrDirectoryCreation", err)
	}
	if ok, _ := afero.DirExists(fs, "/w/outside"); ok {
		t.Error("directory outside the base was created")
	}
}

func TestProvision_Template_ShellCharactersInDirectory(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "stack")
	host := session.NewExecHost(session.WithOutput(io.Discard))
	var states []State
	p := newTestProvisioner(afero.NewOsFs(), host, &states, WithCheckChildExit(true))

	tmpl := models.CustomTemplate{
		Name:     "Legacy",
		Projects: []models.ScaffoldDefinition{{ID: "api$v2 `x` it's", Label: "Touch", Command: "touch created"}},
	}
	res, err := p.Provision(context.Background(), models.NewTemplateRequest(tmpl, base, ""), nil)
	if err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %v, want %v", res.State, StateCompleted)
	}
	if _, err := os.Stat(filepath.Join(base, "api$v2 `x` it's", "created")); err != nil {
		t.Errorf("command did not run inside the project directory: %v", err)
	}
}

func TestShellQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "/w/stack/web", want: `'/w/stack/web'`},
		{in: "/w/api$v2", want: `'/w/api$v2'`},
		{in: "/w/`id`", want: "'/w/`id`'"},
		{in: "/w/it's", want: `'/w/it'\''s'`},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPrepareTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		exists     bool
		answer     bool
		wantErr    error
		wantAsked  bool
		wantExists bool
	}{
		{name: "absent", exists: false, wantErr: nil, wantAsked: false, wantExists: false},
		{name: "declined", exists: true, answer: false, wantErr: ErrAborted, wantAsked: true, wantExists: true},
		{name: "accepted", exists: true, answer: true, wantErr: nil, wantAsked: true, wantExists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			target := "/w/app"
			if tt.exists {
				if err := afero.WriteFile(fs, filepath.Join(target, "keep.txt"), []byte("original"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			asked := false
			err := PrepareTarget(fs, target, func() (bool, error) {
				asked = true
				return tt.answer, nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PrepareTarget() error = %v, want %v", err, tt.wantErr)
			}
			if asked != tt.wantAsked {
				t.Errorf("asked = %v, want %v", asked, tt.wantAsked)
			}
			exists, _ := afero.DirExists(fs, target)
			if exists != tt.wantExists {
				t.Errorf("target exists = %v, want %v", exists, tt.wantExists)
			}
			if tt.wantExists {
				data, err := afero.ReadFile(fs, filepath.Join(target, "keep.txt"))
				if err != nil || string(data) != "original" {
					t.Errorf("existing content changed: %q, %v", data, err)
				}
			}
		})
	}
}

func TestPrepareTarget_ConfirmError(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/w/app", 0o755); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("prompt closed")
	if err := PrepareTarget(fs, "/w/app", func() (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Errorf("PrepareTarget() error = %v, want %v", err, boom)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := map[State]string{
		StateIdle:               "idle",
		StateDirectoryPrepared:  "directory-prepared",
		StateSessionsLaunched:   "sessions-launched",
		StateAwaitingCompletion: "awaiting-completion",
		StateCompleted:          "completed",
		StateFailed:             "failed",
		State(42):               "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
	if !StateCompleted.Terminal() || !StateFailed.Terminal() || StateAwaitingCompletion.Terminal() {
		t.Error("Terminal() mismatch")
	}
}
