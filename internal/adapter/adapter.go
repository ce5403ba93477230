// Package adapter turns user gestures into catalog, template store and
// provisioner calls. Every error ends here as one user-visible message.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/quickproject/qpc/internal/catalog"
	"github.com/quickproject/qpc/internal/provision"
	"github.com/quickproject/qpc/internal/templates"
	"github.com/quickproject/qpc/internal/ui"
	"github.com/quickproject/qpc/pkg/models"
)

// Answer buttons for confirmation warnings.
const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// ErrReported marks an error that has already been shown to the user.
var ErrReported = errors.New("adapter: error reported")

// ReportedError wraps an error after its message was shown.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

// Unwrap returns the reported error.
func (e *ReportedError) Unwrap() []error { return []error{e.Err, ErrReported} }

// TemplateStore is the subset of the template store the adapter uses.
type TemplateStore interface {
	List() []models.CustomTemplate
	Get(name string) (models.CustomTemplate, bool)
	Add(ctx context.Context, t models.CustomTemplate) error
	Remove(ctx context.Context, name string) error
	RemoveAll(ctx context.Context) error
}

// Provisioner runs provisioning requests.
type Provisioner interface {
	Provision(ctx context.Context, req models.ProvisionRequest, rep provision.Reporter) (*provision.Result, error)
}

// Adapter dispatches user intents.
type Adapter struct {
	store     TemplateStore
	prov      Provisioner
	prompter  ui.Prompter
	progress  ui.Progress
	fs        afero.Fs
	workspace string
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// WithWorkspace sets the folder new projects are created in. Defaults to
// the working directory.
func WithWorkspace(dir string) Option {
	return func(a *Adapter) {
		if dir != "" {
			a.workspace = dir
		}
	}
}

// New creates an Adapter.
func New(store TemplateStore, prov Provisioner, prompter ui.Prompter, progress ui.Progress, fs afero.Fs, opts ...Option) *Adapter {
	a := &Adapter{
		store:     store,
		prov:      prov,
		prompter:  prompter,
		progress:  progress,
		fs:        fs,
		workspace: ".",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("module", "adapter")
	return a
}

// Templates returns the current custom templates.
func (a *Adapter) Templates() []models.CustomTemplate {
	return a.store.List()
}

// IntentOption pre-answers prompts of a provisioning intent.
type IntentOption func(*intent)

type intent struct {
	name      string
	base      string
	assumeYes bool
}

// WithProjectName skips the project name prompt.
func WithProjectName(name string) IntentOption {
	return func(i *intent) { i.name = name }
}

// WithBaseDir creates the project under dir instead of the workspace.
func WithBaseDir(dir string) IntentOption {
	return func(i *intent) { i.base = dir }
}

// WithAssumeYes answers every confirmation with Yes.
func WithAssumeYes() IntentOption {
	return func(i *intent) { i.assumeYes = true }
}

func buildIntent(opts []IntentOption) intent {
	var i intent
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

// RequestNewProject creates a project from the catalog scaffold with id
// selection. An empty selection asks the user to pick one.
func (a *Adapter) RequestNewProject(ctx context.Context, selection string, opts ...IntentOption) error {
	var (
		s   models.ScaffoldDefinition
		err error
	)
	if selection == "" {
		s, err = a.chooseScaffold(ctx, ui.Field{Key: ui.KeyScaffold, Title: "Select a project to create"}, categoryLabel)
		if err != nil {
			return a.fail("", err)
		}
		if s.ID == "" {
			return nil
		}
	} else {
		var ok bool
		s, ok = catalog.Lookup(selection)
		if !ok {
			return a.fail("", fmt.Errorf("Unknown project type %q. Run `qpc list` to see the catalog.", selection))
		}
	}

	return a.create(ctx, s.Label, func(path string) models.ProvisionRequest {
		return models.NewScaffoldRequest(s, path, s.Label)
	}, buildIntent(opts))
}

// RequestUseTemplate creates a project from the custom template name. A
// missing template is reported before any directory is touched.
func (a *Adapter) RequestUseTemplate(ctx context.Context, name string, opts ...IntentOption) error {
	t, ok := a.store.Get(name)
	if !ok {
		return a.fail("", &provision.MissingTemplateError{Name: name})
	}
	return a.create(ctx, t.Name, func(path string) models.ProvisionRequest {
		return models.NewTemplateRequest(t, path, t.Name)
	}, buildIntent(opts))
}

// create runs the shared new-project flow: name prompt, overwrite policy,
// provisioning with progress and the final message.
func (a *Adapter) create(ctx context.Context, label string, build func(path string) models.ProvisionRequest, in intent) error {
	name := in.name
	if name == "" {
		var err error
		name, err = a.prompter.Input(ctx, ui.Field{
			Key:         ui.KeyProjectName,
			Title:       fmt.Sprintf("Enter the name for your %s project", label),
			Placeholder: Placeholder(label),
		})
		if err != nil {
			return a.fail("", err)
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if err := templates.CheckDirName(name); err != nil {
		return a.fail("", err)
	}

	base := a.workspace
	if in.base != "" {
		base = in.base
	}
	path := filepath.Join(base, name)

	err := provision.PrepareTarget(a.fs, path, func() (bool, error) {
		if in.assumeYes {
			return true, nil
		}
		answer, err := a.prompter.Warn(ctx, ui.Field{
			Key:   ui.KeyOverwrite,
			Title: fmt.Sprintf("A directory named %q already exists. Do you want to overwrite it?", name),
		}, AnswerYes, AnswerNo)
		return answer == AnswerYes, err
	})
	if err != nil {
		return a.fail("Failed to create project", err)
	}

	req := build(path)
	rep := a.progress.Start(fmt.Sprintf("Creating %s project", label))
	_, err = a.prov.Provision(ctx, req, rep)
	rep.Done()
	if err != nil {
		return a.fail("Failed to create project", err)
	}

	a.prompter.Info(fmt.Sprintf("%s project %q creation process has completed.", label, name))
	return nil
}

// RequestNewCustomTemplateWizard asks for a template name and its projects
// and saves the template when at least one project was added.
func (a *Adapter) RequestNewCustomTemplateWizard(ctx context.Context) error {
	name, err := a.prompter.Input(ctx, ui.Field{
		Key:         ui.KeyTemplateName,
		Title:       "Enter a name for your custom template",
		Placeholder: "My Custom Template",
	})
	if err != nil {
		return a.fail("", err)
	}
	if strings.TrimSpace(name) == "" {
		return nil
	}

	var (
		projects []models.ScaffoldDefinition
		rejected string
	)
	for {
		child, err := a.prompter.Input(ctx, ui.Field{
			Key:         ui.KeyChildName,
			Title:       "Enter a name for the project",
			Placeholder: "frontend",
		})
		if err != nil {
			return a.fail("", err)
		}
		child = strings.TrimSpace(child)
		if child == "" {
			break
		}

		var reason string
		if err := templates.CheckDirName(child); err != nil {
			reason = err.Error()
		} else if hasProject(projects, child) {
			reason = fmt.Sprintf("A project named %q is already part of this template.", child)
		}
		if reason != "" {
			// The same rejected answer twice in a row cannot make progress.
			if child == rejected {
				a.logger.Warn("child name rejected again, finishing template", "child", child)
				break
			}
			rejected = child
			a.prompter.Error(reason)
		} else {
			rejected = ""
			s, err := a.chooseScaffold(ctx, ui.Field{Key: ui.KeyScaffold, Title: "Select project type"}, scaffoldID)
			if err != nil && !errors.Is(err, ui.ErrCancelled) {
				return a.fail("", err)
			}
			if s.ID != "" {
				projects = append(projects, models.ScaffoldDefinition{
					ID:      child,
					Label:   s.Label,
					Command: s.Command,
					Icon:    s.Icon,
				})
			}
		}

		more, err := a.prompter.Choose(ctx, ui.Field{
			Key:   ui.KeyAddAnother,
			Title: "Add another project to this template?",
		}, []ui.Choice{{Label: AnswerYes, Value: AnswerYes}, {Label: AnswerNo, Value: AnswerNo}})
		if err != nil && !errors.Is(err, ui.ErrCancelled) {
			return a.fail("", err)
		}
		if more != AnswerYes {
			break
		}
	}

	if len(projects) == 0 {
		return nil
	}
	t := models.CustomTemplate{Name: name, Projects: projects}
	if err := a.store.Add(ctx, t); err != nil {
		return a.fail("", err)
	}
	a.prompter.Info(fmt.Sprintf("Custom template %q has been added.", templates.NormalizeName(name)))
	return nil
}

// RequestDeleteTemplate removes the custom template name.
func (a *Adapter) RequestDeleteTemplate(ctx context.Context, name string) error {
	if err := a.store.Remove(ctx, name); err != nil {
		return a.fail("Failed to delete template", err)
	}
	a.logger.Info("template deleted", "name", name)
	return nil
}

// RequestDeleteAllTemplates removes every custom template after
// confirmation.
func (a *Adapter) RequestDeleteAllTemplates(ctx context.Context, opts ...IntentOption) error {
	in := buildIntent(opts)
	if !in.assumeYes {
		answer, err := a.prompter.Warn(ctx, ui.Field{
			Key:   ui.KeyDeleteAll,
			Title: "Are you sure you want to delete all custom templates?",
		}, AnswerYes, AnswerNo)
		if err != nil {
			return a.fail("", err)
		}
		if answer != AnswerYes {
			return nil
		}
	}

	if err := a.store.RemoveAll(ctx); err != nil {
		return a.fail("Failed to delete templates", err)
	}
	a.prompter.Info("All custom templates have been deleted.")
	return nil
}

// categoryLabel and scaffoldID pick the description shown under each
// scaffold in a chooser.
func categoryLabel(e models.CatalogEntry) string { return e.CategoryLabel }
func scaffoldID(e models.CatalogEntry) string    { return e.Scaffold.ID }

func (a *Adapter) chooseScaffold(ctx context.Context, f ui.Field, desc func(models.CatalogEntry) string) (models.ScaffoldDefinition, error) {
	entries := catalog.Flatten()
	options := make([]ui.Choice, len(entries))
	for i, e := range entries {
		options[i] = ui.Choice{Label: e.Scaffold.Label, Value: e.Scaffold.ID, Desc: desc(e)}
	}
	id, err := a.prompter.Choose(ctx, f, options)
	if err != nil {
		return models.ScaffoldDefinition{}, err
	}
	s, _ := catalog.Lookup(id)
	return s, nil
}

// fail shows err as one message and returns it wrapped in ReportedError.
// Aborts and cancellations are silent and return nil.
func (a *Adapter) fail(prefix string, err error) error {
	if errors.Is(err, provision.ErrAborted) || errors.Is(err, ui.ErrCancelled) ||
		errors.Is(err, context.Canceled) {
		a.logger.Debug("intent abandoned", "reason", err)
		return nil
	}
	msg := Message(err)
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	a.logger.Error("intent failed", "error", err)
	a.prompter.Error(msg)
	return &ReportedError{Err: err}
}

// Message converts err into the text shown to the user.
func Message(err error) string {
	var (
		collision *templates.NameCollisionError
		missing   *provision.MissingTemplateError
	)
	switch {
	case errors.As(err, &collision):
		return fmt.Sprintf("A template named %q already exists.", collision.Name)
	case errors.As(err, &missing):
		return missing.Error()
	default:
		return err.Error()
	}
}

// Placeholder is the suggested project name for label: lowercased, with
// every whitespace character replaced by a dash.
func Placeholder(label string) string {
	lower := cases.Lower(language.Und).String(label)
	slug := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, lower)
	return "my-" + slug + "-project"
}

func hasProject(projects []models.ScaffoldDefinition, id string) bool {
	for _, p := range projects {
		if p.ID == id {
			return true
		}
	}
	return false
}
