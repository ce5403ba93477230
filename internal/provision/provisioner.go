package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/quickproject/qpc/internal/session"
	"github.com/quickproject/qpc/pkg/models"
)

const (
	// SessionPrefix prefixes every session name.
	SessionPrefix = "Quick Project Creator - "

	// CompletionMarker is echoed after a scaffold command succeeds.
	CompletionMarker = "Command execution finished"

	// SingleSuccessMessage is reported when a single scaffold finishes.
	SingleSuccessMessage = "Project created successfully."
)

const dirPerm = 0o755

// Reporter receives progress for one provisioning operation.
type Reporter interface {
	Report(p models.ProvisionProgress)
}

type discardReporter struct{}

func (discardReporter) Report(models.ProvisionProgress) {}

// Result describes a finished provisioning operation.
type Result struct {
	State State
	// Directories lists every directory created, in creation order.
	Directories []string
	// Statuses holds one exit status per session, in request order.
	Statuses []session.ExitStatus
}

// Provisioner runs provisioning requests against a filesystem and a
// session host.
type Provisioner struct {
	fs             afero.Fs
	host           session.Host
	logger         *slog.Logger
	checkChildExit bool
	onState        func(models.ProvisionRequest, State)
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = l
	}
}

// WithCheckChildExit makes template runs fail when any project closes with
// a non-zero or missing status. Progress is still reported for every
// project first.
func WithCheckChildExit(enabled bool) Option {
	return func(p *Provisioner) {
		p.checkChildExit = enabled
	}
}

// WithStateHook registers a callback invoked on every state transition.
func WithStateHook(fn func(models.ProvisionRequest, State)) Option {
	return func(p *Provisioner) {
		p.onState = fn
	}
}

// New creates a Provisioner.
func New(fs afero.Fs, host session.Host, opts ...Option) *Provisioner {
	p := &Provisioner{
		fs:     fs,
		host:   host,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("module", "provision")
	return p
}

// PrepareTarget applies the overwrite policy to path. When path exists,
// confirm is asked; a decline returns ErrAborted without touching the
// filesystem and an accept removes path recursively.
func PrepareTarget(fs afero.Fs, path string, confirm func() (bool, error)) error {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return &DirectoryCreationError{Path: path, Err: err}
	}
	if !exists {
		return nil
	}

	ok, err := confirm()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	if err := fs.RemoveAll(path); err != nil {
		return &DirectoryCreationError{Path: path, Err: err}
	}
	return nil
}

// Provision materializes req and blocks until every session it opened has
// closed. rep may be nil.
func (p *Provisioner) Provision(ctx context.Context, req models.ProvisionRequest, rep Reporter) (*Result, error) {
	if rep == nil {
		rep = discardReporter{}
	}
	run := &operation{p: p, req: req, rep: rep, result: &Result{State: StateIdle}}
	p.logger.Info("provisioning started",
		"kind", req.Kind().String(),
		"label", req.Label,
		"path", req.BasePath,
	)

	var err error
	switch req.Kind() {
	case models.KindScaffold:
		s, _ := req.Scaffold()
		err = run.single(ctx, s)
	case models.KindTemplate:
		t, _ := req.Template()
		err = run.template(ctx, t)
	default:
		err = fmt.Errorf("provision: invalid request kind %d", req.Kind())
	}

	if err != nil {
		run.transition(StateFailed)
		p.logger.Error("provisioning failed", "label", req.Label, "error", err)
		return run.result, err
	}
	run.transition(StateCompleted)
	p.logger.Info("provisioning completed", "label", req.Label)
	return run.result, nil
}

// operation is the state of one Provision call.
type operation struct {
	p      *Provisioner
	req    models.ProvisionRequest
	rep    Reporter
	result *Result
}

func (o *operation) transition(s State) {
	o.result.State = s
	o.p.logger.Debug("state transition", "label", o.req.Label, "state", s.String())
	if o.p.onState != nil {
		o.p.onState(o.req, s)
	}
}

func (o *operation) mkdir(path string) error {
	if err := o.p.fs.MkdirAll(path, dirPerm); err != nil {
		return &DirectoryCreationError{Path: path, Err: err}
	}
	o.result.Directories = append(o.result.Directories, path)
	return nil
}

func (o *operation) report(increment float64, message string) {
	o.p.logger.Info("progress", "label", o.req.Label, "increment", increment, "message", message)
	o.rep.Report(models.ProvisionProgress{Increment: increment, Message: message})
}

func (o *operation) single(ctx context.Context, s models.ScaffoldDefinition) error {
	dir := o.req.BasePath
	if err := o.mkdir(dir); err != nil {
		return err
	}
	o.transition(StateDirectoryPrepared)

	sess, err := o.p.host.Open(ctx, SessionPrefix+o.req.Label, dir)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	o.show(ctx, sess)
	if err := sess.Submit(ctx, singleCommand(s.Command)); err != nil {
		return fmt.Errorf("submit command: %w", err)
	}
	o.transition(StateSessionsLaunched)

	o.transition(StateAwaitingCompletion)
	status, err := session.Wait(ctx, sess)
	if err != nil {
		return err
	}
	o.result.Statuses = []session.ExitStatus{status}
	if !status.Success() {
		return &CommandFailedError{Status: status}
	}

	o.report(100, SingleSuccessMessage)
	return nil
}

func (o *operation) template(ctx context.Context, t models.CustomTemplate) error {
	if len(t.Projects) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyTemplate, t.Name)
	}

	dirs := make([]string, len(t.Projects))
	for i, child := range t.Projects {
		dir, err := childDir(o.req.BasePath, child.ID)
		if err != nil {
			return err
		}
		if err := o.mkdir(dir); err != nil {
			return err
		}
		dirs[i] = dir
	}
	o.transition(StateDirectoryPrepared)

	// Sessions are opened strictly in order; each split is issued only after
	// the previous one returned.
	sessions := make([]session.Session, len(t.Projects))
	for i, child := range t.Projects {
		name := SessionPrefix + child.Label
		var (
			sess session.Session
			err  error
		)
		if i == 0 {
			sess, err = o.p.host.Open(ctx, name, dirs[i])
		} else {
			sess, err = o.p.host.Split(ctx, sessions[0], name, dirs[i])
			if err == nil {
				if rerr := sess.Rename(ctx, name); rerr != nil {
					o.p.logger.Warn("rename session failed", "session", sess.ID(), "error", rerr)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("open session for %q: %w", child.ID, err)
		}
		sessions[i] = sess
		o.show(ctx, sess)

		if err := sess.Submit(ctx, templateCommand(dirs[i], child.Command)); err != nil {
			return fmt.Errorf("submit command for %q: %w", child.ID, err)
		}
	}
	o.transition(StateSessionsLaunched)

	o.transition(StateAwaitingCompletion)
	statuses, err := session.WaitAll(ctx, sessions...)
	if err != nil {
		return err
	}
	o.result.Statuses = statuses

	n := len(t.Projects)
	var failures []ChildFailure
	for i, child := range t.Projects {
		o.report(100/float64(n), fmt.Sprintf("Created %s project (%d/%d)", child.Label, i+1, n))
		if !statuses[i].Success() {
			o.p.logger.Warn("template project closed unsuccessfully",
				"project", child.ID,
				"status", statuses[i].String(),
			)
			failures = append(failures, ChildFailure{ID: child.ID, Label: child.Label, Status: statuses[i]})
		}
	}

	if o.p.checkChildExit && len(failures) > 0 {
		return &ChildFailuresError{Failures: failures}
	}
	return nil
}

func (o *operation) show(ctx context.Context, s session.Session) {
	if err := s.Show(ctx); err != nil {
		o.p.logger.Warn("show session failed", "session", s.ID(), "error", err)
	}
}

// childDir joins base and id, rejecting ids that escape base.
func childDir(base, id string) (string, error) {
	dir := filepath.Join(base, id)
	rel, err := filepath.Rel(base, dir)
	if id == "" || err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", &DirectoryCreationError{Path: dir, Err: errors.New("project id must name a sub-directory")}
	}
	return dir, nil
}

func singleCommand(command string) string {
	return fmt.Sprintf("%s && echo %q && exit", command, CompletionMarker)
}

func templateCommand(dir, command string) string {
	return fmt.Sprintf("cd %s && %s && echo %q && exit", shellQuote(dir), command, CompletionMarker)
}

// shellQuote wraps s in single quotes so a POSIX shell takes it literally.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
