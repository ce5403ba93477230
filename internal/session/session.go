// Package session abstracts the interactive command sessions scaffold
// commands run in. A Session is a shell bound to a working directory; its
// Done channel is the completion future resolved when the shell exits.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Host modes accepted by Resolve.
const (
	ModeAuto = "auto"
	ModeTmux = "tmux"
	ModeExec = "exec"
)

// Sentinel errors for the session package.
var (
	// ErrTmuxUnavailable indicates tmux was requested but is not installed.
	ErrTmuxUnavailable = errors.New("session: tmux is not available")

	// ErrForeignSession indicates a session from another host was passed to Split.
	ErrForeignSession = errors.New("session: session belongs to another host")

	// ErrInputClosed indicates Submit was called on a session that no
	// longer accepts input.
	ErrInputClosed = errors.New("session: input already closed")

	// ErrUnknownMode indicates an unsupported host mode.
	ErrUnknownMode = errors.New("session: unknown host mode")
)

// ExitStatus is the status a session reported when it closed. Known is false
// when the session was closed without reporting a code (killed by the user
// or by a signal).
type ExitStatus struct {
	Code  int
	Known bool
}

// Success reports whether the session exited with status 0.
func (s ExitStatus) Success() bool {
	return s.Known && s.Code == 0
}

// String renders the status for messages.
func (s ExitStatus) String() string {
	if !s.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d", s.Code)
}

// Session is one interactive command-execution context.
type Session interface {
	// ID identifies the session within its host.
	ID() string
	// Name is the display name.
	Name() string
	// Rename changes the display name.
	Rename(ctx context.Context, name string) error
	// Submit sends text followed by a newline to the shell.
	Submit(ctx context.Context, text string) error
	// Show brings the session to the user's attention.
	Show(ctx context.Context) error
	// Done is closed once the session has closed.
	Done() <-chan struct{}
	// ExitStatus is valid after Done is closed.
	ExitStatus() ExitStatus
}

// Host opens sessions.
type Host interface {
	// Open starts a fresh top-level session rooted at dir.
	Open(ctx context.Context, name, dir string) (Session, error)
	// Split starts a sibling session grouped with from.
	Split(ctx context.Context, from Session, name, dir string) (Session, error)
}

// Wait blocks until s closes or ctx is done.
func Wait(ctx context.Context, s Session) (ExitStatus, error) {
	select {
	case <-s.Done():
		return s.ExitStatus(), nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

// WaitAll blocks until every session has closed, in any order, and returns
// the statuses in argument order.
func WaitAll(ctx context.Context, sessions ...Session) ([]ExitStatus, error) {
	statuses := make([]ExitStatus, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sessions {
		g.Go(func() error {
			st, err := Wait(gctx, s)
			if err != nil {
				return err
			}
			statuses[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	Mode        string
	Interactive bool
	Tmux        []TmuxOption
	Exec        []ExecOption
	Logger      *slog.Logger
}

// Resolve picks the host for the given mode. In auto mode tmux is used when
// running inside tmux, or when tmux is installed and the terminal is
// interactive; otherwise sessions are plain piped shells.
func Resolve(opts ResolveOptions) (Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	_, lookErr := exec.LookPath("tmux")
	hasTmux := lookErr == nil

	switch strings.ToLower(opts.Mode) {
	case ModeTmux:
		if !hasTmux {
			return nil, ErrTmuxUnavailable
		}
		return NewTmuxHost(append([]TmuxOption{WithTmuxLogger(logger)}, opts.Tmux...)...), nil
	case ModeExec:
		return NewExecHost(append([]ExecOption{WithExecLogger(logger)}, opts.Exec...)...), nil
	case "", ModeAuto:
		if hasTmux && (os.Getenv("TMUX") != "" || opts.Interactive) {
			logger.Debug("session host resolved", "mode", ModeTmux)
			return NewTmuxHost(append([]TmuxOption{WithTmuxLogger(logger)}, opts.Tmux...)...), nil
		}
		logger.Debug("session host resolved", "mode", ModeExec)
		return NewExecHost(append([]ExecOption{WithExecLogger(logger)}, opts.Exec...)...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}
}
