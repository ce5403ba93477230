package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

// ExecHost runs every session as a plain shell process with piped stdin.
// It is used when no terminal multiplexer is available.
type ExecHost struct {
	shell  string
	out    io.Writer
	outMu  sync.Mutex
	logger *slog.Logger
	nextID atomic.Int64
}

// Compile-time interface compliance check.
var _ Host = (*ExecHost)(nil)

// ExecOption configures an ExecHost.
type ExecOption func(*ExecHost)

// WithExecLogger sets the logger for the host.
func WithExecLogger(l *slog.Logger) ExecOption {
	return func(h *ExecHost) {
		h.logger = l
	}
}

// WithOutput sets where session output is streamed. Defaults to stdout.
func WithOutput(w io.Writer) ExecOption {
	return func(h *ExecHost) {
		if w != nil {
			h.out = w
		}
	}
}

// WithShell sets the shell binary. Defaults to sh.
func WithShell(shell string) ExecOption {
	return func(h *ExecHost) {
		if shell != "" {
			h.shell = shell
		}
	}
}

// NewExecHost creates an ExecHost.
func NewExecHost(opts ...ExecOption) *ExecHost {
	h := &ExecHost{
		shell:  "sh",
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("module", "session.exec")
	return h
}

// Open implements Host.
func (h *ExecHost) Open(ctx context.Context, name, dir string) (Session, error) {
	return h.start(ctx, name, dir)
}

// Split implements Host. Exec sessions have no visual grouping, so a split
// is a new independent shell.
func (h *ExecHost) Split(ctx context.Context, from Session, name, dir string) (Session, error) {
	if _, ok := from.(*execSession); !ok {
		return nil, ErrForeignSession
	}
	return h.start(ctx, name, dir)
}

func (h *ExecHost) start(ctx context.Context, name, dir string) (*execSession, error) {
	id := strconv.FormatInt(h.nextID.Add(1), 10)

	s := &execSession{
		host: h,
		id:   id,
		name: name,
		done: make(chan struct{}),
	}

	cmd := exec.CommandContext(ctx, h.shell)
	cmd.Dir = dir
	w := &prefixWriter{host: h, session: s}
	cmd.Stdout = w
	cmd.Stderr = w

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin for %q: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start shell for %q: %w", name, err)
	}
	s.cmd = cmd
	s.stdin = stdin

	go s.wait(w)

	h.logger.Debug("shell started", "session", id, "name", name, "dir", dir, "pid", cmd.Process.Pid)
	return s, nil
}

type execSession struct {
	host  *ExecHost
	id    string
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu        sync.Mutex
	name      string
	submitted bool
	status    ExitStatus
	done      chan struct{}
}

func (s *execSession) ID() string { return s.id }

func (s *execSession) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *execSession) Rename(_ context.Context, name string) error {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	return nil
}

// Submit writes text to the shell and closes its input, so the shell exits
// once the text has run.
func (s *execSession) Submit(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return ErrInputClosed
	}
	s.submitted = true

	if _, err := io.WriteString(s.stdin, text+"\n"); err != nil {
		_ = s.stdin.Close()
		return fmt.Errorf("write to session %s: %w", s.id, err)
	}
	if err := s.stdin.Close(); err != nil {
		return fmt.Errorf("close session %s input: %w", s.id, err)
	}
	return nil
}

// Show is a no-op; output is already streamed.
func (s *execSession) Show(context.Context) error { return nil }

func (s *execSession) Done() <-chan struct{} { return s.done }

func (s *execSession) ExitStatus() ExitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *execSession) wait(w *prefixWriter) {
	err := s.cmd.Wait()
	w.flush()

	status := ExitStatus{}
	if code := s.cmd.ProcessState.ExitCode(); code >= 0 {
		status = ExitStatus{Code: code, Known: true}
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		s.host.logger.Warn("shell wait failed", "session", s.id, "error", err)
	}

	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	close(s.done)

	s.host.logger.Debug("shell exited", "session", s.id, "status", status.String())
}

// prefixWriter prefixes each complete output line with the session name.
type prefixWriter struct {
	host    *ExecHost
	session *execSession
	mu      sync.Mutex
	buf     []byte
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, b...)
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		p.emit(p.buf[:i+1])
		p.buf = p.buf[i+1:]
	}
	return len(b), nil
}

func (p *prefixWriter) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) > 0 {
		p.emit(append(p.buf, '\n'))
		p.buf = nil
	}
}

func (p *prefixWriter) emit(line []byte) {
	p.host.outMu.Lock()
	defer p.host.outMu.Unlock()
	_, _ = fmt.Fprintf(p.host.out, "[%s] %s", p.session.Name(), line)
}
