package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxVisible   = 3
	defaultPollInterval = 500 * time.Millisecond
	defaultNamePrefix   = "qpc"
)

// RunFunc executes an external command and returns its trimmed output.
type RunFunc func(ctx context.Context, name string, args ...string) (string, error)

func defaultRun(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return trimmed, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, trimmed)
		}
		return trimmed, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}

// TmuxHost runs every session in a tmux pane. Sessions opened with Open get
// their own detached tmux session; Split adds panes to it.
//
// Layout strategy:
//   - First pane: created with the session via new-session.
//   - Panes 2 to MaxVisible: added via vertical splits (split-window -v).
//   - Panes beyond MaxVisible: added via horizontal splits (split-window -h).
//   - After each split the layout is rebalanced to tiled.
//
// remain-on-exit keeps a finished pane around so its exit status can be
// read; the pane is killed once the status is collected.
type TmuxHost struct {
	run          RunFunc
	logger       *slog.Logger
	maxVisible   int
	pollInterval time.Duration
	namePrefix   string
	insideTmux   bool

	mu    sync.Mutex
	panes map[string]int // tmux session name -> pane count
}

// Compile-time interface compliance check.
var _ Host = (*TmuxHost)(nil)

// TmuxOption configures a TmuxHost.
type TmuxOption func(*TmuxHost)

// WithRunFunc sets a custom command runner (used for testing).
func WithRunFunc(fn RunFunc) TmuxOption {
	return func(h *TmuxHost) {
		h.run = fn
	}
}

// WithTmuxLogger sets the logger for the host.
func WithTmuxLogger(l *slog.Logger) TmuxOption {
	return func(h *TmuxHost) {
		h.logger = l
	}
}

// WithMaxVisible sets how many panes use vertical splits. Zero keeps the
// default (3).
func WithMaxVisible(n int) TmuxOption {
	return func(h *TmuxHost) {
		if n > 0 {
			h.maxVisible = n
		}
	}
}

// WithPollInterval sets how often pane liveness is checked.
func WithPollInterval(d time.Duration) TmuxOption {
	return func(h *TmuxHost) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

// WithNamePrefix sets the tmux session name prefix.
func WithNamePrefix(p string) TmuxOption {
	return func(h *TmuxHost) {
		if p != "" {
			h.namePrefix = p
		}
	}
}

// NewTmuxHost creates a TmuxHost.
func NewTmuxHost(opts ...TmuxOption) *TmuxHost {
	h := &TmuxHost{
		run:          defaultRun,
		logger:       slog.Default(),
		maxVisible:   defaultMaxVisible,
		pollInterval: defaultPollInterval,
		namePrefix:   defaultNamePrefix,
		insideTmux:   os.Getenv("TMUX") != "",
		panes:        make(map[string]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("module", "session.tmux")
	return h
}

// Open implements Host.
func (h *TmuxHost) Open(ctx context.Context, name, dir string) (Session, error) {
	sessionName := fmt.Sprintf("%s-%s", h.namePrefix, uuid.NewString()[:8])

	paneID, err := h.run(ctx, "tmux", "new-session", "-d", "-s", sessionName, "-c", dir, "-P", "-F", "#{pane_id}")
	if err != nil {
		return nil, fmt.Errorf("create session %q: %w", sessionName, err)
	}
	if _, err := h.run(ctx, "tmux", "set-option", "-w", "-t", sessionName, "remain-on-exit", "on"); err != nil {
		h.logger.Warn("failed to enable remain-on-exit, exit status may be lost",
			"session", sessionName,
			"error", err,
		)
	}

	h.mu.Lock()
	h.panes[sessionName] = 1
	h.mu.Unlock()

	s := h.newSession(ctx, sessionName, paneID, name)
	if err := s.Rename(ctx, name); err != nil {
		h.logger.Warn("failed to set pane title", "pane", paneID, "error", err)
	}

	h.logger.Debug("tmux session created", "session", sessionName, "pane", paneID, "dir", dir)
	return s, nil
}

// Split implements Host.
func (h *TmuxHost) Split(ctx context.Context, from Session, name, dir string) (Session, error) {
	parent, ok := from.(*tmuxSession)
	if !ok || parent.host != h {
		return nil, ErrForeignSession
	}

	h.mu.Lock()
	index := h.panes[parent.session]
	h.mu.Unlock()

	direction := "-v" // Vertical split.
	if index >= h.maxVisible {
		direction = "-h" // Horizontal split for overflow.
	}

	paneID, err := h.run(ctx, "tmux", "split-window", direction, "-t", parent.session, "-c", dir, "-P", "-F", "#{pane_id}")
	if err != nil {
		return nil, fmt.Errorf("split session %q: %w", parent.session, err)
	}

	h.mu.Lock()
	h.panes[parent.session] = index + 1
	h.mu.Unlock()

	_, _ = h.run(ctx, "tmux", "select-layout", "-t", parent.session, "tiled")

	h.logger.Debug("tmux pane split",
		"session", parent.session,
		"pane", paneID,
		"pane_index", index,
		"direction", direction,
	)
	return h.newSession(ctx, parent.session, paneID, name), nil
}

func (h *TmuxHost) newSession(ctx context.Context, sessionName, paneID, name string) *tmuxSession {
	s := &tmuxSession{
		host:    h,
		session: sessionName,
		pane:    paneID,
		name:    name,
		done:    make(chan struct{}),
	}
	go s.watch(ctx)
	return s
}

// paneState is one line of list-panes output.
type paneState struct {
	dead   bool
	status int
	known  bool
}

// listPanes returns the state of every pane on the server. A missing server
// yields an empty map.
func (h *TmuxHost) listPanes(ctx context.Context) (map[string]paneState, error) {
	out, err := h.run(ctx, "tmux", "list-panes", "-a", "-F", "#{pane_id} #{pane_dead} #{pane_dead_status}")
	if err != nil {
		if strings.Contains(out, "no server running") || strings.Contains(err.Error(), "no server running") {
			return map[string]paneState{}, nil
		}
		return nil, err
	}

	states := make(map[string]paneState)
	for line := range strings.SplitSeq(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		st := paneState{dead: fields[1] == "1"}
		if st.dead && len(fields) >= 3 {
			if code, err := strconv.Atoi(fields[2]); err == nil {
				st.status = code
				st.known = true
			}
		}
		states[fields[0]] = st
	}
	return states, nil
}

// tmuxSession is one pane.
type tmuxSession struct {
	host    *TmuxHost
	session string
	pane    string

	mu     sync.Mutex
	name   string
	status ExitStatus
	done   chan struct{}
}

func (s *tmuxSession) ID() string { return s.pane }

func (s *tmuxSession) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Rename sets the pane title.
func (s *tmuxSession) Rename(ctx context.Context, name string) error {
	if _, err := s.host.run(ctx, "tmux", "select-pane", "-t", s.pane, "-T", name); err != nil {
		return fmt.Errorf("rename pane %s: %w", s.pane, err)
	}
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	return nil
}

// Submit sends text to the pane followed by Enter.
func (s *tmuxSession) Submit(ctx context.Context, text string) error {
	if _, err := s.host.run(ctx, "tmux", "send-keys", "-t", s.pane, text, "Enter"); err != nil {
		return fmt.Errorf("send keys to pane %s: %w", s.pane, err)
	}
	return nil
}

// Show focuses the pane. Inside tmux the client switches to the session;
// outside, the attach command is logged.
func (s *tmuxSession) Show(ctx context.Context) error {
	if _, err := s.host.run(ctx, "tmux", "select-pane", "-t", s.pane); err != nil {
		return fmt.Errorf("select pane %s: %w", s.pane, err)
	}
	if s.host.insideTmux {
		_, err := s.host.run(ctx, "tmux", "switch-client", "-t", s.session)
		return err
	}
	s.host.logger.Info("attach to follow the scaffold", "command", "tmux attach -t "+s.session)
	return nil
}

func (s *tmuxSession) Done() <-chan struct{} { return s.done }

func (s *tmuxSession) ExitStatus() ExitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// watch polls the pane until it is dead or gone, records the status and
// resolves Done. It stops without resolving when ctx is done.
func (s *tmuxSession) watch(ctx context.Context) {
	ticker := time.NewTicker(s.host.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		states, err := s.host.listPanes(ctx)
		if err != nil {
			s.host.logger.Debug("list panes failed", "pane", s.pane, "error", err)
			continue
		}

		st, ok := states[s.pane]
		switch {
		case !ok:
			// Closed by the user; no status reported.
			s.resolve(ExitStatus{})
			return
		case st.dead:
			_, _ = s.host.run(ctx, "tmux", "kill-pane", "-t", s.pane)
			s.resolve(ExitStatus{Code: st.status, Known: st.known})
			return
		}
	}
}

func (s *tmuxSession) resolve(status ExitStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	close(s.done)

	s.host.logger.Debug("tmux pane closed", "pane", s.pane, "status", status.String())
}
