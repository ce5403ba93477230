package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quickproject/qpc/pkg/models"
)

// Reporter displays the progress of one operation.
type Reporter interface {
	// Report adds p.Increment percent and shows p.Message.
	Report(p models.ProvisionProgress)
	// Done closes the display. It is safe to call more than once.
	Done()
}

// Progress starts progress displays.
type Progress interface {
	Start(title string) Reporter
}

// progressImpl implements the Progress interface.
type progressImpl struct {
	theme    *Theme
	headless *HeadlessManager
	writer   io.Writer
	opts     []tea.ProgramOption
}

// NewProgress creates a Progress backed by the given theme and headless
// manager. Output goes to os.Stderr.
func NewProgress(theme *Theme, hm *HeadlessManager) Progress {
	return &progressImpl{theme: theme, headless: hm, writer: os.Stderr}
}

// newProgressImpl creates a progressImpl with a custom writer and program
// options (for testing).
func newProgressImpl(theme *Theme, hm *HeadlessManager, w io.Writer, opts ...tea.ProgramOption) *progressImpl {
	return &progressImpl{theme: theme, headless: hm, writer: w, opts: opts}
}

// Start opens a progress display. In headless mode or without color it
// writes one line per report.
func (p *progressImpl) Start(title string) Reporter {
	if p.headless.IsHeadless() || p.theme.NoColor {
		return newHeadlessReporter(title, p.writer)
	}
	opts := append([]tea.ProgramOption{tea.WithOutput(p.writer)}, p.opts...)
	return newInteractiveReporter(p.theme, title, opts...)
}

// --- interactiveReporter ---

// progressReportMsg carries one report to the model.
type progressReportMsg models.ProvisionProgress

// progressDoneMsg is sent to close the display.
type progressDoneMsg struct{}

// progressModel is the bubbletea Model for the progress display.
type progressModel struct {
	theme   *Theme
	bar     progress.Model
	spinner spinner.Model
	title   string
	message string
	percent float64
	done    bool
}

func newProgressModel(theme *Theme, title string) progressModel {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)
	if !theme.NoColor {
		bar = progress.New(
			progress.WithGradient(theme.Primary.Dark, theme.Secondary.Dark),
			progress.WithWidth(40),
		)
	}
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = theme.TitleStyle()
	return progressModel{theme: theme, bar: bar, spinner: s, title: title}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressReportMsg:
		m.percent = min(m.percent+msg.Increment, 100)
		if msg.Message != "" {
			m.message = msg.Message
		}
		return m, nil
	case progressDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		line := m.title
		if m.message != "" {
			line += ": " + m.message
		}
		return m.theme.MutedStyle().Render(line) + "\n"
	}
	view := m.spinner.View() + " " + m.theme.TitleStyle().Render(m.title) + "\n" +
		m.bar.ViewAs(m.percent/100) + "\n"
	if m.message != "" {
		view += m.theme.MutedStyle().Render(m.message) + "\n"
	}
	return view
}

// interactiveReporter implements Reporter with an animated progress bar.
type interactiveReporter struct {
	program *tea.Program
	exited  chan struct{}
	once    sync.Once
}

// The program ignores keyboard input, so scaffolds keep the terminal.
func newInteractiveReporter(theme *Theme, title string, opts ...tea.ProgramOption) *interactiveReporter {
	m := newProgressModel(theme, title)
	opts = append([]tea.ProgramOption{tea.WithInput(nil)}, opts...)
	p := tea.NewProgram(m, opts...)

	r := &interactiveReporter{program: p, exited: make(chan struct{})}
	go func() {
		defer close(r.exited)
		_, _ = p.Run()
	}()
	return r
}

// Report implements Reporter.
func (r *interactiveReporter) Report(p models.ProvisionProgress) {
	r.program.Send(progressReportMsg(p))
}

// Done implements Reporter.
func (r *interactiveReporter) Done() {
	r.once.Do(func() {
		r.program.Send(progressDoneMsg{})
		<-r.exited
	})
}

// --- headlessReporter ---

// headlessReporter implements Reporter with plain text lines.
type headlessReporter struct {
	mu      sync.Mutex
	title   string
	percent float64
	writer  io.Writer
	done    bool
}

func newHeadlessReporter(title string, w io.Writer) *headlessReporter {
	_, _ = fmt.Fprintf(w, "%s\n", title)
	return &headlessReporter{title: title, writer: w}
}

// Report implements Reporter.
func (r *headlessReporter) Report(p models.ProvisionProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percent = min(r.percent+p.Increment, 100)
	_, _ = fmt.Fprintf(r.writer, "[%3.0f%%] %s\n", r.percent, p.Message)
}

// Done implements Reporter.
func (r *headlessReporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}
