// Package panel renders the interactive template panel: the custom template
// list plus the project actions. The panel only selects an action; prompts
// for the chosen action run after the program has exited so that they own
// the terminal.
package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quickproject/qpc/internal/templates"
	"github.com/quickproject/qpc/internal/ui"
	"github.com/quickproject/qpc/pkg/models"
)

// Action is what the user picked in the panel.
type Action int

const (
	// ActionQuit closes the panel.
	ActionQuit Action = iota
	// ActionNewProject starts the scaffold flow.
	ActionNewProject
	// ActionNewTemplate starts the custom template wizard.
	ActionNewTemplate
	// ActionUseTemplate provisions the selected template.
	ActionUseTemplate
	// ActionDeleteTemplate removes the selected template.
	ActionDeleteTemplate
	// ActionDeleteAll removes every template.
	ActionDeleteAll
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionNewProject:
		return "new-project"
	case ActionNewTemplate:
		return "new-template"
	case ActionUseTemplate:
		return "use-template"
	case ActionDeleteTemplate:
		return "delete-template"
	case ActionDeleteAll:
		return "delete-all"
	default:
		return "unknown"
	}
}

// Selection is the result of one panel run.
type Selection struct {
	Action   Action
	Template string
}

// Source provides the templates shown in the panel.
type Source interface {
	List() []models.CustomTemplate
	Subscribe(fn templates.Listener) (unsubscribe func())
}

// TemplatesChangedMsg carries the new template list after a store change.
type TemplatesChangedMsg []models.CustomTemplate

type itemKind int

const (
	itemNewProject itemKind = iota
	itemNewTemplate
	itemTemplate
	itemDeleteAll
)

type item struct {
	kind itemKind
	name string
}

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	Delete    key.Binding
	New       key.Binding
	Boiler    key.Binding
	DeleteAll key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Delete:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new project")),
		Boiler:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "new boilerplate")),
		DeleteAll: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete all")),
		Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Delete, k.New, k.Boiler, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.DeleteAll}}
}

// Model is the bubbletea model of the panel.
type Model struct {
	theme     *ui.Theme
	keys      keyMap
	help      help.Model
	templates []models.CustomTemplate
	items     []item
	cursor    int
	selection Selection
	done      bool
}

// Compile-time interface compliance check.
var _ tea.Model = Model{}

// NewModel creates the panel model for the given templates.
func NewModel(theme *ui.Theme, list []models.CustomTemplate) Model {
	m := Model{theme: theme, keys: defaultKeyMap(), help: help.New()}
	m.setTemplates(list)
	return m
}

// Selection returns what the user chose. It is ActionQuit until the panel
// finished with an action.
func (m Model) Selection() Selection {
	return m.selection
}

func (m *Model) setTemplates(list []models.CustomTemplate) {
	m.templates = list
	items := make([]item, 0, len(list)+3)
	items = append(items, item{kind: itemNewProject}, item{kind: itemNewTemplate})
	for _, t := range list {
		items = append(items, item{kind: itemTemplate, name: t.Name})
	}
	if len(list) > 0 {
		items = append(items, item{kind: itemDeleteAll})
	}
	m.items = items
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TemplatesChangedMsg:
		m.setTemplates(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.finish(Selection{Action: ActionQuit})
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.New):
		return m.finish(Selection{Action: ActionNewProject})
	case key.Matches(msg, m.keys.Boiler):
		return m.finish(Selection{Action: ActionNewTemplate})
	case key.Matches(msg, m.keys.DeleteAll):
		if len(m.templates) > 0 {
			return m.finish(Selection{Action: ActionDeleteAll})
		}
	case key.Matches(msg, m.keys.Delete):
		if it := m.items[m.cursor]; it.kind == itemTemplate {
			return m.finish(Selection{Action: ActionDeleteTemplate, Template: it.name})
		}
	case key.Matches(msg, m.keys.Select):
		return m.finish(m.selectCurrent())
	}
	return m, nil
}

func (m Model) selectCurrent() Selection {
	it := m.items[m.cursor]
	switch it.kind {
	case itemNewProject:
		return Selection{Action: ActionNewProject}
	case itemNewTemplate:
		return Selection{Action: ActionNewTemplate}
	case itemTemplate:
		return Selection{Action: ActionUseTemplate, Template: it.name}
	default:
		return Selection{Action: ActionDeleteAll}
	}
}

func (m Model) finish(sel Selection) (tea.Model, tea.Cmd) {
	m.selection = sel
	m.done = true
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.theme.TitleStyle().Render("Quick Project Creator"))
	b.WriteString("\n\n")

	for i, it := range m.items {
		if it.kind == itemTemplate && (i == 0 || m.items[i-1].kind != itemTemplate) {
			b.WriteString("\n" + m.theme.MutedStyle().Render("Custom templates") + "\n")
		}
		if it.kind == itemDeleteAll {
			b.WriteString("\n")
		}
		b.WriteString(m.renderItem(it, i == m.cursor))
		b.WriteString("\n")
	}
	if len(m.templates) == 0 {
		b.WriteString("\n" + m.theme.MutedStyle().Render("No custom templates yet.") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return cardStyle(m.theme).Render(b.String())
}

func (m Model) renderItem(it item, focused bool) string {
	var label string
	switch it.kind {
	case itemNewProject:
		label = "New Project"
	case itemNewTemplate:
		label = "New Boilerplate"
	case itemTemplate:
		label = m.describe(it.name)
	case itemDeleteAll:
		label = m.theme.ErrorStyle().Render("Delete All")
	}
	if focused {
		return m.theme.TitleStyle().Render("> ") + label
	}
	return "  " + label
}

func (m Model) describe(name string) string {
	for _, t := range m.templates {
		if t.Name != name {
			continue
		}
		ids := make([]string, 0, len(t.Projects))
		for _, p := range t.Projects {
			ids = append(ids, p.ID)
		}
		return fmt.Sprintf("%s %s", name, m.theme.MutedStyle().Render("("+strings.Join(ids, ", ")+")"))
	}
	return name
}

func cardStyle(theme *ui.Theme) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 2)
	if theme.NoColor {
		return s
	}
	return s.Border(lipgloss.RoundedBorder()).BorderForeground(theme.Border)
}

// Run shows the panel until the user picks an action or ctx is done. The
// list is refreshed whenever src reports a change.
func Run(ctx context.Context, src Source, theme *ui.Theme, opts ...tea.ProgramOption) (Selection, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(theme, src.List()), opts...)

	unsubscribe := src.Subscribe(func(list []models.CustomTemplate) {
		p.Send(TemplatesChangedMsg(list))
	})
	defer unsubscribe()

	final, err := p.Run()
	if err != nil {
		return Selection{}, fmt.Errorf("run panel: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Selection{}, fmt.Errorf("run panel: unexpected model %T", final)
	}
	return m.Selection(), nil
}
