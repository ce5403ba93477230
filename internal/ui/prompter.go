package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/charmbracelet/huh"
)

// Field describes one prompt. Key selects the headless answer.
type Field struct {
	Key         string
	Title       string
	Placeholder string
}

// Choice is one selectable option.
type Choice struct {
	Label string
	Value string
	Desc  string
}

// Prompter asks the user for input and shows messages.
type Prompter interface {
	// Input asks for free text. An empty answer is returned as "".
	Input(ctx context.Context, f Field) (string, error)
	// Choose asks for one of options and returns its Value.
	Choose(ctx context.Context, f Field, options []Choice) (string, error)
	// Warn shows a warning with answer buttons and returns the chosen one.
	Warn(ctx context.Context, f Field, options ...string) (string, error)
	// Error shows an error message.
	Error(message string)
	// Info shows an informational message.
	Info(message string)
}

// NewPrompter returns a huh-backed Prompter, or a HeadlessPrompter when hm
// reports headless mode.
func NewPrompter(theme *Theme, hm *HeadlessManager) Prompter {
	if hm.IsHeadless() {
		return NewHeadlessPrompter(theme, hm, os.Stderr)
	}
	return NewHuhPrompter(theme, os.Stderr)
}

// messenger renders Error and Info lines.
type messenger struct {
	theme *Theme
	mu    sync.Mutex
	w     io.Writer
}

func (m *messenger) Error(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = fmt.Fprintln(m.w, m.theme.ErrorStyle().Render("✗ "+message))
}

func (m *messenger) Info(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = fmt.Fprintln(m.w, m.theme.SuccessStyle().Render("✓ "+message))
}

// HuhPrompter shows prompts as huh forms. Each prompt runs as its own form.
type HuhPrompter struct {
	messenger
	accessible bool
}

// Compile-time interface compliance check.
var _ Prompter = (*HuhPrompter)(nil)

// NewHuhPrompter creates a HuhPrompter writing messages to w.
func NewHuhPrompter(theme *Theme, w io.Writer) *HuhPrompter {
	return &HuhPrompter{
		messenger:  messenger{theme: theme, w: w},
		accessible: os.Getenv("ACCESSIBLE") != "",
	}
}

func (p *HuhPrompter) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(p.theme.HuhTheme()).
		WithAccessible(p.accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrCancelled
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// Input implements Prompter.
func (p *HuhPrompter) Input(ctx context.Context, f Field) (string, error) {
	var value string
	in := huh.NewInput().
		Title(f.Title).
		Placeholder(f.Placeholder).
		Value(&value)
	if err := p.run(ctx, in); err != nil {
		return "", err
	}
	return value, nil
}

// Choose implements Prompter.
func (p *HuhPrompter) Choose(ctx context.Context, f Field, options []Choice) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("prompt %q: no options", f.Title)
	}
	opts := make([]huh.Option[string], len(options))
	for i, c := range options {
		key := c.Label
		if c.Desc != "" {
			key = c.Label + " - " + c.Desc
		}
		opts[i] = huh.NewOption(key, c.Value)
	}

	var selected string
	sel := huh.NewSelect[string]().
		Title(f.Title).
		Options(opts...).
		Filtering(len(options) > 10).
		Value(&selected)
	if len(options) > 10 {
		sel = sel.Height(12)
	}
	if err := p.run(ctx, sel); err != nil {
		return "", err
	}
	return selected, nil
}

// Warn implements Prompter.
func (p *HuhPrompter) Warn(ctx context.Context, f Field, options ...string) (string, error) {
	title := p.theme.WarningStyle().Render("! " + f.Title)
	if len(options) == 0 {
		_, _ = fmt.Fprintln(p.w, title)
		return "", nil
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}

	var selected string
	sel := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&selected)
	if err := p.run(ctx, sel); err != nil {
		return "", err
	}
	return selected, nil
}

// HeadlessPrompter answers prompts from the HeadlessManager defaults.
type HeadlessPrompter struct {
	messenger
	headless *HeadlessManager
}

// Compile-time interface compliance check.
var _ Prompter = (*HeadlessPrompter)(nil)

// NewHeadlessPrompter creates a HeadlessPrompter writing messages to w.
func NewHeadlessPrompter(theme *Theme, hm *HeadlessManager, w io.Writer) *HeadlessPrompter {
	return &HeadlessPrompter{
		messenger: messenger{theme: theme, w: w},
		headless:  hm,
	}
}

func (p *HeadlessPrompter) answer(ctx context.Context, f Field) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok := p.headless.GetDefault(f.Key)
	if !ok {
		return "", fmt.Errorf("%w: %s (%s)", ErrHeadlessNoDefault, f.Key, f.Title)
	}
	return v, nil
}

// Input implements Prompter.
func (p *HeadlessPrompter) Input(ctx context.Context, f Field) (string, error) {
	return p.answer(ctx, f)
}

// Choose implements Prompter. The default may name either a Value or a Label.
func (p *HeadlessPrompter) Choose(ctx context.Context, f Field, options []Choice) (string, error) {
	v, err := p.answer(ctx, f)
	if err != nil {
		return "", err
	}
	i := slices.IndexFunc(options, func(c Choice) bool { return c.Value == v || c.Label == v })
	if i < 0 {
		return "", fmt.Errorf("%w: %s=%q is not an option", ErrHeadlessNoDefault, f.Key, v)
	}
	return options[i].Value, nil
}

// Warn implements Prompter. The warning is always written.
func (p *HeadlessPrompter) Warn(ctx context.Context, f Field, options ...string) (string, error) {
	p.mu.Lock()
	_, _ = fmt.Fprintln(p.w, p.theme.WarningStyle().Render("! "+f.Title))
	p.mu.Unlock()
	if len(options) == 0 {
		return "", nil
	}

	v, err := p.answer(ctx, f)
	if err != nil {
		return "", err
	}
	if !slices.Contains(options, v) {
		return "", fmt.Errorf("%w: %s=%q is not an option", ErrHeadlessNoDefault, f.Key, v)
	}
	return v, nil
}
