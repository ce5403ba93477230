// Package ui provides the terminal prompts, messages and progress display
// used by qpc. Every component has an interactive form built on the charm
// stack and a headless form that writes plain lines.
package ui

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Brand palette (dark variants).
const (
	ColorPrimary   = "#DA7756"
	ColorSecondary = "#7C3AED"
	ColorSuccess   = "#10B981"
	ColorWarning   = "#F59E0B"
	ColorError     = "#EF4444"
	ColorText      = "#E5E7EB"
	ColorMuted     = "#6B7280"
	ColorBorder    = "#4B5563"
)

// Theme holds the colors and styles shared by every component.
type Theme struct {
	NoColor bool

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
}

// NewTheme returns the qpc theme. With noColor every style renders plain.
func NewTheme(noColor bool) *Theme {
	return &Theme{
		NoColor:   noColor,
		Primary:   lipgloss.AdaptiveColor{Light: "#C45A3C", Dark: ColorPrimary},
		Secondary: lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: ColorSecondary},
		Success:   lipgloss.AdaptiveColor{Light: "#059669", Dark: ColorSuccess},
		Warning:   lipgloss.AdaptiveColor{Light: "#B45309", Dark: ColorWarning},
		Error:     lipgloss.AdaptiveColor{Light: "#DC2626", Dark: ColorError},
		Text:      lipgloss.AdaptiveColor{Light: "#111827", Dark: ColorText},
		Muted:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: ColorMuted},
		Border:    lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: ColorBorder},
	}
}

func (t *Theme) style(c lipgloss.AdaptiveColor) lipgloss.Style {
	if t.NoColor {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(c)
}

// TitleStyle renders headings.
func (t *Theme) TitleStyle() lipgloss.Style { return t.style(t.Primary).Bold(!t.NoColor) }

// SuccessStyle renders info messages.
func (t *Theme) SuccessStyle() lipgloss.Style { return t.style(t.Success) }

// WarningStyle renders warnings.
func (t *Theme) WarningStyle() lipgloss.Style { return t.style(t.Warning) }

// ErrorStyle renders error messages.
func (t *Theme) ErrorStyle() lipgloss.Style { return t.style(t.Error).Bold(!t.NoColor) }

// MutedStyle renders secondary text.
func (t *Theme) MutedStyle() lipgloss.Style { return t.style(t.Muted) }

// HuhTheme maps the palette onto a huh form theme.
func (t *Theme) HuhTheme() *huh.Theme {
	if t.NoColor {
		return huh.ThemeBase()
	}
	h := huh.ThemeBase()

	h.Focused.Base = h.Focused.Base.BorderForeground(t.Border)
	h.Focused.Card = h.Focused.Base
	h.Focused.Title = h.Focused.Title.Foreground(t.Primary).Bold(true)
	h.Focused.Description = h.Focused.Description.Foreground(t.Muted)
	h.Focused.ErrorIndicator = h.Focused.ErrorIndicator.Foreground(t.Error)
	h.Focused.ErrorMessage = h.Focused.ErrorMessage.Foreground(t.Error)
	h.Focused.SelectSelector = h.Focused.SelectSelector.Foreground(t.Primary).SetString("▸ ")
	h.Focused.NextIndicator = h.Focused.NextIndicator.Foreground(t.Primary)
	h.Focused.PrevIndicator = h.Focused.PrevIndicator.Foreground(t.Primary)
	h.Focused.Option = h.Focused.Option.Foreground(t.Text)
	h.Focused.SelectedOption = h.Focused.SelectedOption.Foreground(t.Success)
	h.Focused.TextInput.Cursor = h.Focused.TextInput.Cursor.Foreground(t.Primary)
	h.Focused.TextInput.Placeholder = h.Focused.TextInput.Placeholder.Foreground(t.Muted)
	h.Focused.TextInput.Prompt = h.Focused.TextInput.Prompt.Foreground(t.Secondary)

	h.Blurred = h.Focused
	h.Blurred.Base = h.Focused.Base.BorderStyle(lipgloss.HiddenBorder())
	h.Blurred.Card = h.Blurred.Base
	h.Blurred.NextIndicator = lipgloss.NewStyle()
	h.Blurred.PrevIndicator = lipgloss.NewStyle()

	h.Group.Title = h.Focused.Title
	h.Group.Description = h.Focused.Description
	return h
}
