package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/quickproject/qpc/pkg/models"
)

// CatalogMarkdown renders catalog entries as one Markdown table per
// category, in entry order.
func CatalogMarkdown(entries []models.CatalogEntry) string {
	var b strings.Builder
	b.WriteString("# Scaffolds\n")
	if len(entries) == 0 {
		b.WriteString("\nNo scaffolds match.\n")
		return b.String()
	}

	current := ""
	for _, e := range entries {
		if e.CategoryID != current {
			current = e.CategoryID
			fmt.Fprintf(&b, "\n## %s\n\n| ID | Name | Command |\n|---|---|---|\n", e.CategoryLabel)
		}
		fmt.Fprintf(&b, "| `%s` | %s | `%s` |\n",
			escapeCell(e.Scaffold.ID), escapeCell(e.Scaffold.Label), escapeCell(e.Scaffold.Command))
	}
	return b.String()
}

// TemplatesMarkdown renders custom templates as a nested list.
func TemplatesMarkdown(templates []models.CustomTemplate) string {
	var b strings.Builder
	b.WriteString("# Custom templates\n\n")
	if len(templates) == 0 {
		b.WriteString("No custom templates yet. Create one with `qpc template add`.\n")
		return b.String()
	}
	for _, t := range templates {
		fmt.Fprintf(&b, "- **%s**\n", t.Name)
		for _, p := range t.Projects {
			fmt.Fprintf(&b, "  - `%s` %s\n", p.ID, p.Label)
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderMarkdown styles md for the terminal. With NoColor the Markdown is
// returned unchanged.
func (t *Theme) RenderMarkdown(md string, width int) (string, error) {
	if t.NoColor {
		return md, nil
	}
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
