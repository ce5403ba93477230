// Package catalog holds the static, hierarchical list of scaffold
// definitions shipped with qpc and a flattened view of it for choosers.
package catalog

import (
	"strings"
	"sync"

	"github.com/quickproject/qpc/pkg/models"
)

var (
	flatOnce sync.Once
	flat     []models.CatalogEntry
)

// Categories returns a copy of the catalog categories in display order.
func Categories() []models.Category {
	out := make([]models.Category, len(categories))
	for i, c := range categories {
		out[i] = models.Category{ID: c.ID, Label: c.Label}
		out[i].Children = append([]models.ScaffoldDefinition(nil), c.Children...)
	}
	return out
}

// Flatten returns every scaffold across all categories, annotated with its
// parent category. The view is computed once on first use.
func Flatten() []models.CatalogEntry {
	flatOnce.Do(func() {
		for _, c := range categories {
			for _, s := range c.Children {
				flat = append(flat, models.CatalogEntry{
					Scaffold:      s,
					CategoryID:    c.ID,
					CategoryLabel: c.Label,
				})
			}
		}
	})
	return append([]models.CatalogEntry(nil), flat...)
}

// Lookup finds a scaffold by id across all categories.
func Lookup(id string) (models.ScaffoldDefinition, bool) {
	for _, e := range Flatten() {
		if e.Scaffold.ID == id {
			return e.Scaffold, true
		}
	}
	return models.ScaffoldDefinition{}, false
}

// Filter returns the entries whose label, id or category label contains
// query, case-insensitively. An empty query returns everything.
func Filter(query string) []models.CatalogEntry {
	entries := Flatten()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}

	var out []models.CatalogEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Scaffold.Label), q) ||
			strings.Contains(strings.ToLower(e.Scaffold.ID), q) ||
			strings.Contains(strings.ToLower(e.CategoryLabel), q) {
			out = append(out, e)
		}
	}
	return out
}
