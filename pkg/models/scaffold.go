package models

// ScaffoldDefinition describes one scaffold command. Values are immutable once
// defined.
type ScaffoldDefinition struct {
	// ID is unique within its parent list. Inside a custom template it is the
	// user-chosen sub-directory name.
	ID      string `yaml:"id" json:"id"`
	Label   string `yaml:"label" json:"label"`
	Command string `yaml:"command" json:"command"`
	// Icon is cosmetic only.
	Icon string `yaml:"icon" json:"icon"`
}

// Category groups scaffold definitions in the static catalog.
type Category struct {
	ID       string               `yaml:"id" json:"id"`
	Label    string               `yaml:"label" json:"label"`
	Children []ScaffoldDefinition `yaml:"children" json:"children"`
}

// CatalogEntry is one row of the flattened catalog view.
type CatalogEntry struct {
	Scaffold      ScaffoldDefinition
	CategoryID    string
	CategoryLabel string
}

// CustomTemplate is a user-authored ordered bundle of scaffolds materialized
// together under one base directory. Identity is Name.
type CustomTemplate struct {
	Name     string               `yaml:"name" json:"name"`
	Projects []ScaffoldDefinition `yaml:"projects" json:"projects"`
}

// Clone returns a deep copy of the template.
func (t CustomTemplate) Clone() CustomTemplate {
	out := CustomTemplate{Name: t.Name}
	if t.Projects != nil {
		out.Projects = make([]ScaffoldDefinition, len(t.Projects))
		copy(out.Projects, t.Projects)
	}
	return out
}
