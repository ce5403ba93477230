package templates

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/quickproject/qpc/pkg/models"
)

// shellMeta lists the characters a shell interprets inside or around a
// word. Directory names holding them are refused.
const shellMeta = "/\\$`\"';&|<>*?!(){}[]#~"

// CheckDirName reports whether name can be used as a single directory
// entry for a project folder.
func CheckDirName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, shellMeta) ||
		strings.ContainsFunc(name, unicode.IsControl) {
		return fmt.Errorf("%q is not a valid directory name.", name)
	}
	return nil
}

// checkProjects validates the child ids of one template: each must be a
// usable directory name and no two may share a folder.
func checkProjects(projects []models.ScaffoldDefinition) error {
	seen := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		if err := CheckDirName(p.ID); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("project %q appears more than once", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
