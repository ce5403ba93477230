// Package templates implements the custom template store: an observable
// repository over the user's named scaffold bundles, persisted through a
// key-value store and shared by every consumer.
package templates

import (
	"errors"
	"fmt"
)

// Sentinel errors for the templates package.
var (
	// ErrNameCollision indicates a template with the same name already exists.
	ErrNameCollision = errors.New("templates: name already exists")

	// ErrInvalidTemplate indicates a template without a name or projects.
	ErrInvalidTemplate = errors.New("templates: invalid template")

	// ErrInvalidBundle indicates an import document failed validation.
	ErrInvalidBundle = errors.New("templates: invalid bundle")

	// ErrUnsupportedVersion indicates an import document with an
	// incompatible bundle version.
	ErrUnsupportedVersion = errors.New("templates: unsupported bundle version")
)

// NameCollisionError carries the colliding template name.
type NameCollisionError struct {
	Name string
}

// Error implements the error interface.
func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("a template named %q already exists", e.Name)
}

// Unwrap returns ErrNameCollision.
func (e *NameCollisionError) Unwrap() error {
	return ErrNameCollision
}
