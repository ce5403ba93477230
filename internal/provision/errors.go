// Package provision materializes scaffolds on disk. It prepares target
// directories, opens one command session per scaffold and waits for every
// session to close before reporting progress.
package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quickproject/qpc/internal/session"
)

// Sentinel errors for the provision package.
var (
	// ErrAborted indicates the user declined to overwrite an existing target.
	ErrAborted = errors.New("provision: aborted by user")

	// ErrDirectoryCreation indicates a directory could not be created or removed.
	ErrDirectoryCreation = errors.New("provision: directory creation failed")

	// ErrCommandFailed indicates a scaffold command closed with a non-zero
	// or missing exit status.
	ErrCommandFailed = errors.New("provision: command failed")

	// ErrMissingTemplate indicates a referenced custom template does not exist.
	ErrMissingTemplate = errors.New("provision: custom template not found")

	// ErrEmptyTemplate indicates a custom template without projects.
	ErrEmptyTemplate = errors.New("provision: custom template has no projects")

	// ErrChildFailures indicates one or more template projects failed.
	ErrChildFailures = errors.New("provision: template projects failed")
)

// DirectoryCreationError records the path that could not be prepared.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("failed to create directory %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDirectoryCreation.
func (e *DirectoryCreationError) Is(target error) bool { return target == ErrDirectoryCreation }

// CommandFailedError records the exit status of a failed scaffold command.
type CommandFailedError struct {
	Status session.ExitStatus
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("Command failed with exit code %s", e.Status)
}

// Unwrap returns ErrCommandFailed.
func (e *CommandFailedError) Unwrap() error { return ErrCommandFailed }

// MissingTemplateError records the name of a template that was not found.
type MissingTemplateError struct {
	Name string
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("Custom template %q not found.", e.Name)
}

// Unwrap returns ErrMissingTemplate.
func (e *MissingTemplateError) Unwrap() error { return ErrMissingTemplate }

// ChildFailure is one template project that closed unsuccessfully.
type ChildFailure struct {
	ID     string
	Label  string
	Status session.ExitStatus
}

// ChildFailuresError collects every failed project of a template run.
type ChildFailuresError struct {
	Failures []ChildFailure
}

func (e *ChildFailuresError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%s) exited with code %s", f.Label, f.ID, f.Status))
	}
	return fmt.Sprintf("%d project(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap returns ErrChildFailures.
func (e *ChildFailuresError) Unwrap() error { return ErrChildFailures }
