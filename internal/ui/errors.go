package ui

import "errors"

var (
	// ErrCancelled indicates the user dismissed a prompt.
	ErrCancelled = errors.New("ui: prompt cancelled by user")

	// ErrHeadlessNoDefault indicates a prompt was reached in headless mode
	// without a configured answer.
	ErrHeadlessNoDefault = errors.New("ui: no default answer in headless mode")
)
