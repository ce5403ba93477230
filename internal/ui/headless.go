package ui

import (
	"maps"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Default answer keys consulted by the headless prompter.
const (
	KeyProjectName  = "project_name"
	KeyScaffold     = "scaffold"
	KeyOverwrite    = "overwrite"
	KeyDeleteAll    = "delete_all"
	KeyTemplateName = "template_name"
	KeyChildName    = "child_name"
	KeyAddAnother   = "add_another"
)

// HeadlessManager decides whether prompts may be shown and holds the
// answers used when they may not.
type HeadlessManager struct {
	mu       sync.RWMutex
	forced   *bool
	defaults map[string]string
	fd       uintptr
}

// NewHeadlessManager creates a HeadlessManager that detects headless mode
// from the TTY state of os.Stdin.
func NewHeadlessManager() *HeadlessManager {
	return &HeadlessManager{fd: os.Stdin.Fd()}
}

// IsHeadless returns true when prompts must not be shown. ForceHeadless
// overrides TTY detection.
func (h *HeadlessManager) IsHeadless() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.forced != nil {
		return *h.forced
	}
	return !isatty.IsTerminal(h.fd) && !isatty.IsCygwinTerminal(h.fd)
}

// ForceHeadless overrides TTY detection.
func (h *HeadlessManager) ForceHeadless(force bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forced = &force
}

// ClearForce reverts to automatic TTY detection.
func (h *HeadlessManager) ClearForce() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forced = nil
}

// SetDefaults replaces the stored answers. Keys are the Key* constants.
func (h *HeadlessManager) SetDefaults(defaults map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(defaults) == 0 {
		h.defaults = nil
		return
	}
	h.defaults = make(map[string]string, len(defaults))
	maps.Copy(h.defaults, defaults)
}

// SetDefault stores a single answer.
func (h *HeadlessManager) SetDefault(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.defaults == nil {
		h.defaults = make(map[string]string)
	}
	h.defaults[key] = value
}

// GetDefault retrieves an answer by key.
func (h *HeadlessManager) GetDefault(key string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.defaults[key]
	return v, ok
}
