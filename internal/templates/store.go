package templates

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/quickproject/qpc/internal/kv"
	"github.com/quickproject/qpc/pkg/models"
)

// StoreKey is the fixed key custom templates are persisted under.
const StoreKey = "customTemplates"

// Listener is notified synchronously after every mutation with a copy of the
// current list.
type Listener func([]models.CustomTemplate)

// @MX:ANCHOR: [AUTO] Store is the single source of truth for custom templates; constructed once in the composition root.
// @MX:REASON: fan_in=4, used by adapter, panel, template commands and tests
// Store is an observable repository of custom templates. The host serializes
// user gestures, so mutations never interleave; the mutex only guards reads
// from watcher callbacks.
type Store struct {
	mu        sync.RWMutex
	backend   kv.Store
	templates []models.CustomTemplate
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates an empty Store persisting through backend. Call Load to
// restore persisted templates.
func NewStore(backend kv.Store, opts ...StoreOption) *Store {
	s := &Store{
		backend:   backend,
		listeners: make(map[int]Listener),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "templates.store")
	return s
}

// Load restores the persisted list. A missing or unreadable value is a valid
// empty state and is only logged.
func (s *Store) Load(ctx context.Context) {
	var loaded []models.CustomTemplate
	found, err := s.backend.Get(ctx, StoreKey, &loaded)
	if err != nil {
		s.logger.Warn("failed to load custom templates, starting empty", "error", err)
		loaded = nil
	} else if !found {
		loaded = nil
	}

	s.mu.Lock()
	s.templates = loaded
	s.mu.Unlock()

	s.logger.Debug("custom templates loaded", "count", len(loaded))
}

// List returns a copy of the current templates in insertion order.
func (s *Store) List() []models.CustomTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.templates)
}

// Get returns the template with the given name.
func (s *Store) Get(name string) (models.CustomTemplate, bool) {
	key := NormalizeName(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.templates {
		if t.Name == key {
			return t.Clone(), true
		}
	}
	return models.CustomTemplate{}, false
}

// Add appends t, persists and notifies. A template whose name already exists
// is rejected with a *NameCollisionError and the list is left untouched.
func (s *Store) Add(ctx context.Context, t models.CustomTemplate) error {
	t = t.Clone()
	t.Name = NormalizeName(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if len(t.Projects) == 0 {
		return fmt.Errorf("%w: template %q has no projects", ErrInvalidTemplate, t.Name)
	}
	if err := checkProjects(t.Projects); err != nil {
		return fmt.Errorf("%w: template %q: %v", ErrInvalidTemplate, t.Name, err)
	}

	s.mu.Lock()
	if s.indexLocked(t.Name) >= 0 {
		s.mu.Unlock()
		return &NameCollisionError{Name: t.Name}
	}
	next := append(cloneAll(s.templates), t)
	s.mu.Unlock()

	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("custom template added", "name", t.Name, "projects", len(t.Projects))
	return nil
}

// Remove deletes the template with the given name. Removing an absent name
// is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	key := NormalizeName(name)

	s.mu.RLock()
	next := slices.DeleteFunc(cloneAll(s.templates), func(t models.CustomTemplate) bool {
		return t.Name == key
	})
	s.mu.RUnlock()

	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("custom template removed", "name", key)
	return nil
}

// RemoveAll clears every template.
func (s *Store) RemoveAll(ctx context.Context) error {
	if err := s.commit(ctx, nil); err != nil {
		return err
	}
	s.logger.Info("all custom templates removed")
	return nil
}

// Subscribe registers fn for change notifications and returns a function
// that unregisters it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Watch reloads the list whenever the backend reports an external change
// and notifies subscribers. Backends that cannot watch make this a no-op.
func (s *Store) Watch(ctx context.Context) error {
	w, ok := s.backend.(kv.Watcher)
	if !ok {
		s.logger.Debug("backend does not support watching")
		return nil
	}
	return w.Watch(ctx, func() {
		s.Load(ctx)
		s.notify()
	})
}

// commit persists next, swaps it in and notifies. The in-memory list is only
// replaced once persistence succeeded.
func (s *Store) commit(ctx context.Context, next []models.CustomTemplate) error {
	if next == nil {
		next = []models.CustomTemplate{}
	}
	if err := s.backend.Set(ctx, StoreKey, next); err != nil {
		return fmt.Errorf("persist custom templates: %w", err)
	}

	s.mu.Lock()
	s.templates = next
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) notify() {
	s.mu.RLock()
	snapshot := cloneAll(s.templates)
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(cloneAll(snapshot))
	}
}

// indexLocked returns the index of name or -1. Caller must hold mu.
func (s *Store) indexLocked(name string) int {
	return slices.IndexFunc(s.templates, func(t models.CustomTemplate) bool {
		return t.Name == name
	})
}

// NormalizeName trims surrounding space and applies Unicode NFC so visually
// identical names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func cloneAll(in []models.CustomTemplate) []models.CustomTemplate {
	out := make([]models.CustomTemplate, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
