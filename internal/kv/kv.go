// Package kv provides the persistent key-value storage used for custom
// templates. Two backends exist: a single YAML document on disk and a SQLite
// table. Values are encoded by the backend; callers pass Go values.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Sentinel errors for the kv package.
var (
	// ErrCorrupt indicates a stored value could not be decoded.
	ErrCorrupt = errors.New("kv: corrupt value")

	// ErrUnknownBackend indicates an unsupported backend name.
	ErrUnknownBackend = errors.New("kv: unknown backend")

	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("kv: store closed")
)

// Store is a persistent key-value store.
type Store interface {
	// Get decodes the value stored under key into out. It reports false with
	// a nil error when the key is absent.
	Get(ctx context.Context, key string, out any) (bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error

	// Close releases backend resources.
	Close() error
}

// Watcher is implemented by stores that can report changes made by other
// processes.
type Watcher interface {
	// Watch invokes fn after the backing storage changed on disk. It returns
	// once the watch is established; watching stops when ctx is done.
	Watch(ctx context.Context, fn func()) error
}

// Open creates the store for the given backend at path.
func Open(ctx context.Context, backend, path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch backend {
	case "", BackendFile:
		return NewFileStore(path, WithLogger(logger)), nil
	case BackendSQLite:
		return OpenSQLStore(ctx, path, WithLogger(logger))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// options shared by both backends.
type options struct {
	logger *slog.Logger
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(module string, opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("module", module)
	return o
}
