package kv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const watchDebounce = 200 * time.Millisecond

// FileStore keeps every key in one YAML document. Writes are atomic
// (temp file + rename) so readers never observe a partial document.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	closed bool
}

// Compile-time interface compliance checks.
var (
	_ Store   = (*FileStore)(nil)
	_ Watcher = (*FileStore)(nil)
)

// NewFileStore creates a FileStore backed by path. The file is created on
// the first Set.
func NewFileStore(path string, opts ...Option) *FileStore {
	o := buildOptions("kv.file", opts)
	return &FileStore{path: filepath.Clean(path), logger: o.logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, key string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}

	doc, err := s.readLocked()
	if err != nil {
		return false, err
	}
	node, ok := doc[key]
	if !ok || node == nil {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return false, fmt.Errorf("decode %q: %w: %v", key, ErrCorrupt, err)
	}
	return true, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	doc, err := s.readLocked()
	if err != nil {
		// A corrupt document is replaced rather than blocking every write.
		s.logger.Warn("replacing unreadable store document", "path", s.path, "error", err)
		doc = make(map[string]*yaml.Node)
	}

	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	doc[key] = node

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal store document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("write store document: %w", err)
	}

	s.logger.Debug("store key written", "key", key, "path", s.path)
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Watch implements Watcher. The parent directory is watched because atomic
// writes replace the file inode.
func (s *FileStore) Watch(ctx context.Context, fn func()) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go s.watchLoop(ctx, watcher, fn)
	return nil
}

func (s *FileStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, fn func()) {
	defer func() { _ = watcher.Close() }()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Debounce rapid saves into one notification.
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			pending = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("store watcher error", "error", err)

		case <-pending:
			pending = nil
			fn()
		}
	}
}

// readLocked loads the document. Caller must hold mu.
func (s *FileStore) readLocked() (map[string]*yaml.Node, error) {
	doc := make(map[string]*yaml.Node)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %v", s.path, ErrCorrupt, err)
	}
	return doc, nil
}

// atomicWrite writes data to a file atomically using temp file + os.Rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".qpc-store-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // cleanup on error path

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmpName, path)
}
