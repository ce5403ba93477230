package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/quickproject/qpc/internal/resilience"
)

// busyPolicy retries statements while another qpc process holds the
// database lock.
var busyPolicy = resilience.Policy{
	MaxRetries: 6,
	BaseDelay:  20 * time.Millisecond,
	MaxDelay:   500 * time.Millisecond,
	UseJitter:  true,
	Retryable:  isBusy,
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	default:
		return false
	}
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLStore keeps values JSON-encoded in a SQLite table.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Compile-time interface compliance check.
var _ Store = (*SQLStore)(nil)

// OpenSQLStore opens (and creates when missing) the SQLite database at path.
func OpenSQLStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	o := buildOptions("kv.sqlite", opts)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; the CLI never issues concurrent statements.
	db.SetMaxOpenConns(1)

	err = resilience.Retry(ctx, busyPolicy, func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, createTableSQL)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	o.logger.Debug("sqlite store opened", "path", path)
	return &SQLStore{db: db, logger: o.logger}, nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string, out any) (bool, error) {
	var raw string
	err := resilience.Retry(ctx, busyPolicy, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %q: %w: %v", key, ErrCorrupt, err)
	}
	return true, nil
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	err = resilience.Retry(ctx, busyPolicy, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, string(data))
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	s.logger.Debug("store key written", "key", key)
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
