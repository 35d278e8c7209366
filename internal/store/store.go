// Package store is the SQLite-backed ordered collection store: items ranked
// within containers, containers ranked within columns, and per-scope change
// notifications.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"planner-cli/internal/model"

	_ "modernc.org/sqlite"
)

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
	now  func() time.Time
	hub  *hub

	// sqlite allows one writer; transactions run on a single connection.
	writeMu sync.Mutex

	closeOnce sync.Once
}

// Open opens (creating if needed) the store at path.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL enables one writer + many readers across processes; busy_timeout avoids
	// "database is locked" when another process holds the write lock.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
		log:  slog.Default(),
		now:  func() time.Time { return time.Now().UTC() },
		hub:  newHub(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Close closes the database and every open subscription.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.hub.closeAll()
		err = s.db.Close()
	})
	return err
}

// withTx runs fn in a write transaction and publishes the scopes it reports
// as changed once the transaction has committed.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) ([]model.Scope, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	changed, err := fn(tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	if len(changed) > 0 {
		s.log.Debug("store write committed", "op", op, "scopes", scopeKeys(changed))
		s.hub.publish(true, changed...)
	}
	return nil
}

func (s *Store) nowMs() int64 { return s.now().UnixMilli() }

func scopeKeys(scopes []model.Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		out = append(out, sc.Key())
	}
	return out
}
