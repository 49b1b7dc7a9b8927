// Package sqlitestorage implements inertiaclient.SessionStorage on top of
// SQLite, so the location visit marker survives a restart of the process
// hosting the client.
package sqlitestorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.inout.gg/foundations/debug"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"go.inout.gg/inertiaclient"
)

var _ inertiaclient.SessionStorage = (*Store)(nil)

//nolint:gochecknoglobals
var d = debug.Debuglog("inertiaclient/sqlitestorage")

const schema = `CREATE TABLE IF NOT EXISTS session_storage (
	session    TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      BLOB    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (session, key)
)`

// Store is a SessionStorage persisted in SQLite. Entries are scoped to a
// session name, so several clients can share one database.
type Store struct {
	db      *sql.DB
	now     func() time.Time
	session string
	owned   bool
}

// Open opens the database at path, creating it if needed, and returns a
// Store scoped to session.
func Open(ctx context.Context, path, session string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlitestorage: path is required")
	}

	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestorage: failed to open database: %w", err)
	}

	s, err := New(ctx, db, session)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s.owned = true

	return s, nil
}

// New creates a Store on top of an open database and applies its schema.
func New(ctx context.Context, db *sql.DB, session string) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlitestorage: failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlitestorage: failed to apply schema: %w", err)
	}

	return &Store{db: db, session: session, now: time.Now}, nil //nolint:exhaustruct
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlitestorage: failed to close database: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_storage WHERE session = ? AND key = ?`,
		s.session, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("sqlitestorage: failed to read %q: %w", key, err)
	}

	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_storage (session, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.session, key, value, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlitestorage: failed to write %q: %w", key, err)
	}

	d("stored %q for session %q", key, s.session)

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_storage WHERE session = ? AND key = ?`,
		s.session, key,
	)
	if err != nil {
		return fmt.Errorf("sqlitestorage: failed to delete %q: %w", key, err)
	}

	return nil
}

// Clear removes every entry of the session.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_storage WHERE session = ?`, s.session); err != nil {
		return fmt.Errorf("sqlitestorage: failed to clear session %q: %w", s.session, err)
	}

	return nil
}
