// Package portcache persists the discovered bridge port between sessions in
// a small sqlite key/value table, the overlay's equivalent of the client's
// local storage.
package portcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("no cached port")

type Store struct {
	db  *sql.DB
	key string
}

// Open creates or opens the cache database at path. The port is stored
// under key.
func Open(path, key string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, key: key}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the cached port or ErrNotFound. A stored value that is not a
// valid port is treated as absent.
func (s *Store) Load(ctx context.Context) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, ErrNotFound
	}
	return port, nil
}

func (s *Store) Save(ctx context.Context, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO local_storage (key, value, updated_at)
		VALUES (?, ?, ?)`,
		s.key, strconv.Itoa(port), time.Now().UnixMilli())
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, s.key)
	return err
}
