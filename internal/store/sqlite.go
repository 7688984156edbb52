package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore is a Storage backed by a SQLite database file, so cached
// forecasts survive restarts.
type SQLiteStore struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
// Entries older than maxAge are treated as missing and pruned on write;
// maxAge <= 0 keeps them forever.
func OpenSQLite(path string, maxAge time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, maxAge: maxAge, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Get(key string) ([]byte, error) {
	var (
		value   []byte
		written int64
	)
	err := s.db.QueryRow(`SELECT value, written_at FROM cache_entries WHERE key = ?`, key).Scan(&value, &written)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	if s.maxAge > 0 && time.UnixMilli(written).Before(s.now().Add(-s.maxAge)) {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *SQLiteStore) Set(key string, value []byte) error {
	now := s.now()
	_, err := s.db.Exec(
		`INSERT INTO cache_entries (key, value, written_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, written_at = excluded.written_at`,
		key, value, now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if s.maxAge > 0 {
		cutoff := now.Add(-s.maxAge).UnixMilli()
		if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE written_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune entries: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
