package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupSQLiteStore(t *testing.T, maxAge time.Duration) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), maxAge)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := setupSQLiteStore(t, 0)

	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set("k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("got %q", got)
	}

	if err := s.Set("k", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Get("k")
	if string(got) != `{"a":2}` {
		t.Fatalf("overwrite not applied, got %q", got)
	}

	if err := s.Remove("k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestSQLiteStoreMaxAge(t *testing.T) {
	s := setupSQLiteStore(t, time.Hour)

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Set("old", []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = now.Add(90 * time.Minute)
	if _, err := s.Get("old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected aged entry to be hidden, got %v", err)
	}

	if err := s.Set("new", []byte("y")); err != nil {
		t.Fatalf("set: %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected aged entry to be pruned, have %d rows", n)
	}
}
