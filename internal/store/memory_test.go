package store

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSetGetRemove(t *testing.T) {
	s := NewMemoryStore(0, 0)

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set("a", []byte("one")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "one" {
		t.Fatalf("expected %q, got %q", "one", got)
	}

	// Returned slices must not alias stored data.
	got[0] = 'X'
	again, _ := s.Get("a")
	if string(again) != "one" {
		t.Fatalf("stored value was mutated through returned slice: %q", again)
	}

	if err := s.Remove("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if err := s.Remove("a"); err != nil {
		t.Fatalf("removing a missing key should not fail: %v", err)
	}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)

	_ = s.Set("a", []byte("1"))
	_ = s.Set("b", []byte("2"))
	_ = s.Set("c", []byte("3"))

	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
	if _, err := s.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("oldest entry should have been evicted, got %v", err)
	}

	// Overwriting moves a key to the newest position.
	_ = s.Set("b", []byte("2b"))
	_ = s.Set("d", []byte("4"))
	if _, err := s.Get("c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected c to be evicted, got %v", err)
	}
	if v, err := s.Get("b"); err != nil || string(v) != "2b" {
		t.Fatalf("expected b=2b, got %q (%v)", v, err)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	_ = s.Set("old", []byte("1"))

	now = now.Add(2 * time.Hour)
	if _, err := s.Get("old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected aged entry to be hidden, got %v", err)
	}

	_ = s.Set("new", []byte("2"))
	if s.Len() != 1 {
		t.Fatalf("expected aged entry to be pruned on write, have %d entries", s.Len())
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		never   bool
		wantErr bool
	}{
		{in: "", want: DefaultTTL.String()},
		{in: "never", want: "never", never: true},
		{in: "NEVER", want: "never", never: true},
		{in: "15m", want: "15m0s"},
		{in: "-1m", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := ParseExpiry(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.String() != tt.want {
				t.Errorf("ParseExpiry(%q) = %s, want %s", tt.in, e, tt.want)
			}
			if e.Never() != tt.never {
				t.Errorf("ParseExpiry(%q).Never() = %v, want %v", tt.in, e.Never(), tt.never)
			}
		})
	}
}

func TestExpiryExpiresAt(t *testing.T) {
	written := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, ok := Never().ExpiresAt(written); ok {
		t.Fatal("never expiry should not report an expiry instant")
	}

	at, ok := After(10 * time.Minute).ExpiresAt(written)
	if !ok || !at.Equal(written.Add(10*time.Minute)) {
		t.Fatalf("unexpected expiry %v (%v)", at, ok)
	}

	at, ok = Expiry{}.ExpiresAt(written)
	if !ok || !at.Equal(written.Add(DefaultTTL)) {
		t.Fatalf("zero expiry should use default ttl, got %v", at)
	}
}
