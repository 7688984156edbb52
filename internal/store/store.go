package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no value is stored under a key.
	ErrNotFound = errors.New("no value stored for key")
)

// Storage is the persistence handle a forecast client caches into.
// Implementations must be safe for concurrent use.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// DefaultTTL applies when an Expiry is left at its zero value.
const DefaultTTL = time.Hour

// Expiry is the lifetime policy for cached entries: never, or a duration.
type Expiry struct {
	never bool
	ttl   time.Duration
}

// Never keeps entries until they are overwritten or removed.
func Never() Expiry { return Expiry{never: true} }

// After expires entries d after they were written.
func After(d time.Duration) Expiry { return Expiry{ttl: d} }

// Never reports whether entries never expire.
func (e Expiry) Never() bool { return e.never }

// TTL returns the entry lifetime, DefaultTTL for the zero value.
func (e Expiry) TTL() time.Duration {
	if e.ttl <= 0 {
		return DefaultTTL
	}
	return e.ttl
}

// ExpiresAt returns the expiry instant of an entry written at t, and false
// when the entry never expires.
func (e Expiry) ExpiresAt(t time.Time) (time.Time, bool) {
	if e.never {
		return time.Time{}, false
	}
	return t.Add(e.TTL()), true
}

func (e Expiry) String() string {
	if e.never {
		return "never"
	}
	return e.TTL().String()
}

// ParseExpiry accepts "never" or a Go duration string. Empty means default.
func ParseExpiry(s string) (Expiry, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return Expiry{}, nil
	case "never":
		return Never(), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Expiry{}, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	if d <= 0 {
		return Expiry{}, fmt.Errorf("invalid expiry %q: must be positive", s)
	}
	return After(d), nil
}
