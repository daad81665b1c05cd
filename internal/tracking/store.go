// Package tracking binds issued sentences to one-time codes that are redeemed
// when the learner submits a translation.
package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/anuvad/internal/clock"
)

var (
	// ErrNotFound is returned for unknown, consumed or expired codes.
	ErrNotFound = errors.New("tracking code not found or expired")

	// ErrCodeCollision means a freshly generated code was already bound.
	ErrCodeCollision = errors.New("tracking code collision")
)

// Entry is what a code is bound to.
type Entry struct {
	Code         string
	Sentence     string
	LearnerID    string
	Level        int
	SentenceType string
	Topic        string
	IssuedAt     time.Time
}

// Store holds outstanding codes. All operations serialize on one mutex.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	clock   clock.Clock
	newCode func() string
}

// Option configures a Store.
type Option func(*Store)

// WithCodeGenerator replaces the UUID generator.
func WithCodeGenerator(fn func() string) Option {
	return func(s *Store) { s.newCode = fn }
}

// NewStore creates a Store whose entries expire after ttl.
func NewStore(clk clock.Clock, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]Entry),
		ttl:     ttl,
		clock:   clk,
		newCode: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Issue stores e under a new code and returns the code. Code and IssuedAt
// on e are overwritten.
func (s *Store) Issue(_ context.Context, e Entry) (string, error) {
	code := s.newCode()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[code]; exists {
		return "", ErrCodeCollision
	}
	e.Code = code
	e.IssuedAt = s.clock.Now()
	s.entries[code] = e
	return code, nil
}

// Consume removes and returns the entry bound to code. A second call with
// the same code returns ErrNotFound.
func (s *Store) Consume(_ context.Context, code string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[code]
	if !ok {
		return Entry{}, ErrNotFound
	}
	delete(s.entries, code)

	if s.expired(e) {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// EvictOlderThan removes every entry issued before cutoff.
func (s *Store) EvictOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for code, e := range s.entries {
		if e.IssuedAt.Before(cutoff) {
			delete(s.entries, code)
			n++
		}
	}
	return n, nil
}

// Len returns the number of outstanding codes, expired ones included until
// they are swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) expired(e Entry) bool {
	return s.ttl > 0 && e.IssuedAt.Before(s.clock.Now().Add(-s.ttl))
}
