package learner

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/anuvad/internal/clock"
	"github.com/abhisek/anuvad/internal/progress"
)

// MemoryStore keeps sessions in a map guarded by one lock. All state is
// lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clock.Clock
	policy   progress.Policy
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(clk clock.Clock, policy progress.Policy) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		clock:    clk,
		policy:   policy,
	}
}

// getOrCreateLocked must be called with mu held for writing.
func (s *MemoryStore) getOrCreateLocked(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(id, s.clock.Now())
		s.sessions[id] = sess
	}
	return sess
}

// GetOrCreate returns a copy of the learner's session, creating an empty
// one if none exists.
func (s *MemoryStore) GetOrCreate(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(id).Clone(), nil
}

// Touch marks the session active now. Unknown learners are ignored.
func (s *MemoryStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.LastActiveAt = s.clock.Now()
	}
	return nil
}

// RecordAttempt appends a graded attempt and applies the scoring policy.
// It returns the updated report.
func (s *MemoryStore) RecordAttempt(_ context.Context, id string, a Attempt) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	out := s.policy.Apply(sess.Progress, sess.Weaknesses, progress.Verdict{
		Correct:  a.Correct,
		Findings: a.Findings,
	})

	now := s.clock.Now()
	if a.GradedAt.IsZero() {
		a.GradedAt = now
	}
	sess.Attempts = append(sess.Attempts, a)
	sess.Progress = out.Progress
	sess.Weaknesses = out.Weaknesses
	sess.LastActiveAt = now

	return sess.Report(), nil
}

// MarkSentenceUsed records a sentence as issued. It reports false, without
// changing anything, when the sentence was already issued to this learner.
func (s *MemoryStore) MarkSentenceUsed(_ context.Context, id, sentence string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	if _, dup := sess.UsedSentences[sentence]; dup {
		return false, nil
	}
	sess.UsedSentences[sentence] = struct{}{}
	sess.Issued = append(sess.Issued, sentence)
	return true, nil
}

// ForgetSentence undoes MarkSentenceUsed. It is a no-op for a sentence that
// was never issued or a learner that has no session.
func (s *MemoryStore) ForgetSentence(_ context.Context, id, sentence string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if _, used := sess.UsedSentences[sentence]; !used {
		return nil
	}
	delete(sess.UsedSentences, sentence)
	if i := slices.Index(sess.Issued, sentence); i >= 0 {
		sess.Issued = slices.Delete(sess.Issued, i, i+1)
	}
	return nil
}

// HasSentenceBeenUsed reports whether sentence was issued to the learner.
func (s *MemoryStore) HasSentenceBeenUsed(_ context.Context, id, sentence string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	_, used := sess.UsedSentences[sentence]
	return used, nil
}

// RecordSentenceType increments the issuance count for a sentence type.
func (s *MemoryStore) RecordSentenceType(_ context.Context, id, sentenceType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreateLocked(id).TypeUsage[sentenceType]++
	return nil
}

// AppendHistory appends chat turns to the learner's conversation.
func (s *MemoryStore) AppendHistory(_ context.Context, id string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	now := s.clock.Now()
	for _, t := range turns {
		if t.At.IsZero() {
			t.At = now
		}
		sess.History = append(sess.History, t)
	}
	sess.LastActiveAt = now
	return nil
}

// Snapshot returns the learner's report or ErrNotFound.
func (s *MemoryStore) Snapshot(_ context.Context, id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return sess.Report(), nil
}

// EvictOlderThan deletes every session last active before cutoff and
// returns how many were removed.
func (s *MemoryStore) EvictOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.LastActiveAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
