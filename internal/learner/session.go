// Package learner holds per-learner practice state in memory.
package learner

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/abhisek/anuvad/internal/progress"
)

// ErrNotFound is returned when a learner has no session.
var ErrNotFound = errors.New("learner session not found")

// Role tags a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message in the free-chat history.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Attempt is a graded translation.
type Attempt struct {
	Sentence           string             `json:"sentence"`
	Translation        string             `json:"translation"`
	Correct            bool               `json:"correct"`
	Findings           []progress.Finding `json:"findings,omitempty"`
	ErrorDetail        string             `json:"errorDetail,omitempty"`
	CorrectTranslation string             `json:"correctTranslation"`
	SentenceType       string             `json:"sentenceType,omitempty"`
	Topic              string             `json:"topic,omitempty"`
	Level              int                `json:"level,omitempty"`
	GradedAt           time.Time          `json:"gradedAt"`
}

// Session is the full state kept for one learner.
type Session struct {
	LearnerID     string
	CreatedAt     time.Time
	LastActiveAt  time.Time
	Progress      int
	Weaknesses    map[string]int
	UsedSentences map[string]struct{}
	Issued        []string // same sentences as UsedSentences, in issue order
	Attempts      []Attempt
	TypeUsage     map[string]int
	History       []Turn
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		LearnerID:     id,
		CreatedAt:     now,
		LastActiveAt:  now,
		Weaknesses:    make(map[string]int),
		UsedSentences: make(map[string]struct{}),
		TypeUsage:     make(map[string]int),
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Weaknesses = maps.Clone(s.Weaknesses)
	c.UsedSentences = maps.Clone(s.UsedSentences)
	c.Issued = slices.Clone(s.Issued)
	c.TypeUsage = maps.Clone(s.TypeUsage)
	c.History = slices.Clone(s.History)
	c.Attempts = make([]Attempt, len(s.Attempts))
	for i, a := range s.Attempts {
		a.Findings = slices.Clone(a.Findings)
		c.Attempts[i] = a
	}
	return &c
}

// Sentences returns the issued sentences, oldest first.
func (s *Session) Sentences() []string {
	return slices.Clone(s.Issued)
}

// RecentAttempts returns up to n of the most recent attempts, oldest first.
func (s *Session) RecentAttempts(n int) []Attempt {
	if n <= 0 || len(s.Attempts) <= n {
		return s.Attempts
	}
	return s.Attempts[len(s.Attempts)-n:]
}

// Report is the read-only progress view.
type Report struct {
	LearnerID  string         `json:"learnerId"`
	Progress   int            `json:"progress"`
	Weaknesses map[string]int `json:"weaknesses"`
	Attempts   []Attempt      `json:"attemptLog"`
	TypeUsage  map[string]int `json:"sentenceTypeUsage"`
	LastActive time.Time      `json:"lastActiveAt"`
}

// Report builds a Report from the session.
func (s *Session) Report() Report {
	c := s.Clone()
	return Report{
		LearnerID:  c.LearnerID,
		Progress:   c.Progress,
		Weaknesses: c.Weaknesses,
		Attempts:   c.Attempts,
		TypeUsage:  c.TypeUsage,
		LastActive: c.LastActiveAt,
	}
}
