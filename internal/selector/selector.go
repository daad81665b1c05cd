// Package selector picks the sentence type and topic for the next generated
// sentence.
package selector

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Sentence types.
const (
	TypeDeclarative   = "declarative"
	TypeInterrogative = "interrogative"
	TypeNegative      = "negative"
	TypeImperative    = "imperative"
	TypeExclamatory   = "exclamatory"
	TypeCompound      = "compound"
	TypeComplex       = "complex"
	TypeConditional   = "conditional"
)

// DefaultTypes is the balanced set of sentence types.
var DefaultTypes = []string{
	TypeDeclarative,
	TypeInterrogative,
	TypeNegative,
	TypeImperative,
	TypeExclamatory,
	TypeCompound,
	TypeComplex,
	TypeConditional,
}

// Topic is a subject area with a sampling weight.
type Topic struct {
	Name   string
	Weight int
}

// DefaultTopics favours everyday situations.
var DefaultTopics = []Topic{
	{Name: "daily life", Weight: 3},
	{Name: "family", Weight: 3},
	{Name: "food", Weight: 2},
	{Name: "school", Weight: 2},
	{Name: "travel", Weight: 2},
	{Name: "weather", Weight: 1},
	{Name: "health", Weight: 1},
	{Name: "shopping", Weight: 1},
	{Name: "work", Weight: 1},
	{Name: "festivals", Weight: 1},
	{Name: "nature", Weight: 1},
	{Name: "sports", Weight: 1},
}

// Choice is the selector's output.
type Choice struct {
	Type  string
	Topic string
}

// Selector is safe for concurrent use.
type Selector struct {
	types  []string
	topics []Topic
	total  int

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Selector. A nil src seeds from the current time.
func New(types []string, topics []Topic, src rand.Source) *Selector {
	if len(types) == 0 {
		types = DefaultTypes
	}
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}

	s := &Selector{
		types:  append([]string(nil), types...),
		topics: append([]Topic(nil), topics...),
		rng:    rand.New(src),
	}
	for _, t := range s.topics {
		if t.Weight > 0 {
			s.total += t.Weight
		}
	}
	return s
}

// Choose picks a sentence type biased toward under-issued types and a
// topic by weighted sampling. usage maps type to issuance count.
func (s *Selector) Choose(usage map[string]int) Choice {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Choice{
		Type:  s.chooseType(usage),
		Topic: s.chooseTopic(),
	}
}

// Candidates returns the types whose usage is below floor(total/n)+1.
func (s *Selector) Candidates(usage map[string]int) []string {
	total := 0
	for _, t := range s.types {
		total += usage[t]
	}
	threshold := total/len(s.types) + 1

	var out []string
	for _, t := range s.types {
		if usage[t] < threshold {
			out = append(out, t)
		}
	}
	return out
}

func (s *Selector) chooseType(usage map[string]int) string {
	candidates := s.Candidates(usage)
	if len(candidates) == 0 {
		candidates = s.types
	}
	return candidates[s.rng.IntN(len(candidates))]
}

func (s *Selector) chooseTopic() string {
	if s.total <= 0 {
		return s.topics[s.rng.IntN(len(s.topics))].Name
	}
	n := s.rng.IntN(s.total)
	for _, t := range s.topics {
		if t.Weight <= 0 {
			continue
		}
		if n < t.Weight {
			return t.Name
		}
		n -= t.Weight
	}
	return s.topics[len(s.topics)-1].Name
}
