// Package progress turns graded translation attempts into a bounded
// proficiency score and per-category weakness counters.
package progress

import "strings"

// Grammar categories the grader is asked to report against.
const (
	CategorySpelling    = "spelling"
	CategoryGrammar     = "grammar"
	CategoryTense       = "tense"
	CategorySyntax      = "syntax"
	CategoryVocabulary  = "vocabulary"
	CategoryWordOrder   = "word_order"
	CategoryArticle     = "article"
	CategoryPreposition = "preposition"
	CategoryPunctuation = "punctuation"
)

// Categories lists the known categories in prompt order.
var Categories = []string{
	CategorySpelling,
	CategoryGrammar,
	CategoryTense,
	CategorySyntax,
	CategoryVocabulary,
	CategoryWordOrder,
	CategoryArticle,
	CategoryPreposition,
	CategoryPunctuation,
}

// Finding is one problem the grader found in an attempt.
type Finding struct {
	Category string `json:"category"`
	Detail   string `json:"detail"`
}

// Verdict is the part of a graded attempt the engine cares about.
type Verdict struct {
	Correct  bool
	Findings []Finding
}

// Outcome is the result of applying a verdict.
type Outcome struct {
	Progress   int
	Weaknesses map[string]int
}

// Policy holds the scoring rules.
type Policy struct {
	CorrectDelta   int
	IncorrectDelta int
	Min            int
	Max            int

	// Weights overrides DefaultWeight for individual categories.
	Weights       map[string]int
	DefaultWeight int
}

// DefaultPolicy returns +2 / -1 scoring clamped to [0, 100], with every
// category weighted 1.
func DefaultPolicy() Policy {
	return Policy{
		CorrectDelta:   2,
		IncorrectDelta: -1,
		Min:            0,
		Max:            100,
		DefaultWeight:  1,
	}
}

// Apply computes the new progress and weakness counters for a verdict.
// The weaknesses argument is not modified; a fresh map is returned.
func (p Policy) Apply(current int, weaknesses map[string]int, v Verdict) Outcome {
	out := Outcome{Weaknesses: make(map[string]int, len(weaknesses)+len(v.Findings))}
	for k, n := range weaknesses {
		out.Weaknesses[k] = n
	}

	if v.Correct {
		out.Progress = p.clamp(current + p.CorrectDelta)
		return out
	}

	out.Progress = p.clamp(current + p.IncorrectDelta)
	for _, f := range v.Findings {
		cat := NormalizeCategory(f.Category)
		if cat == "" || strings.TrimSpace(f.Detail) == "" {
			continue
		}
		out.Weaknesses[cat] += p.weight(cat)
	}
	return out
}

func (p Policy) weight(cat string) int {
	if w, ok := p.Weights[cat]; ok {
		return w
	}
	return p.DefaultWeight
}

func (p Policy) clamp(v int) int {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

// NormalizeCategory lower-cases a category and joins words with underscores.
func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	return strings.Join(strings.FieldsFunc(c, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
