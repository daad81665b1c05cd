package evaluator

import (
	"strings"

	"github.com/abhisek/anuvad/internal/progress"
)

const (
	StatusCorrect   = "correct"
	StatusIncorrect = "incorrect"
)

// Why explains an incorrect verdict. Both fields are in Bengali.
type Why struct {
	IncorrectReason       string `json:"incorrect_reason"`
	CorrectionExplanation string `json:"correction_explanation"`
}

// Verdict is the grader's structured answer.
type Verdict struct {
	Status             string             `json:"status"`
	Message            string             `json:"message"`
	Errors             []progress.Finding `json:"errors"`
	Why                Why                `json:"why"`
	CorrectTranslation string             `json:"correct_translation"`
}

// Correct reports whether the translation was accepted.
func (v *Verdict) Correct() bool {
	return v.Status == StatusCorrect
}

// Progress converts the verdict into the input of the progress policy.
// Findings on a correct verdict are ignored.
func (v *Verdict) Progress() progress.Verdict {
	if v.Correct() {
		return progress.Verdict{Correct: true}
	}
	return progress.Verdict{Findings: v.Errors}
}

// ErrorSummary flattens the findings into one line for the attempt log.
func (v *Verdict) ErrorSummary() string {
	var parts []string
	for _, f := range v.Errors {
		if f.Detail == "" {
			continue
		}
		parts = append(parts, progress.NormalizeCategory(f.Category)+": "+f.Detail)
	}
	return strings.Join(parts, "; ")
}
