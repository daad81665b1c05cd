package practice

import "github.com/abhisek/anuvad/internal/tutor"

// sentenceMsg carries a freshly issued sentence.
type sentenceMsg struct {
	Result *tutor.GenerateResult
	Err    error
}

// verdictMsg carries the grade for the submitted translation.
type verdictMsg struct {
	Result *tutor.EvaluateResult
	Err    error
}

// chatMsg carries the tutor's answer to a side question.
type chatMsg struct {
	Result *tutor.ChatResult
	Err    error
}
