// Package evaluator writes practice sentences, grades translations and
// answers free-form questions using a generative model.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/abhisek/anuvad/internal/llm"
)

// SentenceRequest is the context for writing one practice sentence.
type SentenceRequest struct {
	Level        int
	SentenceType string
	Topic        string
	Weaknesses   map[string]int
	Recent       []PastAttempt

	// Avoid lists sentences already given to the learner, oldest first.
	Avoid []string
}

// PastAttempt summarises a graded attempt for the sentence writer.
type PastAttempt struct {
	Sentence    string
	Translation string
	Correct     bool
	ErrorDetail string
}

// GradeRequest is a Bengali sentence and the learner's English attempt.
type GradeRequest struct {
	Bengali string
	English string
}

// ChatTurn is one prior exchange in a free chat.
type ChatTurn struct {
	FromModel bool
	Text      string
}

// ChatRequest is a question plus prior turns, oldest first.
type ChatRequest struct {
	Question string
	History  []ChatTurn
}

// LLMEvaluator implements the tutor's evaluator on top of an llm.Provider.
type LLMEvaluator struct {
	provider llm.Provider
	config   Config
}

// New creates an LLMEvaluator.
func New(provider llm.Provider, cfg Config) *LLMEvaluator {
	return &LLMEvaluator{provider: provider, config: cfg}
}

type sentenceOutput struct {
	Sentence string `json:"sentence"`
}

// GenerateSentence asks the model for one Bengali sentence. A reply without
// Bengali script is reported as *llm.ErrInvalidResponse.
func (e *LLMEvaluator) GenerateSentence(ctx context.Context, req SentenceRequest) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeSentence)

	resp, err := e.provider.Generate(ctx, llm.Request{
		System:      sentenceSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildSentenceMessage(req, e.config)}},
		Schema:      SentenceSchema,
		MaxTokens:   e.config.SentenceMaxTokens,
		Temperature: e.config.SentenceTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("sentence generation failed: %w", err)
	}

	var out sentenceOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}

	sentence := strings.TrimSpace(out.Sentence)
	if !hasBengali(sentence) {
		return "", &llm.ErrInvalidResponse{
			Content: resp.Content,
			Err:     errors.New("sentence contains no Bengali script"),
		}
	}
	return sentence, nil
}

// Grade asks the model for a verdict on a session attempt.
func (e *LLMEvaluator) Grade(ctx context.Context, req GradeRequest) (*Verdict, error) {
	return e.grade(llm.WithPurpose(ctx, llm.PurposeGrade), req)
}

// Check grades a pair outside of any learner session.
func (e *LLMEvaluator) Check(ctx context.Context, req GradeRequest) (*Verdict, error) {
	return e.grade(llm.WithPurpose(ctx, llm.PurposeCheck), req)
}

func (e *LLMEvaluator) grade(ctx context.Context, req GradeRequest) (*Verdict, error) {
	resp, err := e.provider.Generate(ctx, llm.Request{
		System:    gradeSystemPrompt,
		Messages:  buildGradeMessages(req),
		Schema:    VerdictSchema,
		MaxTokens: e.config.GradeMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("grading failed: %w", err)
	}

	var v Verdict
	if err := json.Unmarshal(resp.Content, &v); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	return &v, nil
}

// Chat answers a free-form question. The reply is plain text.
func (e *LLMEvaluator) Chat(ctx context.Context, req ChatRequest) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeChat)

	resp, err := e.provider.Generate(ctx, llm.Request{
		System:    chatSystemPrompt,
		Messages:  buildChatMessages(req, e.config.MaxHistoryTurns),
		MaxTokens: e.config.ChatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", &llm.ErrInvalidResponse{Content: resp.Content, Err: errors.New("empty reply")}
	}
	return text, nil
}

func hasBengali(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Bengali, r) {
			return true
		}
	}
	return false
}
