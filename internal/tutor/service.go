// Package tutor implements the practice loop: issuing sentences, grading
// translations, free chat and progress reports.
package tutor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/anuvad/internal/clock"
	"github.com/abhisek/anuvad/internal/evaluator"
	"github.com/abhisek/anuvad/internal/learner"
	"github.com/abhisek/anuvad/internal/llm"
	"github.com/abhisek/anuvad/internal/progress"
	"github.com/abhisek/anuvad/internal/selector"
	"github.com/abhisek/anuvad/internal/tracking"
)

// Sessions is the learner state the service needs.
type Sessions interface {
	GetOrCreate(ctx context.Context, id string) (*learner.Session, error)
	Touch(ctx context.Context, id string) error
	MarkSentenceUsed(ctx context.Context, id, sentence string) (bool, error)
	ForgetSentence(ctx context.Context, id, sentence string) error
	RecordSentenceType(ctx context.Context, id, sentenceType string) error
	RecordAttempt(ctx context.Context, id string, a learner.Attempt) (learner.Report, error)
	AppendHistory(ctx context.Context, id string, turns ...learner.Turn) error
	Snapshot(ctx context.Context, id string) (learner.Report, error)
}

// Codes issues and redeems tracking codes.
type Codes interface {
	Issue(ctx context.Context, e tracking.Entry) (string, error)
	Consume(ctx context.Context, code string) (tracking.Entry, error)
}

// Evaluator writes sentences, grades translations and chats.
type Evaluator interface {
	GenerateSentence(ctx context.Context, req evaluator.SentenceRequest) (string, error)
	Grade(ctx context.Context, req evaluator.GradeRequest) (*evaluator.Verdict, error)
	Check(ctx context.Context, req evaluator.GradeRequest) (*evaluator.Verdict, error)
	Chat(ctx context.Context, req evaluator.ChatRequest) (string, error)
}

// Chooser picks the next sentence type and topic.
type Chooser interface {
	Choose(usage map[string]int) selector.Choice
}

// AttemptEvent is a graded attempt as written to the audit log.
type AttemptEvent struct {
	LearnerID          string
	TrackingCode       string
	Sentence           string
	Translation        string
	Correct            bool
	ErrorDetail        string
	CorrectTranslation string
	SentenceType       string
	Topic              string
	Level              int
	ProgressAfter      int
	GradedAt           time.Time
}

// AttemptRecorder persists graded attempts outside the in-memory store.
type AttemptRecorder interface {
	AppendAttempt(ctx context.Context, ev AttemptEvent) error
}

// Options tunes the service.
type Options struct {
	// MaxGenerationAttempts bounds how many sentences are requested before
	// giving up on finding one the learner has not seen.
	MaxGenerationAttempts int

	// MaxHistoryTurns is how many chat turns are replayed to the model.
	MaxHistoryTurns int

	// MaxRecentAttempts is how many graded attempts are shown to the
	// sentence writer. Zero means all of them.
	MaxRecentAttempts int
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		MaxGenerationAttempts: 5,
		MaxHistoryTurns:       20,
		MaxRecentAttempts:     5,
	}
}

// Service is the tutor's application layer. It is safe for concurrent use;
// no store lock is held while the evaluator runs.
type Service struct {
	sessions Sessions
	codes    Codes
	eval     Evaluator
	chooser  Chooser
	clock    clock.Clock
	recorder AttemptRecorder
	opts     Options
	logger   *slog.Logger
}

// Deps groups the collaborators of a Service. Recorder and Logger are
// optional.
type Deps struct {
	Sessions  Sessions
	Codes     Codes
	Evaluator Evaluator
	Chooser   Chooser
	Clock     clock.Clock
	Recorder  AttemptRecorder
	Logger    *slog.Logger
}

// New creates a Service.
func New(d Deps, opts Options) *Service {
	if opts.MaxGenerationAttempts < 1 {
		opts.MaxGenerationAttempts = 1
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		sessions: d.Sessions,
		codes:    d.Codes,
		eval:     d.Evaluator,
		chooser:  d.Chooser,
		clock:    d.Clock,
		recorder: d.Recorder,
		opts:     opts,
		logger:   d.Logger,
	}
}

// GenerateInput asks for a new sentence.
type GenerateInput struct {
	LearnerID string
	Level     int
}

// GenerateResult is an issued sentence.
type GenerateResult struct {
	Sentence     string `json:"sentence"`
	TrackingCode string `json:"trackingCode"`
	Progress     int    `json:"progress"`
	SentenceType string `json:"sentenceType"`
	Topic        string `json:"topic"`
}

// Generate issues a sentence the learner has not seen before, bound to a
// fresh tracking code.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	in.LearnerID = strings.TrimSpace(in.LearnerID)
	if in.LearnerID == "" {
		return nil, missing("learnerId")
	}
	if in.Level < 1 || in.Level > 100 {
		return nil, &ValidationError{Field: "level", Message: "must be between 1 and 100"}
	}

	ctx = llm.WithLearner(ctx, in.LearnerID)

	sess, err := s.sessions.GetOrCreate(ctx, in.LearnerID)
	if err != nil {
		return nil, err
	}
	choice := s.chooser.Choose(sess.TypeUsage)

	req := evaluator.SentenceRequest{
		Level:        in.Level,
		SentenceType: choice.Type,
		Topic:        choice.Topic,
		Weaknesses:   sess.Weaknesses,
		Recent:       pastAttempts(sess.RecentAttempts(s.opts.MaxRecentAttempts)),
		Avoid:        sess.Sentences(),
	}

	var last error
	for attempt := 1; attempt <= s.opts.MaxGenerationAttempts; attempt++ {
		sentence, err := s.eval.GenerateSentence(ctx, req)
		if err != nil {
			cerr := classify(err)
			var fe *EvaluatorFormatError
			if !errors.As(cerr, &fe) {
				return nil, cerr
			}
			s.logger.Warn("tutor: unusable sentence", "learner", in.LearnerID, "attempt", attempt, "error", err)
			last = cerr
			continue
		}

		fresh, err := s.sessions.MarkSentenceUsed(ctx, in.LearnerID, sentence)
		if err != nil {
			return nil, err
		}
		if !fresh {
			s.logger.Debug("tutor: duplicate sentence", "learner", in.LearnerID, "attempt", attempt)
			req.Avoid = append(req.Avoid, sentence)
			last = nil
			continue
		}

		code, err := s.codes.Issue(ctx, tracking.Entry{
			Sentence:     sentence,
			LearnerID:    in.LearnerID,
			Level:        in.Level,
			SentenceType: choice.Type,
			Topic:        choice.Topic,
		})
		if err != nil {
			s.logger.Error("tutor: issue tracking code", "learner", in.LearnerID, "error", err)
			if ferr := s.sessions.ForgetSentence(ctx, in.LearnerID, sentence); ferr != nil {
				s.logger.Error("tutor: release sentence", "learner", in.LearnerID, "error", ferr)
			}
			return nil, &InvariantViolation{What: "tracking code could not be issued", Err: err}
		}

		if err := s.sessions.RecordSentenceType(ctx, in.LearnerID, choice.Type); err != nil {
			return nil, err
		}

		if err := s.sessions.Touch(ctx, in.LearnerID); err != nil {
			return nil, err
		}

		return &GenerateResult{
			Sentence:     sentence,
			TrackingCode: code,
			Progress:     sess.Progress,
			SentenceType: choice.Type,
			Topic:        choice.Topic,
		}, nil
	}

	return nil, &GenerationExhaustedError{Attempts: s.opts.MaxGenerationAttempts, Last: last}
}

// EvaluateInput redeems a tracking code with the learner's translation.
type EvaluateInput struct {
	TrackingCode string
	Attempt      string
}

// EvaluateResult is a graded attempt.
type EvaluateResult struct {
	LearnerID          string             `json:"learnerId"`
	Status             string             `json:"status"`
	Message            string             `json:"message"`
	Errors             []progress.Finding `json:"errors"`
	Why                evaluator.Why      `json:"why"`
	CorrectTranslation string             `json:"correctTranslation"`
	Progress           int                `json:"progress"`
	Weaknesses         map[string]int     `json:"weaknesses"`
}

// Evaluate grades a translation of a previously issued sentence. The code is
// consumed before grading and is not restored if grading fails.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (*EvaluateResult, error) {
	in.TrackingCode = strings.TrimSpace(in.TrackingCode)
	in.Attempt = strings.TrimSpace(in.Attempt)
	if in.TrackingCode == "" {
		return nil, missing("trackingCode")
	}
	if in.Attempt == "" {
		return nil, missing("attemptText")
	}

	entry, err := s.codes.Consume(ctx, in.TrackingCode)
	if errors.Is(err, tracking.ErrNotFound) {
		return nil, &NotFoundError{Resource: ResourceTrackingCode, Key: in.TrackingCode}
	}
	if err != nil {
		return nil, err
	}

	ctx = llm.WithLearner(ctx, entry.LearnerID)

	verdict, err := s.eval.Grade(ctx, evaluator.GradeRequest{Bengali: entry.Sentence, English: in.Attempt})
	if err != nil {
		s.logger.Warn("tutor: grading failed", "learner", entry.LearnerID, "error", err)
		return nil, classify(err)
	}

	now := s.clock.Now()
	attempt := learner.Attempt{
		Sentence:           entry.Sentence,
		Translation:        in.Attempt,
		Correct:            verdict.Correct(),
		Findings:           verdict.Progress().Findings,
		ErrorDetail:        verdict.ErrorSummary(),
		CorrectTranslation: verdict.CorrectTranslation,
		SentenceType:       entry.SentenceType,
		Topic:              entry.Topic,
		Level:              entry.Level,
		GradedAt:           now,
	}

	// A session evicted since issuance is recreated here.
	report, err := s.sessions.RecordAttempt(ctx, entry.LearnerID, attempt)
	if err != nil {
		return nil, err
	}

	s.record(ctx, AttemptEvent{
		LearnerID:          entry.LearnerID,
		TrackingCode:       in.TrackingCode,
		Sentence:           entry.Sentence,
		Translation:        in.Attempt,
		Correct:            attempt.Correct,
		ErrorDetail:        attempt.ErrorDetail,
		CorrectTranslation: attempt.CorrectTranslation,
		SentenceType:       entry.SentenceType,
		Topic:              entry.Topic,
		Level:              entry.Level,
		ProgressAfter:      report.Progress,
		GradedAt:           now,
	})

	return &EvaluateResult{
		LearnerID:          entry.LearnerID,
		Status:             verdict.Status,
		Message:            verdict.Message,
		Errors:             findings(verdict),
		Why:                verdict.Why,
		CorrectTranslation: verdict.CorrectTranslation,
		Progress:           report.Progress,
		Weaknesses:         report.Weaknesses,
	}, nil
}

func (s *Service) record(ctx context.Context, ev AttemptEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.AppendAttempt(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("tutor: record attempt", "learner", ev.LearnerID, "error", err)
	}
}

// ChatInput is a free-form question.
type ChatInput struct {
	LearnerID string
	Question  string
}

// ChatResult is the tutor's answer.
type ChatResult struct {
	Response string `json:"response"`
}

// Chat answers a question, keeping the exchange in the learner's history.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatResult, error) {
	in.LearnerID = strings.TrimSpace(in.LearnerID)
	in.Question = strings.TrimSpace(in.Question)
	if in.Question == "" {
		return nil, missing("question")
	}
	if in.LearnerID == "" {
		return nil, missing("learnerId")
	}

	ctx = llm.WithLearner(ctx, in.LearnerID)

	sess, err := s.sessions.GetOrCreate(ctx, in.LearnerID)
	if err != nil {
		return nil, err
	}

	history := sess.History
	if n := s.opts.MaxHistoryTurns; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	turns := make([]evaluator.ChatTurn, len(history))
	for i, t := range history {
		turns[i] = evaluator.ChatTurn{FromModel: t.Role == learner.RoleModel, Text: t.Text}
	}

	asked := s.clock.Now()
	answer, err := s.eval.Chat(ctx, evaluator.ChatRequest{Question: in.Question, History: turns})
	if err != nil {
		return nil, classify(err)
	}

	if err := s.sessions.AppendHistory(ctx, in.LearnerID,
		learner.Turn{Role: learner.RoleUser, Text: in.Question, At: asked},
		learner.Turn{Role: learner.RoleModel, Text: answer, At: s.clock.Now()},
	); err != nil {
		return nil, err
	}

	return &ChatResult{Response: answer}, nil
}

// Progress returns the learner's report.
func (s *Service) Progress(ctx context.Context, learnerID string) (*learner.Report, error) {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil, missing("learnerId")
	}

	report, err := s.sessions.Snapshot(ctx, learnerID)
	if errors.Is(err, learner.ErrNotFound) {
		return nil, &NotFoundError{Resource: ResourceLearner, Key: learnerID}
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// CheckInput is a stand-alone pair to grade.
type CheckInput struct {
	Bengali string
	English string
}

// CheckResult is the verdict for a stand-alone pair.
type CheckResult struct {
	Status             string             `json:"status"`
	Message            string             `json:"message"`
	Errors             []progress.Finding `json:"errors"`
	Why                evaluator.Why      `json:"why"`
	CorrectTranslation string             `json:"correct_translation"`
}

// Check grades a pair without touching any learner state.
func (s *Service) Check(ctx context.Context, in CheckInput) (*CheckResult, error) {
	in.Bengali = strings.TrimSpace(in.Bengali)
	in.English = strings.TrimSpace(in.English)
	if in.Bengali == "" {
		return nil, missing("ban")
	}
	if in.English == "" {
		return nil, missing("eng")
	}

	verdict, err := s.eval.Check(ctx, evaluator.GradeRequest{Bengali: in.Bengali, English: in.English})
	if err != nil {
		return nil, classify(err)
	}
	return &CheckResult{
		Status:             verdict.Status,
		Message:            verdict.Message,
		Errors:             findings(verdict),
		Why:                verdict.Why,
		CorrectTranslation: verdict.CorrectTranslation,
	}, nil
}

// findings drops entries without detail and normalizes categories.
func findings(v *evaluator.Verdict) []progress.Finding {
	out := make([]progress.Finding, 0, len(v.Errors))
	for _, f := range v.Errors {
		if f.Detail == "" {
			continue
		}
		out = append(out, progress.Finding{Category: progress.NormalizeCategory(f.Category), Detail: f.Detail})
	}
	return out
}

func pastAttempts(attempts []learner.Attempt) []evaluator.PastAttempt {
	out := make([]evaluator.PastAttempt, len(attempts))
	for i, a := range attempts {
		out[i] = evaluator.PastAttempt{
			Sentence:    a.Sentence,
			Translation: a.Translation,
			Correct:     a.Correct,
			ErrorDetail: a.ErrorDetail,
		}
	}
	return out
}
