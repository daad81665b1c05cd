package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/anuvad/internal/tutor"
)

// AttemptRecord is one stored graded attempt.
type AttemptRecord struct {
	ID                 int
	Sequence           int64
	Timestamp          time.Time
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

var attemptSelect = []string{
	"id", "sequence", "timestamp", "learner_id", "tracking_code", "sentence", "translation",
	"correct", "error_detail", "correct_translation", "sentence_type", "topic",
	"level", "progress_after", "graded_at",
}

// AppendAttempt stores a graded attempt. It satisfies tutor.AttemptRecorder.
func (s *Store) AppendAttempt(ctx context.Context, ev tutor.AttemptEvent) error {
	seq, err := s.seq.Next(ctx)
	if err != nil {
		return err
	}

	query, args := entsql.Dialect(s.dialect).
		Insert(tableAttemptEvents).
		Columns("sequence", "timestamp", "learner_id", "tracking_code", "sentence", "translation",
			"correct", "error_detail", "correct_translation", "sentence_type", "topic",
			"level", "progress_after", "graded_at").
		Values(seq, s.now(), ev.LearnerID, ev.TrackingCode, ev.Sentence, ev.Translation,
			ev.Correct, ev.ErrorDetail, ev.CorrectTranslation, ev.SentenceType, ev.Topic,
			ev.Level, ev.ProgressAfter, ev.GradedAt.UTC()).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attempt event: %w", err)
	}
	return nil
}

// QueryAttempts returns attempts newest first. Purpose is ignored.
func (s *Store) QueryAttempts(ctx context.Context, opts QueryOpts) ([]AttemptRecord, error) {
	sel := entsql.Dialect(s.dialect).
		Select(attemptSelect...).
		From(entsql.Table(tableAttemptEvents))
	if ps := opts.predicates(false); len(ps) > 0 {
		sel.Where(entsql.And(ps...))
	}
	query, args := sel.OrderBy(entsql.Desc("id")).Limit(opts.limit()).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var r AttemptRecord
		if err := rows.Scan(&r.ID, &r.Sequence, &r.Timestamp, &r.LearnerID, &r.TrackingCode,
			&r.Sentence, &r.Translation, &r.Correct, &r.ErrorDetail, &r.CorrectTranslation,
			&r.SentenceType, &r.Topic, &r.Level, &r.ProgressAfter, &r.GradedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
