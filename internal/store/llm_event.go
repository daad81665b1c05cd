package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/anuvad/internal/llm"
)

// LLMRequestEventRecord is one stored model call.
type LLMRequestEventRecord struct {
	ID           int
	Sequence     int64
	Timestamp    time.Time
	Provider     string
	Model        string
	Purpose      string
	LearnerID    string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMUsageStats aggregates calls for one purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// ModelUsage aggregates calls for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// QueryOpts filters event queries. Zero values mean "no filter".
type QueryOpts struct {
	Limit     int
	After     int64 // sequence strictly greater than
	Before    int64 // sequence strictly less than
	From      time.Time
	To        time.Time
	Purpose   string
	LearnerID string
}

func (o QueryOpts) predicates(withPurpose bool) []*entsql.Predicate {
	var ps []*entsql.Predicate
	if o.After > 0 {
		ps = append(ps, entsql.GT("sequence", o.After))
	}
	if o.Before > 0 {
		ps = append(ps, entsql.LT("sequence", o.Before))
	}
	if !o.From.IsZero() {
		ps = append(ps, entsql.GTE("timestamp", o.From))
	}
	if !o.To.IsZero() {
		ps = append(ps, entsql.LTE("timestamp", o.To))
	}
	if withPurpose && o.Purpose != "" {
		ps = append(ps, entsql.EQ("purpose", o.Purpose))
	}
	if o.LearnerID != "" {
		ps = append(ps, entsql.EQ("learner_id", o.LearnerID))
	}
	return ps
}

func (o QueryOpts) limit() int {
	if o.Limit <= 0 {
		return 50
	}
	return o.Limit
}

var llmEventSelect = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose", "learner_id",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

// RecordLLMCall stores one model call. It satisfies llm.Recorder.
func (s *Store) RecordLLMCall(ctx context.Context, rec llm.CallRecord) error {
	seq, err := s.seq.Next(ctx)
	if err != nil {
		return err
	}

	query, args := entsql.Dialect(s.dialect).
		Insert(tableLLMEvents).
		Columns("sequence", "timestamp", "provider", "model", "purpose", "learner_id",
			"input_tokens", "output_tokens", "latency_ms", "success",
			"error_message", "request_body", "response_body").
		Values(seq, s.now(), rec.Provider, rec.Model, rec.Purpose, rec.LearnerID,
			rec.InputTokens, rec.OutputTokens, rec.LatencyMs, rec.Success,
			rec.ErrorMessage, rec.RequestBody, rec.ResponseBody).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert llm event: %w", err)
	}
	return nil
}

// QueryLLMEvents returns calls newest first.
func (s *Store) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error) {
	sel := entsql.Dialect(s.dialect).
		Select(llmEventSelect...).
		From(entsql.Table(tableLLMEvents))
	if ps := opts.predicates(true); len(ps) > 0 {
		sel.Where(entsql.And(ps...))
	}
	query, args := sel.OrderBy(entsql.Desc("id")).Limit(opts.limit()).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEventRecord
	for rows.Next() {
		rec, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetLLMEvent returns one call by ID, or nil if it does not exist.
func (s *Store) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error) {
	query, args := entsql.Dialect(s.dialect).
		Select(llmEventSelect...).
		From(entsql.Table(tableLLMEvents)).
		Where(entsql.EQ("id", id)).
		Query()

	rec, err := scanLLMEvent(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLLMEvent(row scanner) (LLMRequestEventRecord, error) {
	var r LLMRequestEventRecord
	err := row.Scan(&r.ID, &r.Sequence, &r.Timestamp, &r.Provider, &r.Model, &r.Purpose, &r.LearnerID,
		&r.InputTokens, &r.OutputTokens, &r.LatencyMs, &r.Success,
		&r.ErrorMessage, &r.RequestBody, &r.ResponseBody)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("scan llm event: %w", err)
	}
	return r, nil
}

// LLMUsageByPurpose aggregates calls per purpose, busiest first.
func (s *Store) LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error) {
	query, args := entsql.Dialect(s.dialect).
		Select("purpose", "COUNT(*)", "COALESCE(SUM(input_tokens), 0)",
			"COALESCE(SUM(output_tokens), 0)", "COALESCE(AVG(latency_ms), 0)").
		From(entsql.Table(tableLLMEvents)).
		GroupBy("purpose").
		OrderBy(entsql.Desc("COUNT(*)"), "purpose").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("llm usage by purpose: %w", err)
	}
	defer rows.Close()

	var out []LLMUsageStats
	for rows.Next() {
		var u LLMUsageStats
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LLMUsageByModel aggregates calls per model, busiest first.
func (s *Store) LLMUsageByModel(ctx context.Context) ([]ModelUsage, error) {
	query, args := entsql.Dialect(s.dialect).
		Select("model", "COUNT(*)", "COALESCE(SUM(input_tokens), 0)", "COALESCE(SUM(output_tokens), 0)").
		From(entsql.Table(tableLLMEvents)).
		GroupBy("model").
		OrderBy(entsql.Desc("COUNT(*)"), "model").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("llm usage by model: %w", err)
	}
	defer rows.Close()

	var out []ModelUsage
	for rows.Next() {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Calls, &u.InputTokens, &u.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
