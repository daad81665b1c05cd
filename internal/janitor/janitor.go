// Package janitor periodically evicts stale learner sessions and tracking
// codes.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/abhisek/anuvad/internal/clock"
)

// Evictor removes entries older than a cutoff.
type Evictor interface {
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds the expiry windows.
type Config struct {
	SessionTimeout  time.Duration
	TrackingTimeout time.Duration
}

// DefaultConfig returns 6h sessions and 24h tracking codes.
func DefaultConfig() Config {
	return Config{
		SessionTimeout:  6 * time.Hour,
		TrackingTimeout: 24 * time.Hour,
	}
}

// SweepResult counts what one sweep removed.
type SweepResult struct {
	Sessions int
	Codes    int
}

// Janitor owns no lock of its own; each store serializes its own eviction.
type Janitor struct {
	sessions Evictor
	codes    Evictor
	clock    clock.Clock
	config   Config
	logger   *slog.Logger
}

// New creates a Janitor. A nil logger uses slog.Default.
func New(sessions, codes Evictor, clk clock.Clock, cfg Config, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		sessions: sessions,
		codes:    codes,
		clock:    clk,
		config:   cfg,
		logger:   logger,
	}
}

// Sweep runs one eviction pass. Failures in one store do not stop the other,
// and nothing is returned to the caller but counts.
func (j *Janitor) Sweep(ctx context.Context) SweepResult {
	now := j.clock.Now()
	var res SweepResult

	res.Sessions = j.evict(ctx, "sessions", j.sessions, now.Add(-j.config.SessionTimeout))
	res.Codes = j.evict(ctx, "tracking codes", j.codes, now.Add(-j.config.TrackingTimeout))

	if res.Sessions > 0 || res.Codes > 0 {
		j.logger.Info("janitor: swept", "sessions", res.Sessions, "codes", res.Codes)
	}
	return res
}

func (j *Janitor) evict(ctx context.Context, what string, e Evictor, cutoff time.Time) (n int) {
	if e == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("janitor: eviction panicked", "store", what, "panic", fmt.Sprint(r))
			n = 0
		}
	}()

	n, err := e.EvictOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("janitor: eviction failed", "store", what, "error", err)
	}
	return n
}

// Register schedules Sweep on s every interval.
func (j *Janitor) Register(s *gocron.Scheduler, every time.Duration) (*gocron.Job, error) {
	job, err := s.Every(every).Tag("janitor").Do(func() {
		j.Sweep(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("schedule janitor: %w", err)
	}
	return job, nil
}
