package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequenceCounter hands out one increasing sequence shared by every event
// table, so events of different kinds can be ordered against each other.
// The mutex serializes within the process; RETURNING makes the increment
// atomic in the database.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

func (sc *sequenceCounter) seed(ctx context.Context) error {
	_, err := sc.db.ExecContext(ctx,
		`INSERT INTO global_sequence (id, next_val) VALUES (1, 1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("seed sequence: %w", err)
	}
	return nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
