package repositories

import (
	"context"
	"fmt"

	"github.com/ai2c/amap/internal/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogicalClockRepository stores one monotonically increasing counter per model
type LogicalClockRepository struct {
	db *pgxpool.Pool
}

// NewLogicalClockRepository creates a new LogicalClockRepository
func NewLogicalClockRepository(pool *pgxpool.Pool) *LogicalClockRepository {
	return &LogicalClockRepository{db: pool}
}

// Bump increments the clock of model and returns the new value. The row lock
// is held until the surrounding transaction ends.
func (r *LogicalClockRepository) Bump(ctx context.Context, model string) (int64, error) {
	var clock int64
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO logical_clocks (model, clock_time) VALUES ($1, 1)
		ON CONFLICT (model) DO UPDATE SET clock_time = logical_clocks.clock_time + 1
		RETURNING clock_time`, model).Scan(&clock)
	if err != nil {
		return 0, fmt.Errorf("error bumping logical clock %s: %w", model, err)
	}
	return clock, nil
}

