package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ai2c/amap/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

var sqlOpenFunc = sql.Open

// NewSourceDB opens the vendor staging database through database/sql.
// The raw_* tables are read with plain SQL and mocked with sqlmock in tests.
func NewSourceDB(cfg *config.Config) (*sql.DB, error) {
	sourceDB, err := sqlOpenFunc("pgx", cfg.GetSourceConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}

	sourceDB.SetMaxOpenConns(cfg.SourceDatabase.MaxOpenConns)
	sourceDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sourceDB.PingContext(ctx); err != nil {
		_ = sourceDB.Close()
		return nil, fmt.Errorf("failed to reach source database: %w", err)
	}

	return sourceDB, nil
}
