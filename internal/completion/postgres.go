package completion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createResultsTable = `CREATE TABLE IF NOT EXISTS interview_results (
	id          BIGSERIAL PRIMARY KEY,
	interview_id TEXT NOT NULL,
	activation  TEXT NOT NULL,
	job_title   TEXT NOT NULL,
	user_name   TEXT NOT NULL,
	duration    TEXT NOT NULL,
	feedback    JSONB,
	handoff     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (interview_id, activation)
)`

// PostgresArchive stores handoffs in the interview_results table.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, verifies it, and ensures the table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createResultsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create interview_results: %w", err)
	}

	return &PostgresArchive{pool: pool}, nil
}

// Navigate upserts one handoff.
func (a *PostgresArchive) Navigate(ctx context.Context, h Handoff) error {
	handoff, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff: %w", err)
	}

	record := h.State.InterviewData
	var feedback []byte
	if record.HasFeedback() {
		feedback = record.Feedback
	}

	_, err = a.pool.Exec(ctx,
		`INSERT INTO interview_results (interview_id, activation, job_title, user_name, duration, feedback, handoff)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (interview_id, activation) DO UPDATE
		 SET feedback = $6, handoff = $7, duration = $5, created_at = NOW()`,
		record.ID, h.Activation, record.JobTitle, record.UserName, record.Duration, feedback, handoff,
	)
	if err != nil {
		return fmt.Errorf("failed to archive result: %w", err)
	}
	return nil
}

// Ping verifies the pool is reachable.
func (a *PostgresArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close closes the connection pool.
func (a *PostgresArchive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
