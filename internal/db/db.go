// Package db provides PostgreSQL persistence of refinement runs for post-hoc analysis.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the run tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateRun inserts a run record in the running state and returns its ID
func (db *DB) CreateRun(ctx context.Context, input *RunInput) (uuid.UUID, error) {
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO refinement_runs (id, status, rubric_version, provider, target_score, max_iterations, input_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, RunStatusRunning, input.RubricVersion, input.Provider, input.TargetScore, input.MaxIterations, input.InputText,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun records the stop reason and best record of a finished run
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, c *RunCompletion) error {
	tiersJSON, err := json.Marshal(c.DisabledTiers)
	if err != nil {
		return fmt.Errorf("failed to marshal disabled tiers: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE refinement_runs
		 SET status = $1, stop_reason = $2, best_attempt = $3, best_composite = $4,
		     refinements = $5, disabled_tiers = $6, completed_at = NOW()
		 WHERE id = $7`,
		RunStatusCompleted, c.StopReason, c.BestAttempt, c.BestComposite, c.Refinements, tiersJSON, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// FailRun marks a run as failed with the error that stopped it
func (db *DB) FailRun(ctx context.Context, runID uuid.UUID, message string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE refinement_runs SET status = $1, error_message = $2, completed_at = NOW() WHERE id = $3`,
		RunStatusFailed, message, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

const runColumns = `id, status, rubric_version, provider, target_score, max_iterations, input_text,
	stop_reason, best_attempt, best_composite, refinements, disabled_tiers, error_message,
	created_at, completed_at`

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var tiersJSON []byte
	if err := row.Scan(&run.ID, &run.Status, &run.RubricVersion, &run.Provider, &run.TargetScore,
		&run.MaxIterations, &run.InputText, &run.StopReason, &run.BestAttempt, &run.BestComposite,
		&run.Refinements, &tiersJSON, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt); err != nil {
		return nil, err
	}
	if len(tiersJSON) > 0 {
		_ = json.Unmarshal(tiersJSON, &run.DisabledTiers)
	}
	return &run, nil
}

// GetRun retrieves a run by ID. Returns nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	run, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM refinement_runs WHERE id = $1`, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent runs with optional filters
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	query, args := buildListRunsQuery(filters)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func buildListRunsQuery(filters RunFilters) (string, []any) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}

	query := `SELECT ` + runColumns + ` FROM refinement_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.StopReason != "" {
		query += fmt.Sprintf(" AND stop_reason = $%d", argNum)
		args = append(args, filters.StopReason)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)
	return query, args
}

// DeleteRun deletes a run and its records (via cascade)
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM refinement_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
