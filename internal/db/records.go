package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/types"
)

// -----------------------------------------------------------------------------
// Iteration Records
// -----------------------------------------------------------------------------

// SaveIterationRecord stores one trace entry. Records are append-only, so a
// second save of the same attempt index is an error.
func (db *DB) SaveIterationRecord(ctx context.Context, runID uuid.UUID, rec *types.IterationRecord) error {
	scoresJSON, err := json.Marshal(rec.CategoryScores)
	if err != nil {
		return fmt.Errorf("failed to marshal category scores: %w", err)
	}
	flagsJSON, err := json.Marshal(rec.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO iteration_records (run_id, attempt_index, composite_score, category_scores,
		                                flags, strategy_applied, text_snapshot, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		runID, rec.AttemptIndex, rec.CompositeScore, scoresJSON, flagsJSON,
		string(rec.StrategyApplied), rec.Text, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save iteration record %d: %w", rec.AttemptIndex, err)
	}
	return nil
}

// ListIterationRecords returns a run's trace in attempt order
func (db *DB) ListIterationRecords(ctx context.Context, runID uuid.UUID) ([]types.IterationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT attempt_index, composite_score, category_scores, flags, strategy_applied,
		        text_snapshot, recorded_at
		 FROM iteration_records
		 WHERE run_id = $1
		 ORDER BY attempt_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list iteration records: %w", err)
	}
	defer rows.Close()

	var records []types.IterationRecord
	for rows.Next() {
		var rec types.IterationRecord
		var scoresJSON, flagsJSON []byte
		var strategyID string

		if err := rows.Scan(&rec.AttemptIndex, &rec.CompositeScore, &scoresJSON, &flagsJSON,
			&strategyID, &rec.Text, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan iteration record: %w", err)
		}
		rec.StrategyApplied = types.StrategyID(strategyID)

		if err := json.Unmarshal(scoresJSON, &rec.CategoryScores); err != nil {
			return nil, fmt.Errorf("failed to decode category scores: %w", err)
		}
		if len(flagsJSON) > 0 {
			_ = json.Unmarshal(flagsJSON, &rec.Flags)
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

// -----------------------------------------------------------------------------
// Work Items
// -----------------------------------------------------------------------------

// SaveWorkItem stores the outcome of one generate and validate unit
func (db *DB) SaveWorkItem(ctx context.Context, item *WorkItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO work_items (id, run_id, strategy, status, attempts, quality_score, failed_open)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status, attempts = EXCLUDED.attempts,
		     quality_score = EXCLUDED.quality_score, failed_open = EXCLUDED.failed_open`,
		item.ID, item.RunID, string(item.Strategy), item.Status, item.Attempts, item.QualityScore, item.FailedOpen,
	)
	if err != nil {
		return fmt.Errorf("failed to save work item: %w", err)
	}
	return nil
}

// ListWorkItems returns a run's work items in creation order
func (db *DB) ListWorkItems(ctx context.Context, runID uuid.UUID) ([]WorkItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, strategy, status, attempts, quality_score, failed_open, created_at
		 FROM work_items WHERE run_id = $1 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	defer rows.Close()

	var items []WorkItem
	for rows.Next() {
		var item WorkItem
		var strategyID string
		if err := rows.Scan(&item.ID, &item.RunID, &strategyID, &item.Status, &item.Attempts,
			&item.QualityScore, &item.FailedOpen, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}
		item.Strategy = types.StrategyID(strategyID)
		items = append(items, item)
	}
	return items, rows.Err()
}
