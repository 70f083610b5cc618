package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/stocknews/internal/models"
)

// Store records workflow run lifecycle in Postgres, one row per run.
// Begin hands back the run id so the terminal update targets exactly
// the row it opened. Implements types.Ledger.
type Store struct {
	pool *pgxpool.Pool
}

func New(connString string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool, shared with the other Postgres
// surfaces.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the execution table if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflow_executions (
			id UUID PRIMARY KEY,
			workflow_type TEXT NOT NULL,
			status TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '',
			result TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create workflow_executions table: %v", err)
	}
	return nil
}

// Begin opens a run in STARTED state and returns its id.
func (s *Store) Begin(ctx context.Context, workflowType, metadata string) (string, error) {
	runID := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO workflow_executions (id, workflow_type, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		runID, workflowType, models.StatusStarted, metadata, now)
	if err != nil {
		return "", fmt.Errorf("failed to record workflow start: %v", err)
	}

	return runID, nil
}

// Finish writes the terminal status and result for one run.
func (s *Store) Finish(ctx context.Context, runID, status, result string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE workflow_executions
		SET status = $2, result = $3, updated_at = $4
		WHERE id = $1`,
		runID, status, result, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record workflow finish: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger: no run with id %s", runID)
	}
	return nil
}

// Get loads one execution record by run id.
func (s *Store) Get(ctx context.Context, runID string) (*models.WorkflowExecution, error) {
	var exec models.WorkflowExecution
	err := s.pool.QueryRow(ctx, `
		SELECT id, workflow_type, status, metadata, result, created_at, updated_at
		FROM workflow_executions
		WHERE id = $1`, runID).
		Scan(&exec.ID, &exec.WorkflowType, &exec.Status, &exec.Metadata,
			&exec.Result, &exec.CreatedAt, &exec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow execution: %v", err)
	}
	return &exec, nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.WorkflowExecution, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, workflow_type, status, metadata, result, created_at, updated_at
		FROM workflow_executions
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow executions: %v", err)
	}
	defer rows.Close()

	var execs []models.WorkflowExecution
	for rows.Next() {
		var exec models.WorkflowExecution
		if err := rows.Scan(&exec.ID, &exec.WorkflowType, &exec.Status, &exec.Metadata,
			&exec.Result, &exec.CreatedAt, &exec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		execs = append(execs, exec)
	}

	return execs, rows.Err()
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
