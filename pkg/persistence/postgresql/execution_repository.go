package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// ExecutionRepository handles routine execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , routine_id
  , executed_by
  , status
  , started_at
  , completed_at
  , notes
  , step_completions
  , material_deductions
`

// ExecutionByID returns an execution by its ID.
func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.RoutineExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM routine_executions WHERE id = $1`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// ExecutionsByRoutine returns all executions of one routine, newest first.
func (r *ExecutionRepository) ExecutionsByRoutine(ctx context.Context, routineID string) ([]*models.RoutineExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM routine_executions WHERE routine_id = $1 ORDER BY started_at DESC`

	rows, err := r.db.QueryContext(ctx, query, routineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.RoutineExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// SaveExecution upserts an execution record.
func (r *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.RoutineExecution) error {
	completions, err := json.Marshal(execution.StepCompletions)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	deductions, err := json.Marshal(execution.MaterialDeductions)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	query := `
		INSERT INTO routine_executions (
			id, routine_id, executed_by, status, started_at, completed_at,
			notes, step_completions, material_deductions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			notes = EXCLUDED.notes,
			step_completions = EXCLUDED.step_completions,
			material_deductions = EXCLUDED.material_deductions
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.RoutineID,
		execution.ExecutedBy,
		string(execution.Status),
		execution.StartedAt,
		execution.CompletedAt,
		execution.Notes,
		completions,
		deductions,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func scanExecution(row rowScanner) (*models.RoutineExecution, error) {
	var (
		execution   models.RoutineExecution
		completedAt sql.NullTime
		completions []byte
		deductions  []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.RoutineID,
		&execution.ExecutedBy,
		&execution.Status,
		&execution.StartedAt,
		&completedAt,
		&execution.Notes,
		&completions,
		&deductions,
	)
	if err != nil {
		return nil, err
	}

	execution.StartedAt = execution.StartedAt.UTC()

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		execution.CompletedAt = &t
	}

	if err := json.Unmarshal(completions, &execution.StepCompletions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step completions: %w", err)
	}

	if err := json.Unmarshal(deductions, &execution.MaterialDeductions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal material deductions: %w", err)
	}

	return &execution, nil
}
