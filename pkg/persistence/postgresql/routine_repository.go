package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// RoutineRepository handles routine definition database operations. Nested
// requirement and step lists are stored as JSONB documents; the engine never
// queries inside them.
type RoutineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRoutineRepository creates a new routine repository.
func NewRoutineRepository(db *sql.DB, logger *slog.Logger) *RoutineRepository {
	return &RoutineRepository{db: db, logger: logger}
}

const routineColumns = `
	id
  , name
  , description
  , schedule_type
  , deadline
  , recurrence
  , materials
  , equipment
  , steps
  , assigned_user_ids
  , created_at
  , updated_at
`

// Routines returns all routine definitions.
func (r *RoutineRepository) Routines(ctx context.Context) ([]*models.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	routines := make([]*models.Routine, 0)

	for rows.Next() {
		routine, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routine: %w", err)
		}

		routines = append(routines, routine)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating routines: %w", err)
	}

	return routines, nil
}

// RoutineByID returns a routine by its ID.
func (r *RoutineRepository) RoutineByID(ctx context.Context, id string) (*models.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE id = $1`

	routine, err := scanRoutine(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRoutineNotFound
		}

		return nil, fmt.Errorf("failed to scan routine: %w", err)
	}

	return routine, nil
}

// SaveRoutine upserts a routine definition.
func (r *RoutineRepository) SaveRoutine(ctx context.Context, routine *models.Routine) error {
	now := time.Now().UTC()

	if routine.CreatedAt.IsZero() {
		routine.CreatedAt = now
	}

	routine.UpdatedAt = now

	recurrence, err := marshalNullable(routine.Recurrence)
	if err != nil {
		return fmt.Errorf("failed to marshal recurrence: %w", err)
	}

	materials, err := json.Marshal(routine.Materials)
	if err != nil {
		return fmt.Errorf("failed to marshal materials: %w", err)
	}

	equipment, err := json.Marshal(routine.Equipment)
	if err != nil {
		return fmt.Errorf("failed to marshal equipment: %w", err)
	}

	steps, err := json.Marshal(routine.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	assigned, err := json.Marshal(routine.AssignedUserIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal assigned users: %w", err)
	}

	query := `
		INSERT INTO routines (
			id, name, description, schedule_type, deadline, recurrence,
			materials, equipment, steps, assigned_user_ids, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			schedule_type = EXCLUDED.schedule_type,
			deadline = EXCLUDED.deadline,
			recurrence = EXCLUDED.recurrence,
			materials = EXCLUDED.materials,
			equipment = EXCLUDED.equipment,
			steps = EXCLUDED.steps,
			assigned_user_ids = EXCLUDED.assigned_user_ids,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		routine.ID,
		routine.Name,
		routine.Description,
		string(routine.ScheduleType),
		routine.Deadline,
		recurrence,
		materials,
		equipment,
		steps,
		assigned,
		routine.CreatedAt,
		routine.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save routine %s: %w", routine.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoutine(row rowScanner) (*models.Routine, error) {
	var (
		routine    models.Routine
		deadline   sql.NullTime
		recurrence []byte
		materials  []byte
		equipment  []byte
		steps      []byte
		assigned   []byte
	)

	err := row.Scan(
		&routine.ID,
		&routine.Name,
		&routine.Description,
		&routine.ScheduleType,
		&deadline,
		&recurrence,
		&materials,
		&equipment,
		&steps,
		&assigned,
		&routine.CreatedAt,
		&routine.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		t := deadline.Time.UTC()
		routine.Deadline = &t
	}

	if len(recurrence) > 0 {
		routine.Recurrence = &models.RecurrenceRule{}
		if err := json.Unmarshal(recurrence, routine.Recurrence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recurrence: %w", err)
		}
	}

	if err := json.Unmarshal(materials, &routine.Materials); err != nil {
		return nil, fmt.Errorf("failed to unmarshal materials: %w", err)
	}

	if err := json.Unmarshal(equipment, &routine.Equipment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal equipment: %w", err)
	}

	if err := json.Unmarshal(steps, &routine.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	if err := json.Unmarshal(assigned, &routine.AssignedUserIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assigned users: %w", err)
	}

	return &routine, nil
}

func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	if rule, ok := v.(*models.RecurrenceRule); ok && rule == nil {
		return nil, nil
	}

	return json.Marshal(v)
}
