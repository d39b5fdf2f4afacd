package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/labforge/labrun/pkg/models"
)

// BookingRepository handles equipment booking database operations.
type BookingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sql.DB, logger *slog.Logger) *BookingRepository {
	return &BookingRepository{db: db, logger: logger}
}

// BookingsInWindow returns bookings for one equipment whose interval overlaps
// the window, using the same half-open comparison as the overlap detector.
func (r *BookingRepository) BookingsInWindow(ctx context.Context, equipmentID string, window models.Interval) ([]*models.EquipmentBooking, error) {
	query := `
		SELECT
			id
		  , equipment_id
		  , start_time
		  , end_time
		  , COALESCE(owner_execution_id::text, '')
		  , created_at
		FROM equipment_bookings
		WHERE equipment_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`

	rows, err := r.db.QueryContext(ctx, query, equipmentID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	bookings := make([]*models.EquipmentBooking, 0)

	for rows.Next() {
		var booking models.EquipmentBooking

		err := rows.Scan(
			&booking.ID,
			&booking.EquipmentID,
			&booking.StartTime,
			&booking.EndTime,
			&booking.OwnerExecutionID,
			&booking.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}

		booking.StartTime = booking.StartTime.UTC()
		booking.EndTime = booking.EndTime.UTC()
		bookings = append(bookings, &booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

// SaveBooking inserts a booking.
func (r *BookingRepository) SaveBooking(ctx context.Context, booking *models.EquipmentBooking) error {
	query := `
		INSERT INTO equipment_bookings (
			id, equipment_id, start_time, end_time, owner_execution_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	owner := sql.NullString{String: booking.OwnerExecutionID, Valid: booking.OwnerExecutionID != ""}

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.EquipmentID,
		booking.StartTime,
		booking.EndTime,
		owner,
		booking.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
	}

	return nil
}

// ReleaseByExecution deletes every booking owned by the given execution.
func (r *BookingRepository) ReleaseByExecution(ctx context.Context, executionID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM equipment_bookings WHERE owner_execution_id = $1`,
		executionID,
	)
	if err != nil {
		return fmt.Errorf("failed to release bookings for execution %s: %w", executionID, err)
	}

	return nil
}
