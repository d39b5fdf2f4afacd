package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// Booking detects equipment time-range conflicts and commits bookings. The
// conflict read is re-validated at commit time under a per-equipment lock, so
// two concurrent bookings that both saw a free slot cannot both commit.
type Booking struct {
	bookings persistence.BookingRepository
	logger   *slog.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewBooking creates the equipment booking service.
func NewBooking(bookings persistence.BookingRepository, logger *slog.Logger) *Booking {
	return &Booking{
		bookings: bookings,
		logger:   logger.With("module", "booking_service"),
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Conflicts returns every existing booking for the equipment that overlaps
// the candidate interval. excludeBookingID, when non-empty, skips the booking
// being edited so it does not flag itself.
func (b *Booking) Conflicts(ctx context.Context, equipmentID string, candidate models.Interval, excludeBookingID string) ([]*models.EquipmentBooking, error) {
	if !candidate.IsValid() {
		return nil, ErrInvalidInterval
	}

	existing, err := b.bookings.BookingsInWindow(ctx, equipmentID, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for equipment %s: %w", equipmentID, err)
	}

	return models.ConflictingBookings(candidate, existing, excludeBookingID), nil
}

// Book commits a booking for the equipment, re-running the conflict check
// under the equipment's lock before writing. ownerExecutionID may be empty
// for standalone bookings.
func (b *Booking) Book(ctx context.Context, equipmentID string, interval models.Interval, ownerExecutionID string) (*models.EquipmentBooking, error) {
	if !interval.IsValid() {
		return nil, ErrInvalidInterval
	}

	unlock := b.locks.Lock(equipmentID)
	defer unlock()

	conflicts, err := b.Conflicts(ctx, equipmentID, interval, "")
	if err != nil {
		return nil, err
	}

	if len(conflicts) > 0 {
		return nil, &BookingConflictError{EquipmentID: equipmentID, Conflicts: conflicts}
	}

	booking := &models.EquipmentBooking{
		ID:               uuid.New().String(),
		EquipmentID:      equipmentID,
		StartTime:        interval.Start.UTC(),
		EndTime:          interval.End.UTC(),
		OwnerExecutionID: ownerExecutionID,
		CreatedAt:        b.now(),
	}

	if err := b.bookings.SaveBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	b.logger.InfoContext(ctx, "Equipment booked",
		"booking_id", booking.ID,
		"equipment_id", equipmentID,
		"owner_execution_id", ownerExecutionID,
	)

	return booking, nil
}

// Release removes every booking held on behalf of an execution.
func (b *Booking) Release(ctx context.Context, executionID string) error {
	return b.bookings.ReleaseByExecution(ctx, executionID)
}
