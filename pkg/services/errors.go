// Package services implements the routine engine's business logic: the
// availability checker, the execution state machine, equipment booking, and
// the upcoming-routines projector.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// Domain errors surfaced to callers. None of these trigger retries inside the
// engine; transient infrastructure failures are the caller's concern.
var (
	// Not-found errors (404).
	ErrRoutineNotFound   = persistence.ErrRoutineNotFound
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
	ErrStepNotFound      = errors.New("step not found")

	// ErrInvalidExecutionState is returned when an operation is attempted
	// against an execution not in the required state (409).
	ErrInvalidExecutionState = errors.New("execution is not in the required state")

	// ErrIncompleteSteps is returned when complete is attempted before every
	// step is marked done (422).
	ErrIncompleteSteps = errors.New("execution has incomplete steps")

	// ErrInsufficientStock is returned by the defensive start check and by the
	// deduction transaction (409).
	ErrInsufficientStock = persistence.ErrInsufficientStock

	// ErrBookingConflict is returned when a booking attempt collides with an
	// existing booking (409).
	ErrBookingConflict = errors.New("booking conflicts with an existing booking")

	// ErrInvalidInterval is returned for a zero or negative length booking
	// interval (400).
	ErrInvalidInterval = errors.New("interval end must be after start")
)

// IncompleteStepsError lists the outstanding step IDs so the caller can
// highlight them. It unwraps to ErrIncompleteSteps.
type IncompleteStepsError struct {
	StepIDs []string
}

func (e *IncompleteStepsError) Error() string {
	return fmt.Sprintf("execution has incomplete steps: %s", strings.Join(e.StepIDs, ", "))
}

func (e *IncompleteStepsError) Unwrap() error {
	return ErrIncompleteSteps
}

// BookingConflictError carries the bookings blocking a booking attempt. It
// unwraps to ErrBookingConflict.
type BookingConflictError struct {
	EquipmentID string
	Conflicts   []*models.EquipmentBooking
}

func (e *BookingConflictError) Error() string {
	return fmt.Sprintf("booking conflicts with %d existing booking(s) for equipment %s", len(e.Conflicts), e.EquipmentID)
}

func (e *BookingConflictError) Unwrap() error {
	return ErrBookingConflict
}

// IsNotFound checks if an error indicates a missing routine, execution, or step.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoutineNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, persistence.ErrMaterialNotFound)
}

// IsConflict checks if an error is a state or resource conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidExecutionState) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrBookingConflict)
}
