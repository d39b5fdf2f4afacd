package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// Availability performs the pre-flight check of a routine against live
// inventory levels and equipment schedules. It is read-only; the report it
// produces is advisory and is re-verified for materials by the deduction
// transaction at completion time.
type Availability struct {
	inventory persistence.InventoryRepository
	bookings  persistence.BookingRepository
}

// NewAvailability creates a new availability checker.
func NewAvailability(inventory persistence.InventoryRepository, bookings persistence.BookingRepository) *Availability {
	return &Availability{
		inventory: inventory,
		bookings:  bookings,
	}
}

// Check produces an availability report for the routine as of the given
// instant. Equipment is checked against an estimation window starting at asOf
// for the requirement's estimated duration, since no explicit slot is
// requested at this stage. Optional equipment never contributes to
// EquipmentAvailable.
func (a *Availability) Check(ctx context.Context, routine *models.Routine, asOf time.Time) (*models.AvailabilityReport, error) {
	report := &models.AvailabilityReport{}

	issues, err := a.materialIssues(ctx, routine.Materials)
	if err != nil {
		return nil, err
	}

	report.MaterialIssues = issues
	report.MaterialsAvailable = len(issues) == 0

	for _, req := range routine.Equipment {
		if !req.Required {
			continue
		}

		window := models.Interval{
			Start: asOf,
			End:   asOf.Add(time.Duration(req.EstimatedDurationMinutes) * time.Minute),
		}

		existing, err := a.bookings.BookingsInWindow(ctx, req.EquipmentID, window)
		if err != nil {
			return nil, fmt.Errorf("failed to list bookings for equipment %s: %w", req.EquipmentID, err)
		}

		for _, conflict := range models.ConflictingBookings(window, existing, "") {
			report.EquipmentConflicts = append(report.EquipmentConflicts, models.EquipmentConflict{
				EquipmentID:         req.EquipmentID,
				ConflictingInterval: conflict.Interval(),
				ConflictDescription: fmt.Sprintf("equipment %s is booked from %s to %s",
					req.EquipmentID,
					conflict.StartTime.Format(time.RFC3339),
					conflict.EndTime.Format(time.RFC3339)),
			})
		}
	}

	report.EquipmentAvailable = len(report.EquipmentConflicts) == 0

	return report, nil
}

// materialIssues reads current on-hand quantity for every requirement and
// reports each shortfall. A material with no stock record counts as zero on
// hand rather than an error; the routine simply cannot start.
func (a *Availability) materialIssues(ctx context.Context, requirements []models.MaterialRequirement) ([]models.MaterialIssue, error) {
	var issues []models.MaterialIssue

	for _, req := range requirements {
		level, err := a.inventory.Quantity(ctx, req.MaterialID)
		if err != nil {
			if errors.Is(err, persistence.ErrMaterialNotFound) {
				issues = append(issues, models.MaterialIssue{
					MaterialID: req.MaterialID,
					Required:   req.Quantity,
					Available:  0,
					Unit:       req.Unit,
				})

				continue
			}

			return nil, fmt.Errorf("failed to read stock level for material %s: %w", req.MaterialID, err)
		}

		if level.Quantity < req.Quantity {
			issues = append(issues, models.MaterialIssue{
				MaterialID: req.MaterialID,
				Required:   req.Quantity,
				Available:  level.Quantity,
				Unit:       req.Unit,
			})
		}
	}

	return issues, nil
}
