package models

import (
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals share at least one
// instant. Boundary touching (a.End == b.Start) is not an overlap. The
// predicate is symmetric.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// IsValid reports whether the interval has positive length.
func (i Interval) IsValid() bool {
	return i.End.After(i.Start)
}

// EquipmentBooking reserves one piece of equipment for a time range,
// optionally on behalf of a routine execution.
type EquipmentBooking struct {
	ID               string    `json:"id"`
	EquipmentID      string    `json:"equipment_id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	OwnerExecutionID string    `json:"owner_execution_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Interval returns the booking's time range.
func (b *EquipmentBooking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// ConflictingBookings returns every existing booking whose interval overlaps
// the candidate. A booking whose ID equals excludeID is skipped so that
// editing a booking does not flag itself.
func ConflictingBookings(candidate Interval, existing []*EquipmentBooking, excludeID string) []*EquipmentBooking {
	var conflicts []*EquipmentBooking

	for _, booking := range existing {
		if excludeID != "" && booking.ID == excludeID {
			continue
		}

		if candidate.Overlaps(booking.Interval()) {
			conflicts = append(conflicts, booking)
		}
	}

	return conflicts
}
