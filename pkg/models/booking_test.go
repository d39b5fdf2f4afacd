package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interval(startHour, endHour int) Interval {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	return Interval{
		Start: day.Add(time.Duration(startHour) * time.Hour),
		End:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a    Interval
		b    Interval
		want bool
	}{
		{name: "disjoint", a: interval(9, 10), b: interval(11, 12), want: false},
		{name: "touching boundaries do not overlap", a: interval(9, 10), b: interval(10, 11), want: false},
		{name: "partial overlap", a: interval(9, 11), b: interval(10, 12), want: true},
		{name: "contained", a: interval(9, 17), b: interval(10, 11), want: true},
		{name: "identical", a: interval(9, 10), b: interval(9, 10), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			// The predicate must be symmetric.
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestConflictingBookings(t *testing.T) {
	existing := []*EquipmentBooking{
		{ID: "b1", EquipmentID: "eq-1", StartTime: interval(9, 10).Start, EndTime: interval(9, 10).End},
		{ID: "b2", EquipmentID: "eq-1", StartTime: interval(10, 12).Start, EndTime: interval(10, 12).End},
		{ID: "b3", EquipmentID: "eq-1", StartTime: interval(14, 15).Start, EndTime: interval(14, 15).End},
	}

	conflicts := ConflictingBookings(interval(11, 14), existing, "")

	require.Len(t, conflicts, 1)
	assert.Equal(t, "b2", conflicts[0].ID)
}

func TestConflictingBookings_ExcludesOwnID(t *testing.T) {
	existing := []*EquipmentBooking{
		{ID: "b1", EquipmentID: "eq-1", StartTime: interval(9, 11).Start, EndTime: interval(9, 11).End},
	}

	// Editing b1 must not flag b1 itself.
	conflicts := ConflictingBookings(interval(9, 11), existing, "b1")

	assert.Empty(t, conflicts)
}
