package services_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence/memory"
	"github.com/labforge/labrun/pkg/services"
)

func setupBooking(t *testing.T) (*services.Booking, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()

	return services.NewBooking(store.BookingRepository(), slog.Default()), store
}

func slot(startHour, endHour int) models.Interval {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	return models.Interval{
		Start: day.Add(time.Duration(startHour) * time.Hour),
		End:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestBooking_Book(t *testing.T) {
	t.Parallel()

	svc, _ := setupBooking(t)

	booking, err := svc.Book(context.Background(), "centrifuge-1", slot(9, 11), "exec-1")
	require.NoError(t, err)

	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, "centrifuge-1", booking.EquipmentID)
	assert.Equal(t, "exec-1", booking.OwnerExecutionID)
}

func TestBooking_Book_Conflict(t *testing.T) {
	t.Parallel()

	svc, _ := setupBooking(t)

	_, err := svc.Book(context.Background(), "centrifuge-1", slot(9, 11), "")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), "centrifuge-1", slot(10, 12), "")
	require.ErrorIs(t, err, services.ErrBookingConflict)

	var conflict *services.BookingConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "centrifuge-1", conflict.EquipmentID)
	assert.Len(t, conflict.Conflicts, 1)

	// The same slot on different equipment is free.
	_, err = svc.Book(context.Background(), "centrifuge-2", slot(10, 12), "")
	require.NoError(t, err)
}

func TestBooking_Book_BackToBack(t *testing.T) {
	t.Parallel()

	svc, _ := setupBooking(t)

	_, err := svc.Book(context.Background(), "centrifuge-1", slot(9, 11), "")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), "centrifuge-1", slot(11, 13), "")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), "centrifuge-1", slot(7, 9), "")
	require.NoError(t, err)
}

func TestBooking_Book_InvalidInterval(t *testing.T) {
	t.Parallel()

	svc, _ := setupBooking(t)

	_, err := svc.Book(context.Background(), "centrifuge-1", slot(11, 11), "")
	require.ErrorIs(t, err, services.ErrInvalidInterval)

	_, err = svc.Book(context.Background(), "centrifuge-1", slot(11, 9), "")
	require.ErrorIs(t, err, services.ErrInvalidInterval)
}

func TestBooking_Book_ConcurrentSameSlot(t *testing.T) {
	t.Parallel()

	svc, _ := setupBooking(t)

	var wg sync.WaitGroup

	results := make(chan error, 2)

	// Both callers saw the slot free; the commit-time re-check under the
	// equipment lock lets exactly one through.
	for range 2 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Book(context.Background(), "centrifuge-1", slot(9, 11), "")
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var succeeded, rejected int

	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, services.ErrBookingConflict)

			rejected++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
}

func TestBooking_Conflicts(t *testing.T) {
	t.Parallel()

	svc, _ := setupBooking(t)

	booked, err := svc.Book(context.Background(), "centrifuge-1", slot(9, 11), "")
	require.NoError(t, err)

	conflicts, err := svc.Conflicts(context.Background(), "centrifuge-1", slot(10, 12), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, booked.ID, conflicts[0].ID)

	// Excluding the booking's own ID lets an edit re-check its slot.
	conflicts, err = svc.Conflicts(context.Background(), "centrifuge-1", slot(10, 12), booked.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestBooking_Release(t *testing.T) {
	t.Parallel()

	svc, store := setupBooking(t)

	_, err := svc.Book(context.Background(), "centrifuge-1", slot(9, 11), "exec-1")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), "centrifuge-2", slot(9, 11), "exec-1")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), "centrifuge-1", slot(11, 13), "exec-2")
	require.NoError(t, err)

	require.NoError(t, svc.Release(context.Background(), "exec-1"))

	remaining, err := store.BookingRepository().BookingsInWindow(context.Background(), "centrifuge-1", slot(0, 24))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "exec-2", remaining[0].OwnerExecutionID)
}
