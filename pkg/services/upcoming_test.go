package services_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence/memory"
	"github.com/labforge/labrun/pkg/services"
)

// fakeWorklistCache records lookups so tests can assert cache interaction
// without redis.
type fakeWorklistCache struct {
	entries map[string][]services.WorklistEntry
	gets    int
	hits    int
}

func newFakeWorklistCache() *fakeWorklistCache {
	return &fakeWorklistCache{entries: make(map[string][]services.WorklistEntry)}
}

func (c *fakeWorklistCache) Get(_ context.Context, key string) ([]services.WorklistEntry, bool) {
	c.gets++

	entries, ok := c.entries[key]
	if ok {
		c.hits++
	}

	return entries, ok
}

func (c *fakeWorklistCache) Set(_ context.Context, key string, entries []services.WorklistEntry) {
	c.entries[key] = entries
}

func setupUpcoming(t *testing.T, cache services.WorklistCache) (*services.Upcoming, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()

	return services.NewUpcoming(store.RoutineRepository(), cache, slog.Default()), store
}

func oneTimeRoutine(id string, deadline time.Time) *models.Routine {
	return &models.Routine{
		ID:           id,
		Name:         "Routine " + id,
		ScheduleType: models.ScheduleTypeOneTime,
		Deadline:     &deadline,
	}
}

func TestUpcoming_Worklist_SortedByDueDate(t *testing.T) {
	t.Parallel()

	svc, store := setupUpcoming(t, nil)

	asOf := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	// Seeded out of order on purpose.
	seedRoutine(t, store, oneTimeRoutine("due-in-5", asOf.AddDate(0, 0, 5)))
	seedRoutine(t, store, oneTimeRoutine("due-in-1", asOf.AddDate(0, 0, 1)))
	seedRoutine(t, store, oneTimeRoutine("due-in-3", asOf.AddDate(0, 0, 3)))

	entries, err := svc.Worklist(context.Background(), 7, asOf)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "due-in-1", entries[0].Routine.ID)
	assert.Equal(t, "due-in-3", entries[1].Routine.ID)
	assert.Equal(t, "due-in-5", entries[2].Routine.ID)
	assert.Equal(t, 1, entries[0].DaysUntilDue)
	assert.Equal(t, 3, entries[1].DaysUntilDue)
	assert.Equal(t, 5, entries[2].DaysUntilDue)
}

func TestUpcoming_Worklist_WindowBounds(t *testing.T) {
	t.Parallel()

	svc, store := setupUpcoming(t, nil)

	asOf := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	seedRoutine(t, store, oneTimeRoutine("past-due", asOf.AddDate(0, 0, -1)))
	seedRoutine(t, store, oneTimeRoutine("inside", asOf.AddDate(0, 0, 4)))
	seedRoutine(t, store, oneTimeRoutine("beyond", asOf.AddDate(0, 0, 10)))

	entries, err := svc.Worklist(context.Background(), 7, asOf)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "inside", entries[0].Routine.ID)
}

func TestUpcoming_Worklist_RecurringProducesAnEntryPerOccurrence(t *testing.T) {
	t.Parallel()

	svc, store := setupUpcoming(t, nil)

	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	seedRoutine(t, store, &models.Routine{
		ID:           "water-change",
		Name:         "Aquarium Water Change",
		ScheduleType: models.ScheduleTypeRecurring,
		Recurrence: &models.RecurrenceRule{
			Frequency: models.FrequencyDaily,
			Interval:  3,
			StartDate: asOf,
		},
	})

	entries, err := svc.Worklist(context.Background(), 7, asOf)
	require.NoError(t, err)

	// June 1, 4, 7.
	require.Len(t, entries, 3)

	for _, entry := range entries {
		assert.Equal(t, "water-change", entry.Routine.ID)
	}

	assert.Equal(t, 0, entries[0].DaysUntilDue)
	assert.Equal(t, 3, entries[1].DaysUntilDue)
	assert.Equal(t, 6, entries[2].DaysUntilDue)
}

func TestUpcoming_Worklist_TemplatesNeverAppear(t *testing.T) {
	t.Parallel()

	svc, store := setupUpcoming(t, nil)

	seedRoutine(t, store, &models.Routine{
		ID:           "template-1",
		Name:         "Blueprint Routine",
		ScheduleType: models.ScheduleTypeTemplate,
	})

	entries, err := svc.Worklist(context.Background(), 30, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpcoming_Worklist_CacheHitSkipsRecompute(t *testing.T) {
	t.Parallel()

	cache := newFakeWorklistCache()
	svc, store := setupUpcoming(t, cache)

	asOf := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	seedRoutine(t, store, oneTimeRoutine("due-in-1", asOf.AddDate(0, 0, 1)))

	first, err := svc.Worklist(context.Background(), 7, asOf)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 0, cache.hits)

	// New routines are invisible until the cache entry expires; the second
	// call is served from cache.
	seedRoutine(t, store, oneTimeRoutine("due-in-2", asOf.AddDate(0, 0, 2)))

	second, err := svc.Worklist(context.Background(), 7, asOf)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, cache.hits)

	// A different window is a different cache key.
	third, err := svc.Worklist(context.Background(), 14, asOf)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 1, cache.hits)
}
