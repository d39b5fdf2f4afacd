package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// WorklistEntry is one due routine occurrence in the upcoming worklist. A
// recurring routine due three times in the window produces three entries.
type WorklistEntry struct {
	Routine      *models.Routine `json:"routine"`
	DueDate      time.Time       `json:"due_date"`
	DaysUntilDue int             `json:"days_until_due"`
}

// WorklistCache caches computed worklists for a short period. Implementations
// must treat a miss and an unavailable backend the same way: return false and
// let the projector recompute.
type WorklistCache interface {
	Get(ctx context.Context, key string) ([]WorklistEntry, bool)
	Set(ctx context.Context, key string, entries []WorklistEntry)
}

// Upcoming projects routine schedules into a sorted worklist for a lookahead
// window. It has no execution state; recurring due dates come from the
// recurrence expander and one-time due dates from the routine's deadline.
type Upcoming struct {
	routines persistence.RoutineRepository
	cache    WorklistCache
	logger   *slog.Logger
}

// NewUpcoming creates the worklist projector. cache may be nil.
func NewUpcoming(routines persistence.RoutineRepository, cache WorklistCache, logger *slog.Logger) *Upcoming {
	return &Upcoming{
		routines: routines,
		cache:    cache,
		logger:   logger.With("module", "upcoming_service"),
	}
}

// Worklist returns every routine occurrence due within windowDays of asOf,
// sorted ascending by due date. Template routines never appear: they have no
// due date.
func (u *Upcoming) Worklist(ctx context.Context, windowDays int, asOf time.Time) ([]WorklistEntry, error) {
	asOf = asOf.UTC()
	cacheKey := fmt.Sprintf("worklist:%d:%s", windowDays, asOf.Format("2006-01-02"))

	if u.cache != nil {
		if entries, ok := u.cache.Get(ctx, cacheKey); ok {
			return entries, nil
		}
	}

	routines, err := u.routines.Routines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}

	windowEnd := asOf.AddDate(0, 0, windowDays)
	entries := make([]WorklistEntry, 0)

	for _, routine := range routines {
		switch routine.ScheduleType {
		case models.ScheduleTypeOneTime:
			if routine.Deadline == nil {
				continue
			}

			due := routine.Deadline.UTC()
			if due.Before(asOf) || due.After(windowEnd) {
				continue
			}

			entries = append(entries, newWorklistEntry(routine, due, asOf))
		case models.ScheduleTypeRecurring:
			if routine.Recurrence == nil {
				continue
			}

			for _, due := range routine.Recurrence.Expand(asOf, windowEnd, 0) {
				entries = append(entries, newWorklistEntry(routine, due, asOf))
			}
		case models.ScheduleTypeTemplate:
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DueDate.Equal(entries[j].DueDate) {
			return entries[i].Routine.ID < entries[j].Routine.ID
		}

		return entries[i].DueDate.Before(entries[j].DueDate)
	})

	if u.cache != nil {
		u.cache.Set(ctx, cacheKey, entries)
	}

	return entries, nil
}

func newWorklistEntry(routine *models.Routine, due, asOf time.Time) WorklistEntry {
	return WorklistEntry{
		Routine:      routine,
		DueDate:      due,
		DaysUntilDue: daysUntil(due, asOf),
	}
}

// daysUntil rounds up: anything due later today counts as 0 days out only
// when it is already due now, otherwise partial days count as a full day.
func daysUntil(due, asOf time.Time) int {
	if !due.After(asOf) {
		return 0
	}

	return int(math.Ceil(due.Sub(asOf).Hours() / 24))
}
