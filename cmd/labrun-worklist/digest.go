// Package main provides the worklist digest daemon. On a cron schedule it
// projects the upcoming worklist and publishes it as a worklist.generated
// event for downstream consumers (notifiers, dashboards).
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/labforge/labrun/pkg/eventbus"
	"github.com/labforge/labrun/pkg/events"
	"github.com/labforge/labrun/pkg/services"
)

type Digest struct {
	upcoming   *services.Upcoming
	eventBus   eventbus.EventBus
	logger     *slog.Logger
	windowDays int
}

func NewDigest(upcoming *services.Upcoming, eventBus eventbus.EventBus, logger *slog.Logger, windowDays int) *Digest {
	return &Digest{
		upcoming:   upcoming,
		eventBus:   eventBus,
		logger:     logger,
		windowDays: windowDays,
	}
}

// Publish projects the worklist as of now and publishes the digest event.
func (d *Digest) Publish(ctx context.Context) error {
	now := time.Now().UTC()

	entries, err := d.upcoming.Worklist(ctx, d.windowDays, now)
	if err != nil {
		return err
	}

	event := events.WorklistGenerated{
		BaseEvent: events.BaseEvent{
			ID:        d.eventBus.GenerateID(),
			Type:      events.WorklistGeneratedEvent,
			Timestamp: now,
		},
		WindowDays: d.windowDays,
		Entries:    digestEntries(entries),
	}

	if err := d.eventBus.Publish(ctx, event.ID, event); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "Worklist digest published",
		"window_days", d.windowDays,
		"entries", len(event.Entries),
	)

	return nil
}

func digestEntries(entries []services.WorklistEntry) []events.WorklistEntry {
	digest := make([]events.WorklistEntry, 0, len(entries))

	for _, entry := range entries {
		digest = append(digest, events.WorklistEntry{
			RoutineID:    entry.Routine.ID,
			RoutineName:  entry.Routine.Name,
			DueDate:      entry.DueDate,
			DaysUntilDue: entry.DaysUntilDue,
		})
	}

	return digest
}
