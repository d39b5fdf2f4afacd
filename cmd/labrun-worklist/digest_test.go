package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labforge/labrun/pkg/channels/gochannel"
	"github.com/labforge/labrun/pkg/eventbus"
	"github.com/labforge/labrun/pkg/events"
	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence/memory"
	"github.com/labforge/labrun/pkg/services"
)

func TestDigest_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := memory.NewPersistence()

	deadline := time.Now().UTC().Add(48 * time.Hour)
	require.NoError(t, store.RoutineRepository().SaveRoutine(ctx, &models.Routine{
		ID:           "filter-swap",
		Name:         "Filter Swap",
		ScheduleType: models.ScheduleTypeOneTime,
		Deadline:     &deadline,
	}))

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	defer func() {
		require.NoError(t, bus.Close())
	}()

	received := make(chan *events.WorklistGenerated, 1)

	require.NoError(t, bus.Handle(events.WorklistGeneratedEvent, func(_ context.Context, event any) error {
		digest, ok := event.(*events.WorklistGenerated)
		require.True(t, ok)

		received <- digest

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	upcoming := services.NewUpcoming(store.RoutineRepository(), nil, slog.Default())
	digest := NewDigest(upcoming, bus, slog.Default(), 7)

	require.NoError(t, digest.Publish(ctx))

	select {
	case event := <-received:
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, events.WorklistGeneratedEvent, event.Type)
		assert.Equal(t, 7, event.WindowDays)
		require.Len(t, event.Entries, 1)
		assert.Equal(t, "filter-swap", event.Entries[0].RoutineID)
		assert.Equal(t, "Filter Swap", event.Entries[0].RoutineName)
		assert.Equal(t, 2, event.Entries[0].DaysUntilDue)
	case <-ctx.Done():
		t.Fatal("timed out waiting for worklist digest event")
	}
}

func TestDigest_Publish_EmptyWorklist(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := memory.NewPersistence()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	defer func() {
		require.NoError(t, bus.Close())
	}()

	received := make(chan *events.WorklistGenerated, 1)

	require.NoError(t, bus.Handle(events.WorklistGeneratedEvent, func(_ context.Context, event any) error {
		digest, ok := event.(*events.WorklistGenerated)
		require.True(t, ok)

		received <- digest

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	upcoming := services.NewUpcoming(store.RoutineRepository(), nil, slog.Default())
	digest := NewDigest(upcoming, bus, slog.Default(), 7)

	require.NoError(t, digest.Publish(ctx))

	select {
	case event := <-received:
		assert.Empty(t, event.Entries)
	case <-ctx.Done():
		t.Fatal("timed out waiting for worklist digest event")
	}
}
