package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/labforge/labrun/pkg/eventbus"
	"github.com/labforge/labrun/pkg/events"
	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/otelhelper"
	"github.com/labforge/labrun/pkg/persistence"
)

// MaterialOverride replaces a routine's declared quantity for one material at
// completion time, when the amount actually used differs from the plan.
type MaterialOverride struct {
	MaterialID string  `json:"material_id" validate:"required"`
	Quantity   float64 `json:"quantity"    validate:"gt=0"`
}

// Execution owns the lifecycle of routine runs: in_progress -> completed or
// cancelled, never backward. Terminal transitions for one execution are
// serialized under a per-execution lock, so concurrent complete/cancel calls
// resolve to exactly one winner; the loser observes the terminal state and
// fails with ErrInvalidExecutionState.
type Execution struct {
	routines     persistence.RoutineRepository
	executions   persistence.ExecutionRepository
	inventory    persistence.InventoryRepository
	bookings     persistence.BookingRepository
	availability *Availability
	eventBus     eventbus.EventPublisher
	tracer       trace.Tracer
	logger       *slog.Logger
	locks        *keyedMutex
	now          func() time.Time
}

// NewExecution creates the execution state machine service. eventBus and
// tracer may be nil, in which case lifecycle events and spans are skipped.
func NewExecution(
	store persistence.Persistence,
	availability *Availability,
	eventBus eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Execution {
	return &Execution{
		routines:     store.RoutineRepository(),
		executions:   store.ExecutionRepository(),
		inventory:    store.InventoryRepository(),
		bookings:     store.BookingRepository(),
		availability: availability,
		eventBus:     eventBus,
		tracer:       tracer,
		logger:       logger.With("module", "execution_service"),
		locks:        newKeyedMutex(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start creates an in-progress execution for the routine. Materials are
// re-checked defensively even though the caller is expected to have surfaced
// an availability report already; equipment is not re-checked here because
// equipment availability is advisory and enforced at booking time.
func (e *Execution) Start(ctx context.Context, routineID, userID string) (*models.RoutineExecution, error) {
	ctx, span := e.startSpan(ctx, "execution.start", attribute.String("routine.id", routineID))
	defer span.End()

	routine, err := e.routines.RoutineByID(ctx, routineID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	issues, err := e.availability.materialIssues(ctx, routine.Materials)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if len(issues) > 0 {
		shortfall := &persistence.InsufficientStockError{
			MaterialID: issues[0].MaterialID,
			Requested:  issues[0].Required,
			Available:  issues[0].Available,
			Unit:       issues[0].Unit,
		}
		otelhelper.SetError(span, shortfall)

		return nil, shortfall
	}

	execution := models.NewRoutineExecution(routine, userID, e.now())

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.logger.InfoContext(ctx, "Execution started",
		"execution_id", execution.ID,
		"routine_id", routineID,
		"executed_by", userID,
	)

	e.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent, routineID),
		ExecutionID: execution.ID,
		ExecutedBy:  userID,
	})

	return execution, nil
}

// SetStepCompletion updates one step's completion flag and notes. Only
// in-progress executions can be mutated. Setting the same value twice is a
// no-op beyond the timestamp refresh.
func (e *Execution) SetStepCompletion(ctx context.Context, executionID, stepID string, completed bool, notes string) (*models.RoutineExecution, error) {
	unlock := e.locks.Lock(executionID)
	defer unlock()

	execution, err := e.executions.ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionStatusInProgress {
		return nil, fmt.Errorf("%w: execution %s is %s", ErrInvalidExecutionState, executionID, execution.Status)
	}

	completion := execution.StepCompletionByID(stepID)
	if completion == nil {
		return nil, fmt.Errorf("%w: step %s in execution %s", ErrStepNotFound, stepID, executionID)
	}

	completion.Completed = completed
	completion.Notes = notes

	if completed {
		now := e.now()
		completion.CompletedAt = &now
	} else {
		completion.CompletedAt = nil
	}

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		return nil, err
	}

	return execution, nil
}

// Complete moves the execution to completed and applies the inventory
// deduction transaction exactly once. Declared routine quantities are used
// unless the caller supplies overrides for materials whose actual usage
// differed. If the deduction fails the execution stays in_progress and
// nothing is deducted.
func (e *Execution) Complete(ctx context.Context, executionID, notes string, overrides []MaterialOverride) (*models.RoutineExecution, error) {
	ctx, span := e.startSpan(ctx, "execution.complete", attribute.String("execution.id", executionID))
	defer span.End()

	unlock := e.locks.Lock(executionID)
	defer unlock()

	execution, err := e.executions.ExecutionByID(ctx, executionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !execution.Status.CanTransitionTo(models.ExecutionStatusCompleted) {
		err := fmt.Errorf("%w: execution %s is %s", ErrInvalidExecutionState, executionID, execution.Status)
		otelhelper.SetError(span, err)

		return nil, err
	}

	if outstanding := execution.OutstandingStepIDs(); len(outstanding) > 0 {
		err := &IncompleteStepsError{StepIDs: outstanding}
		otelhelper.SetError(span, err)

		return nil, err
	}

	routine, err := e.routines.RoutineByID(ctx, execution.RoutineID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	deductions, err := e.inventory.DeductAll(ctx, applyOverrides(routine.Materials, overrides))
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	now := e.now()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	execution.MaterialDeductions = deductions

	if notes != "" {
		execution.Notes = notes
	}

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.logger.InfoContext(ctx, "Execution completed",
		"execution_id", execution.ID,
		"routine_id", execution.RoutineID,
		"deductions", len(deductions),
	)

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:   e.baseEvent(events.ExecutionCompletedEvent, execution.RoutineID),
		ExecutionID: execution.ID,
		Deductions:  deductions,
		Duration:    now.Sub(execution.StartedAt),
	})

	return execution, nil
}

// Cancel moves the execution to cancelled. No inventory effect; equipment
// bookings held on behalf of the execution are released.
func (e *Execution) Cancel(ctx context.Context, executionID string) (*models.RoutineExecution, error) {
	ctx, span := e.startSpan(ctx, "execution.cancel", attribute.String("execution.id", executionID))
	defer span.End()

	unlock := e.locks.Lock(executionID)
	defer unlock()

	execution, err := e.executions.ExecutionByID(ctx, executionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !execution.Status.CanTransitionTo(models.ExecutionStatusCancelled) {
		err := fmt.Errorf("%w: execution %s is %s", ErrInvalidExecutionState, executionID, execution.Status)
		otelhelper.SetError(span, err)

		return nil, err
	}

	now := e.now()
	execution.Status = models.ExecutionStatusCancelled
	execution.CompletedAt = &now

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := e.bookings.ReleaseByExecution(ctx, executionID); err != nil {
		// The cancellation itself committed; booking cleanup is owned by the
		// equipment collaborator and can be retried there.
		e.logger.WarnContext(ctx, "Failed to release bookings for cancelled execution",
			"execution_id", executionID,
			"error", err,
		)
	}

	e.logger.InfoContext(ctx, "Execution cancelled",
		"execution_id", execution.ID,
		"routine_id", execution.RoutineID,
	)

	e.publish(ctx, execution.ID, events.ExecutionCancelled{
		BaseEvent:   e.baseEvent(events.ExecutionCancelledEvent, execution.RoutineID),
		ExecutionID: execution.ID,
		Duration:    now.Sub(execution.StartedAt),
	})

	return execution, nil
}

// Get returns an execution by ID. This read is the single source of truth the
// UI reconciles its optimistic step state against.
func (e *Execution) Get(ctx context.Context, executionID string) (*models.RoutineExecution, error) {
	return e.executions.ExecutionByID(ctx, executionID)
}

// applyOverrides replaces declared quantities with caller-supplied actuals,
// matched by material ID. Overrides for materials the routine does not
// declare are ignored.
func applyOverrides(declared []models.MaterialRequirement, overrides []MaterialOverride) []models.MaterialRequirement {
	if len(overrides) == 0 {
		return declared
	}

	actual := make(map[string]float64, len(overrides))
	for _, o := range overrides {
		actual[o.MaterialID] = o.Quantity
	}

	requirements := make([]models.MaterialRequirement, 0, len(declared))

	for _, req := range declared {
		if quantity, ok := actual[req.MaterialID]; ok {
			req.Quantity = quantity
		}

		requirements = append(requirements, req)
	}

	return requirements
}

func (e *Execution) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, e.tracer, name, attrs...)
}

func (e *Execution) baseEvent(eventType events.EventType, routineID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        watermillID(e.eventBus),
		Type:      eventType,
		Timestamp: e.now(),
		RoutineID: routineID,
	}
}

func (e *Execution) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

func watermillID(bus eventbus.EventPublisher) string {
	if generator, ok := bus.(interface{ GenerateID() string }); ok {
		return generator.GenerateID()
	}

	return ""
}
