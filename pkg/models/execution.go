package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the lifecycle state of a routine execution.
// It only ever moves forward: in_progress -> completed | cancelled.
type ExecutionStatus string

const (
	ExecutionStatusInProgress ExecutionStatus = "in_progress"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusCancelled  ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusCancelled
}

// CanTransitionTo reports whether moving from s to target is a legal forward
// transition.
func (s ExecutionStatus) CanTransitionTo(target ExecutionStatus) bool {
	return s == ExecutionStatusInProgress && target.IsTerminal()
}

// StepCompletion tracks completion state for one step of an execution.
type StepCompletion struct {
	StepID      string     `json:"step_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// MaterialDeduction records one inventory decrement applied when an execution
// completed.
type MaterialDeduction struct {
	MaterialID       string  `json:"material_id"`
	QuantityDeducted float64 `json:"quantity_deducted"`
	Unit             string  `json:"unit"`
}

// RoutineExecution is one concrete run of a routine. It is created in
// in_progress, mutated only while in_progress, and becomes immutable once it
// reaches a terminal state. MaterialDeductions is non-empty iff the execution
// completed (given the routine declares materials).
type RoutineExecution struct {
	ID                 string              `json:"id"`
	RoutineID          string              `json:"routine_id"`
	ExecutedBy         string              `json:"executed_by"`
	Status             ExecutionStatus     `json:"status"`
	StartedAt          time.Time           `json:"started_at"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	Notes              string              `json:"notes,omitempty"`
	StepCompletions    []StepCompletion    `json:"step_completions"`
	MaterialDeductions []MaterialDeduction `json:"material_deductions,omitempty"`
}

// NewRoutineExecution creates an in-progress execution for the routine with
// one pending StepCompletion per routine step, in step order.
func NewRoutineExecution(routine *Routine, executedBy string, now time.Time) *RoutineExecution {
	completions := make([]StepCompletion, 0, len(routine.Steps))
	for _, step := range routine.Steps {
		completions = append(completions, StepCompletion{StepID: step.ID})
	}

	return &RoutineExecution{
		ID:              uuid.New().String(),
		RoutineID:       routine.ID,
		ExecutedBy:      executedBy,
		Status:          ExecutionStatusInProgress,
		StartedAt:       now.UTC(),
		StepCompletions: completions,
	}
}

// StepCompletionByID returns a pointer into StepCompletions for the given
// step, or nil if the execution has no such step.
func (e *RoutineExecution) StepCompletionByID(stepID string) *StepCompletion {
	for i := range e.StepCompletions {
		if e.StepCompletions[i].StepID == stepID {
			return &e.StepCompletions[i]
		}
	}

	return nil
}

// OutstandingStepIDs returns the IDs of steps not yet marked complete.
func (e *RoutineExecution) OutstandingStepIDs() []string {
	var outstanding []string

	for _, sc := range e.StepCompletions {
		if !sc.Completed {
			outstanding = append(outstanding, sc.StepID)
		}
	}

	return outstanding
}
