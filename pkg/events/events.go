// Package events defines event types for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/labforge/labrun/pkg/models"
)

type EventType string

// Topic is the single topic all engine events are published on.
const Topic = "labrun.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Worklist projection events.
	WorklistGeneratedEvent EventType = "worklist.generated"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoutineID string    `json:"routine_id,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	ExecutedBy  string `json:"executed_by"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string                     `json:"execution_id"`
	Deductions  []models.MaterialDeduction `json:"deductions,omitempty"`
	Duration    time.Duration              `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

// WorklistEntry is one due routine in a generated worklist digest.
type WorklistEntry struct {
	RoutineID    string    `json:"routine_id"`
	RoutineName  string    `json:"routine_name"`
	DueDate      time.Time `json:"due_date"`
	DaysUntilDue int       `json:"days_until_due"`
}

type WorklistGenerated struct {
	BaseEvent

	WindowDays int             `json:"window_days"`
	Entries    []WorklistEntry `json:"entries"`
}

func (e WorklistGenerated) GetType() EventType {
	return WorklistGeneratedEvent
}
