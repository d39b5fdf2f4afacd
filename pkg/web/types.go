package web

import (
	"time"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/services"
)

// ExpandRecurrenceRequest asks for the occurrence dates of a rule inside a
// window. MaxResults <= 0 means unbounded within the window; preview UIs
// typically ask for 3.
type ExpandRecurrenceRequest struct {
	Recurrence  models.RecurrenceRule `json:"recurrence"   validate:"required"`
	WindowStart time.Time             `json:"window_start" validate:"required"`
	WindowEnd   time.Time             `json:"window_end"   validate:"required"`
	MaxResults  int                   `json:"max_results"`
}

// ExpandRecurrenceResponse lists the expanded occurrence dates in order.
type ExpandRecurrenceResponse struct {
	Dates []time.Time `json:"dates"`
}

// StartExecutionRequest starts a run of a routine.
type StartExecutionRequest struct {
	ExecutedBy string `json:"executed_by" validate:"required"`
}

// StepCompletionRequest updates one step's completion state. Completed is a
// pointer so an omitted field fails validation instead of silently reading
// as false.
type StepCompletionRequest struct {
	Completed *bool  `json:"completed" validate:"required"`
	Notes     string `json:"notes"`
}

// CompleteExecutionRequest finishes an execution, optionally overriding
// declared material quantities with the amounts actually used.
type CompleteExecutionRequest struct {
	Notes           string                      `json:"notes"`
	ActualMaterials []services.MaterialOverride `json:"actual_materials" validate:"omitempty,dive"`
}

// CreateBookingRequest reserves equipment for a time range.
type CreateBookingRequest struct {
	StartTime        time.Time `json:"start_time" validate:"required"`
	EndTime          time.Time `json:"end_time"   validate:"required"`
	OwnerExecutionID string    `json:"owner_execution_id"`
}
