// Package models defines the core domain models for the routine scheduling and execution engine.
package models

import (
	"errors"
	"time"
)

// ScheduleType describes how a routine is scheduled.
type ScheduleType string

const (
	ScheduleTypeTemplate  ScheduleType = "template"  // No due dates, used as a blueprint
	ScheduleTypeOneTime   ScheduleType = "one_time"  // Single deadline
	ScheduleTypeRecurring ScheduleType = "recurring" // Repeating per recurrence rule
)

// MaterialRequirement declares how much of a material a routine consumes per run.
type MaterialRequirement struct {
	MaterialID string  `json:"material_id" validate:"required"`
	Quantity   float64 `json:"quantity"    validate:"gt=0"`
	Unit       string  `json:"unit"        validate:"required"`
}

// EquipmentRequirement declares equipment a routine needs for a run.
// Optional equipment (Required=false) never blocks availability.
type EquipmentRequirement struct {
	EquipmentID              string `json:"equipment_id" validate:"required"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes" validate:"gt=0"`
	Required                 bool   `json:"required"`
}

// Step is one ordered instruction of a routine. Order is a dense 1-based
// sequence, unique within the routine.
type Step struct {
	ID          string `json:"id"    validate:"required"`
	Order       int    `json:"order" validate:"min=1"`
	Description string `json:"description" validate:"required"`
	Notes       string `json:"notes,omitempty"`
}

// Routine is a reusable procedure definition. Routines are authored by an
// external workflow and are read-only to this engine.
type Routine struct {
	ID              string                 `json:"id"   validate:"required"`
	Name            string                 `json:"name" validate:"required,min=3"`
	Description     string                 `json:"description"`
	Materials       []MaterialRequirement  `json:"materials"`
	Equipment       []EquipmentRequirement `json:"equipment"`
	Steps           []Step                 `json:"steps"`
	ScheduleType    ScheduleType           `json:"schedule_type" validate:"required,oneof=template one_time recurring"`
	Deadline        *time.Time             `json:"deadline,omitempty"`
	Recurrence      *RecurrenceRule        `json:"recurrence,omitempty"`
	AssignedUserIDs []string               `json:"assigned_user_ids,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

var (
	// ErrScheduleMismatch is returned when deadline/recurrence presence does
	// not match the declared schedule type.
	ErrScheduleMismatch = errors.New("schedule type does not match deadline/recurrence fields")

	// ErrStepOrderNotDense is returned when step orders are not a dense,
	// unique 1-based sequence.
	ErrStepOrderNotDense = errors.New("step order must be a dense 1-based sequence")
)

// Validate enforces the structural invariants the authoring workflow is
// supposed to guarantee. The engine still calls this defensively when loading
// routine definitions.
func (r *Routine) Validate() error {
	switch r.ScheduleType {
	case ScheduleTypeTemplate:
		if r.Deadline != nil || r.Recurrence != nil {
			return ErrScheduleMismatch
		}
	case ScheduleTypeOneTime:
		if r.Deadline == nil || r.Recurrence != nil {
			return ErrScheduleMismatch
		}
	case ScheduleTypeRecurring:
		if r.Recurrence == nil || r.Deadline != nil {
			return ErrScheduleMismatch
		}
		if err := r.Recurrence.Validate(); err != nil {
			return err
		}
	default:
		return ErrScheduleMismatch
	}

	seen := make(map[int]bool, len(r.Steps))
	for _, step := range r.Steps {
		if step.Order < 1 || step.Order > len(r.Steps) || seen[step.Order] {
			return ErrStepOrderNotDense
		}

		seen[step.Order] = true
	}

	return nil
}

// StepByID returns the step with the given ID.
func (r *Routine) StepByID(stepID string) (Step, bool) {
	for _, step := range r.Steps {
		if step.ID == stepID {
			return step, true
		}
	}

	return Step{}, false
}
