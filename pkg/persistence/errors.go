// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRoutineNotFound indicates a routine was not found by the given identifier.
	ErrRoutineNotFound = errors.New("routine not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrMaterialNotFound indicates no stock record exists for the given material.
	ErrMaterialNotFound = errors.New("material not found")

	// ErrBookingNotFound indicates a booking was not found by the given identifier.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInsufficientStock indicates a deduction would overdraw a material's
	// on-hand quantity. The transaction is rolled back as a whole.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError names the first shortfall found by a deduction
// transaction. It unwraps to ErrInsufficientStock.
type InsufficientStockError struct {
	MaterialID string
	Requested  float64
	Available  float64
	Unit       string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of material %s: requested %g %s, available %g %s",
		e.MaterialID, e.Requested, e.Unit, e.Available, e.Unit)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ExecutionError wraps execution-related storage errors with context.
type ExecutionError struct {
	Op          string // Operation being performed (e.g., "GetByID", "Save")
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, ExecutionID: executionID, Err: err}
}

// IsRoutineNotFound checks if an error indicates a routine was not found.
func IsRoutineNotFound(err error) bool {
	return errors.Is(err, ErrRoutineNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsMaterialNotFound checks if an error indicates a material was not found.
func IsMaterialNotFound(err error) bool {
	return errors.Is(err, ErrMaterialNotFound)
}

// IsInsufficientStock checks if an error indicates an overdraw was prevented.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}
