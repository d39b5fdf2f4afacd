// Package persistence provides the data storage abstraction layer for
// routines, executions, inventory, and equipment bookings.
package persistence

import (
	"context"

	"github.com/labforge/labrun/pkg/models"
)

// StockLevel is the current on-hand quantity of one material.
type StockLevel struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
}

// RoutineRepository stores routine definitions. The engine treats routines as
// read-only; Save exists for the catalog import path.
type RoutineRepository interface {
	Routines(ctx context.Context) ([]*models.Routine, error)
	RoutineByID(ctx context.Context, id string) (*models.Routine, error)
	SaveRoutine(ctx context.Context, routine *models.Routine) error
}

// ExecutionRepository stores routine execution records.
type ExecutionRepository interface {
	ExecutionByID(ctx context.Context, id string) (*models.RoutineExecution, error)
	ExecutionsByRoutine(ctx context.Context, routineID string) ([]*models.RoutineExecution, error)
	SaveExecution(ctx context.Context, execution *models.RoutineExecution) error
}

// InventoryRepository reads and decrements material stock levels.
//
// DeductAll is the inventory deduction transaction: it re-reads every
// requested material inside one atomic unit and either decrements all of them
// or none, returning InsufficientStockError on the first shortfall found.
// Implementations must serialize concurrent deductions of the same material.
type InventoryRepository interface {
	Quantity(ctx context.Context, materialID string) (StockLevel, error)
	SetQuantity(ctx context.Context, level StockLevel) error
	DeductAll(ctx context.Context, requirements []models.MaterialRequirement) ([]models.MaterialDeduction, error)
}

// BookingRepository stores equipment bookings.
type BookingRepository interface {
	BookingsInWindow(ctx context.Context, equipmentID string, window models.Interval) ([]*models.EquipmentBooking, error)
	SaveBooking(ctx context.Context, booking *models.EquipmentBooking) error
	ReleaseByExecution(ctx context.Context, executionID string) error
}

// Persistence bundles the repositories behind one storage backend.
type Persistence interface {
	RoutineRepository() RoutineRepository
	ExecutionRepository() ExecutionRepository
	InventoryRepository() InventoryRepository
	BookingRepository() BookingRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
