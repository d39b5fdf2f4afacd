// Package memory provides an in-memory persistence implementation used by
// tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// Persistence implements persistence.Persistence with plain maps behind a
// mutex per repository. Reads hand out copies so callers never alias the
// stored records.
type Persistence struct {
	routines   *routineRepository
	executions *executionRepository
	inventory  *inventoryRepository
	bookings   *bookingRepository
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		routines:   &routineRepository{items: make(map[string]*models.Routine)},
		executions: &executionRepository{items: make(map[string]*models.RoutineExecution)},
		inventory:  &inventoryRepository{levels: make(map[string]persistence.StockLevel)},
		bookings:   &bookingRepository{items: make(map[string]*models.EquipmentBooking)},
	}
}

func (p *Persistence) RoutineRepository() persistence.RoutineRepository {
	return p.routines
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) InventoryRepository() persistence.InventoryRepository {
	return p.inventory
}

func (p *Persistence) BookingRepository() persistence.BookingRepository {
	return p.bookings
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// routine repository

type routineRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Routine
}

func (r *routineRepository) Routines(_ context.Context) ([]*models.Routine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routines := make([]*models.Routine, 0, len(r.items))
	for _, routine := range r.items {
		routines = append(routines, copyRoutine(routine))
	}

	return routines, nil
}

func (r *routineRepository) RoutineByID(_ context.Context, id string) (*models.Routine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routine, ok := r.items[id]
	if !ok {
		return nil, persistence.ErrRoutineNotFound
	}

	return copyRoutine(routine), nil
}

func (r *routineRepository) SaveRoutine(_ context.Context, routine *models.Routine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[routine.ID] = copyRoutine(routine)

	return nil
}

// execution repository

type executionRepository struct {
	mu    sync.RWMutex
	items map[string]*models.RoutineExecution
}

func (r *executionRepository) ExecutionByID(_ context.Context, id string) (*models.RoutineExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.items[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return copyExecution(execution), nil
}

func (r *executionRepository) ExecutionsByRoutine(_ context.Context, routineID string) ([]*models.RoutineExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executions []*models.RoutineExecution

	for _, execution := range r.items {
		if execution.RoutineID == routineID {
			executions = append(executions, copyExecution(execution))
		}
	}

	return executions, nil
}

func (r *executionRepository) SaveExecution(_ context.Context, execution *models.RoutineExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[execution.ID] = copyExecution(execution)

	return nil
}

// inventory repository

type inventoryRepository struct {
	mu     sync.Mutex
	levels map[string]persistence.StockLevel
}

func (r *inventoryRepository) Quantity(_ context.Context, materialID string) (persistence.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	level, ok := r.levels[materialID]
	if !ok {
		return persistence.StockLevel{}, persistence.ErrMaterialNotFound
	}

	return level, nil
}

func (r *inventoryRepository) SetQuantity(_ context.Context, level persistence.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.levels[level.MaterialID] = level

	return nil
}

// DeductAll validates every requirement against current stock under one lock
// before applying any decrement, so a shortfall aborts with nothing deducted
// and two concurrent deductions cannot jointly overdraw a material.
func (r *inventoryRepository) DeductAll(_ context.Context, requirements []models.MaterialRequirement) ([]models.MaterialDeduction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, req := range requirements {
		level, ok := r.levels[req.MaterialID]
		if !ok {
			return nil, &persistence.InsufficientStockError{
				MaterialID: req.MaterialID,
				Requested:  req.Quantity,
				Available:  0,
				Unit:       req.Unit,
			}
		}

		if level.Quantity < req.Quantity {
			return nil, &persistence.InsufficientStockError{
				MaterialID: req.MaterialID,
				Requested:  req.Quantity,
				Available:  level.Quantity,
				Unit:       level.Unit,
			}
		}
	}

	deductions := make([]models.MaterialDeduction, 0, len(requirements))

	for _, req := range requirements {
		level := r.levels[req.MaterialID]
		level.Quantity -= req.Quantity
		r.levels[req.MaterialID] = level

		deductions = append(deductions, models.MaterialDeduction{
			MaterialID:       req.MaterialID,
			QuantityDeducted: req.Quantity,
			Unit:             req.Unit,
		})
	}

	return deductions, nil
}

// booking repository

type bookingRepository struct {
	mu    sync.RWMutex
	items map[string]*models.EquipmentBooking
}

func (r *bookingRepository) BookingsInWindow(_ context.Context, equipmentID string, window models.Interval) ([]*models.EquipmentBooking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bookings []*models.EquipmentBooking

	for _, booking := range r.items {
		if booking.EquipmentID != equipmentID {
			continue
		}

		if window.Overlaps(booking.Interval()) {
			clone := *booking
			bookings = append(bookings, &clone)
		}
	}

	return bookings, nil
}

func (r *bookingRepository) SaveBooking(_ context.Context, booking *models.EquipmentBooking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *booking
	r.items[booking.ID] = &clone

	return nil
}

func (r *bookingRepository) ReleaseByExecution(_ context.Context, executionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, booking := range r.items {
		if booking.OwnerExecutionID == executionID {
			delete(r.items, id)
		}
	}

	return nil
}

// copy helpers

func copyRoutine(routine *models.Routine) *models.Routine {
	clone := *routine
	clone.Materials = append([]models.MaterialRequirement(nil), routine.Materials...)
	clone.Equipment = append([]models.EquipmentRequirement(nil), routine.Equipment...)
	clone.Steps = append([]models.Step(nil), routine.Steps...)
	clone.AssignedUserIDs = append([]string(nil), routine.AssignedUserIDs...)

	if routine.Recurrence != nil {
		rule := *routine.Recurrence
		rule.DaysOfWeek = append([]time.Weekday(nil), routine.Recurrence.DaysOfWeek...)
		clone.Recurrence = &rule
	}

	return &clone
}

func copyExecution(execution *models.RoutineExecution) *models.RoutineExecution {
	clone := *execution
	clone.StepCompletions = append([]models.StepCompletion(nil), execution.StepCompletions...)
	clone.MaterialDeductions = append([]models.MaterialDeduction(nil), execution.MaterialDeductions...)

	return &clone
}
