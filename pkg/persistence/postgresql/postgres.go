// Package postgresql provides the PostgreSQL persistence implementation for
// routines, executions, inventory, and equipment bookings.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/labforge/labrun/pkg/persistence"
	"github.com/labforge/labrun/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	routineRepo   *RoutineRepository
	executionRepo *ExecutionRepository
	inventoryRepo *InventoryRepository
	bookingRepo   *BookingRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		routineRepo:   NewRoutineRepository(database, logger),
		executionRepo: NewExecutionRepository(database, logger),
		inventoryRepo: NewInventoryRepository(database, logger),
		bookingRepo:   NewBookingRepository(database, logger),
	}, nil
}

func (p *Persistence) RoutineRepository() persistence.RoutineRepository {
	return p.routineRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) InventoryRepository() persistence.InventoryRepository {
	return p.inventoryRepo
}

func (p *Persistence) BookingRepository() persistence.BookingRepository {
	return p.bookingRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
