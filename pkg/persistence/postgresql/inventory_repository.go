package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// InventoryRepository handles material stock database operations.
type InventoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *sql.DB, logger *slog.Logger) *InventoryRepository {
	return &InventoryRepository{db: db, logger: logger}
}

// Quantity returns the current on-hand level for one material.
func (r *InventoryRepository) Quantity(ctx context.Context, materialID string) (persistence.StockLevel, error) {
	query := `SELECT material_id, quantity, unit FROM inventory_levels WHERE material_id = $1`

	var level persistence.StockLevel

	err := r.db.QueryRowContext(ctx, query, materialID).Scan(&level.MaterialID, &level.Quantity, &level.Unit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.StockLevel{}, persistence.ErrMaterialNotFound
		}

		return persistence.StockLevel{}, fmt.Errorf("failed to query stock level for %s: %w", materialID, err)
	}

	return level, nil
}

// SetQuantity upserts the stock level for one material.
func (r *InventoryRepository) SetQuantity(ctx context.Context, level persistence.StockLevel) error {
	query := `
		INSERT INTO inventory_levels (material_id, quantity, unit, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (material_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			unit = EXCLUDED.unit,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, level.MaterialID, level.Quantity, level.Unit, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set stock level for %s: %w", level.MaterialID, err)
	}

	return nil
}

// DeductAll decrements every requested material inside one database
// transaction. Each level row is locked with FOR UPDATE before the re-read,
// so two concurrent deductions of the same material serialize and cannot both
// pass a stale sufficiency check. Any shortfall rolls the whole transaction
// back and nothing is deducted.
func (r *InventoryRepository) DeductAll(ctx context.Context, requirements []models.MaterialRequirement) ([]models.MaterialDeduction, error) {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin deduction transaction: %w", err)
	}

	rollback := func() {
		if err := transaction.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.ErrorContext(ctx, "failed to roll back deduction transaction", "error", err)
		}
	}

	deductions := make([]models.MaterialDeduction, 0, len(requirements))

	for _, req := range requirements {
		var (
			available float64
			unit      string
		)

		err := transaction.QueryRowContext(ctx,
			`SELECT quantity, unit FROM inventory_levels WHERE material_id = $1 FOR UPDATE`,
			req.MaterialID,
		).Scan(&available, &unit)
		if err != nil {
			rollback()

			if errors.Is(err, sql.ErrNoRows) {
				return nil, &persistence.InsufficientStockError{
					MaterialID: req.MaterialID,
					Requested:  req.Quantity,
					Available:  0,
					Unit:       req.Unit,
				}
			}

			return nil, fmt.Errorf("failed to read stock level for %s: %w", req.MaterialID, err)
		}

		if available < req.Quantity {
			rollback()

			return nil, &persistence.InsufficientStockError{
				MaterialID: req.MaterialID,
				Requested:  req.Quantity,
				Available:  available,
				Unit:       unit,
			}
		}

		_, err = transaction.ExecContext(ctx,
			`UPDATE inventory_levels SET quantity = quantity - $1, updated_at = $2 WHERE material_id = $3`,
			req.Quantity, time.Now().UTC(), req.MaterialID,
		)
		if err != nil {
			rollback()

			return nil, fmt.Errorf("failed to decrement stock for %s: %w", req.MaterialID, err)
		}

		deductions = append(deductions, models.MaterialDeduction{
			MaterialID:       req.MaterialID,
			QuantityDeducted: req.Quantity,
			Unit:             req.Unit,
		})
	}

	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deduction transaction: %w", err)
	}

	return deductions, nil
}
