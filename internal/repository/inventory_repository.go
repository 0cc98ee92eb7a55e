package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Querier is the subset of database/sql needed by ledger mutations. Both
// *sql.DB and *sql.Tx satisfy it, so decrements and increments can run inside
// the order placement transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InventoryRepository defines the operations on Product.stock_quantity. Stock
// is never reserved by cart activity; it changes only through these two
// mutations, driven by order placement and cancellation.
type InventoryRepository interface {
	CheckAvailability(ctx context.Context, productID uuid.UUID, requested int) (bool, int, error)
	Decrement(ctx context.Context, q Querier, productID uuid.UUID, amount int) error
	Increment(ctx context.Context, q Querier, productID uuid.UUID, amount int) error
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// CheckAvailability reports whether the requested quantity can currently be
// sold, along with the current stock level. Pure read, no side effect.
func (r *inventoryRepository) CheckAvailability(ctx context.Context, productID uuid.UUID, requested int) (bool, int, error) {
	query := `SELECT stock_quantity FROM products WHERE id = $1`

	var stock int
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, 0, ErrProductNotFound
		}
		return false, 0, fmt.Errorf("failed to check availability: %w", err)
	}

	return stock >= requested, stock, nil
}

// Decrement subtracts amount from the product's stock. The guard is in the
// WHERE clause: if current stock is below amount no row is updated and
// ErrInsufficientStock is returned, so stock can never go negative even under
// concurrent transactions.
func (r *inventoryRepository) Decrement(ctx context.Context, q Querier, productID uuid.UUID, amount int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2
	`

	result, err := q.ExecContext(ctx, query, productID, amount)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// Increment adds amount back to the product's stock. Used only to compensate a
// cancelled order, so no upper bound applies.
func (r *inventoryRepository) Increment(ctx context.Context, q Querier, productID uuid.UUID, amount int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.ExecContext(ctx, query, productID, amount)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
