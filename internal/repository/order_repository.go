package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotCancellable = errors.New("order is not in a cancellable state")
)

// InsufficientStockError reports which product could not cover the requested
// quantity, with the stock level observed at failure time so the caller can
// clamp and resubmit.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Place persists the order, decrements stock for every line and clears the
	// cart, all inside one transaction. On any failure nothing is committed.
	Place(ctx context.Context, order *domain.Order, cartID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
	// Cancel flips a pending order to cancelled and restores exactly the
	// ordered quantity of every line, inside one transaction.
	Cancel(ctx context.Context, order *domain.Order) error
}

type orderRepository struct {
	db        *sql.DB
	inventory InventoryRepository
	carts     CartRepository
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB, inventory InventoryRepository, carts CartRepository) OrderRepository {
	return &orderRepository{db: db, inventory: inventory, carts: carts}
}

const orderColumns = `id, order_number, customer_id, status, payment_status, payment_method,
		subtotal, tax, shipping, total,
		shipping_street, shipping_city, shipping_state, shipping_zip_code, shipping_country,
		billing_street, billing_city, billing_state, billing_zip_code, billing_country,
		notes, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Total,
		&order.ShippingAddress.Street,
		&order.ShippingAddress.City,
		&order.ShippingAddress.State,
		&order.ShippingAddress.ZipCode,
		&order.ShippingAddress.Country,
		&order.BillingAddress.Street,
		&order.BillingAddress.City,
		&order.BillingAddress.State,
		&order.BillingAddress.ZipCode,
		&order.BillingAddress.Country,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Place executes the whole placement sequence atomically: the conditional
// stock decrements are the authoritative availability check, so two orders
// competing for the last unit resolve to exactly one winner.
func (r *orderRepository) Place(ctx context.Context, order *domain.Order, cartID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		if err := r.inventory.Decrement(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				var available int
				if scanErr := tx.QueryRowContext(ctx,
					`SELECT stock_quantity FROM products WHERE id = $1`,
					item.ProductID,
				).Scan(&available); scanErr != nil {
					available = 0
				}
				return &InsufficientStockError{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Available:   available,
					Requested:   item.Quantity,
				}
			}
			return err
		}
	}

	insertOrder := fmt.Sprintf(`
		INSERT INTO orders (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`, orderColumns)

	_, err = tx.ExecContext(
		ctx,
		insertOrder,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.Status,
		order.PaymentStatus,
		order.PaymentMethod,
		order.Subtotal,
		order.Tax,
		order.Shipping,
		order.Total,
		order.ShippingAddress.Street,
		order.ShippingAddress.City,
		order.ShippingAddress.State,
		order.ShippingAddress.ZipCode,
		order.ShippingAddress.Country,
		order.BillingAddress.Street,
		order.BillingAddress.City,
		order.BillingAddress.State,
		order.BillingAddress.ZipCode,
		order.BillingAddress.Country,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	insertItem := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, line_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, item := range order.Items {
		_, err = tx.ExecContext(
			ctx,
			insertItem,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := r.carts.ClearItems(ctx, tx, cartID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order placement: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its items using parameterized queries
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) listItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, line_total, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// ListByCustomer retrieves a customer's orders with pagination, newest first
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	countQuery := `SELECT COUNT(*) FROM orders WHERE customer_id = $1`
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, customerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, customerID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus sets the fulfillment status using parameterized queries
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// UpdatePaymentStatus records the payment state reported by the payment collaborator
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	query := `
		UPDATE orders
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Cancel marks a pending order cancelled and restores stock for each line. The
// status guard lives in the WHERE clause, so a concurrent status change makes
// the update a no-op and the whole transaction rolls back.
func (r *orderRepository) Cancel(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, order.ID, domain.OrderStatusCancelled, domain.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotCancellable
	}

	for _, item := range order.Items {
		if err := r.inventory.Increment(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order cancellation: %w", err)
	}

	return nil
}
