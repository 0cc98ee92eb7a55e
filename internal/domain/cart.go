package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the server-persisted purchase intent for one customer. A customer has
// at most one cart; the row is created lazily and kept even when emptied.
type Cart struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CartItem is one product line within a cart. At most one line exists per
// (cart, product) pair; adding the same product again merges quantities.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Product is populated on reads that join product data; never persisted
	// through this struct.
	Product *Product `json:"product,omitempty" db:"-"`
}

// ClientCartItem is a line from a client-local (pre-authentication) cart. It is
// pure input: nothing about it is trusted until reconciled against stock.
type ClientCartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
