package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// CartService defines the interface for cart business logic. Every operation is
// scoped to one authenticated customer; ownership is re-verified before any
// mutation so one customer can never touch another's cart.
type CartService interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*domain.Cart, []*domain.CartItem, error)
	AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error
	Reconcile(ctx context.Context, customerID uuid.UUID, clientItems []domain.ClientCartItem) (*domain.Cart, []*domain.CartItem, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the customer's cart and its items, creating an empty cart on
// first use.
func (s *cartService) GetCart(ctx context.Context, customerID uuid.UUID) (*domain.Cart, []*domain.CartItem, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}

	return cart, items, nil
}

// AddItem merges quantity into the existing line for the product, or creates a
// new line. The stock check here is advisory; the authoritative check happens
// at order placement.
func (s *cartService) AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	target := quantity
	existing, err := s.cartRepo.FindItemByProduct(ctx, cart.ID, productID)
	switch {
	case err == nil:
		target = existing.Quantity + quantity
	case errors.Is(err, repository.ErrCartItemNotFound):
		// first line for this product
	default:
		return nil, err
	}

	if target > product.StockQuantity {
		return nil, &repository.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.StockQuantity,
			Requested:   target,
		}
	}

	now := time.Now()
	item := &domain.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  target,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
	}

	if err := s.cartRepo.UpsertItem(ctx, item); err != nil {
		return nil, err
	}

	item.Product = product
	return item, nil
}

// UpdateItemQuantity sets a line to the given quantity. A quantity of zero or
// less removes the line and returns nil. The item must belong to the
// requesting customer's cart; a foreign item is reported as not found.
func (s *cartService) UpdateItemQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*domain.CartItem, error) {
	item, err := s.ownedItem(ctx, customerID, itemID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.cartRepo.DeleteItem(ctx, item.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	product, err := s.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if quantity > product.StockQuantity {
		return nil, &repository.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.StockQuantity,
			Requested:   quantity,
		}
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.Product = product
	return item, nil
}

// RemoveItem deletes a line from the customer's cart
func (s *cartService) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, customerID, itemID)
	if err != nil {
		return err
	}

	return s.cartRepo.DeleteItem(ctx, item.ID)
}

// Reconcile folds a client-local cart into the server cart, once, at sign-in.
// For each client line the merged quantity is max(server, client) clamped to
// current stock: max keeps the operation idempotent (sync twice, same result)
// and avoids double-counting a product the user had in both places. Unknown
// products are skipped rather than failing the whole merge, and server lines
// the client never mentions are left untouched.
func (s *cartService) Reconcile(ctx context.Context, customerID uuid.UUID, clientItems []domain.ClientCartItem) (*domain.Cart, []*domain.CartItem, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cart: %w", err)
	}

	for _, clientItem := range clientItems {
		if clientItem.Quantity <= 0 {
			continue
		}

		product, err := s.productRepo.FindByID(ctx, clientItem.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			return nil, nil, err
		}

		existing, err := s.cartRepo.FindItemByProduct(ctx, cart.ID, clientItem.ProductID)
		switch {
		case errors.Is(err, repository.ErrCartItemNotFound):
			merged := min(clientItem.Quantity, product.StockQuantity)
			if merged <= 0 {
				continue
			}
			now := time.Now()
			if err := s.cartRepo.UpsertItem(ctx, &domain.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: clientItem.ProductID,
				Quantity:  merged,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return nil, nil, err
			}
		case err == nil:
			merged := min(max(existing.Quantity, clientItem.Quantity), product.StockQuantity)
			// A stock of zero would zero out the line; the merge never
			// removes server state, so leave the line as it is.
			if merged <= 0 || merged == existing.Quantity {
				continue
			}
			if err := s.cartRepo.UpdateItemQuantity(ctx, existing.ID, merged); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, err
		}
	}

	items, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}

	return cart, items, nil
}

func (s *cartService) ownedItem(ctx context.Context, customerID, itemID uuid.UUID) (*domain.CartItem, error) {
	cart, err := s.cartRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, repository.ErrCartItemNotFound
		}
		return nil, err
	}

	item, err := s.cartRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// Ownership failures look exactly like not-found so the existence of
	// other customers' items never leaks.
	if item.CartID != cart.ID {
		return nil, repository.ErrCartItemNotFound
	}

	return item, nil
}
