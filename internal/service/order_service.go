package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to order")
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

// CheckoutPolicy is the merchant's pricing policy, supplied from configuration.
type CheckoutPolicy struct {
	TaxRate               float64
	FreeShippingThreshold float64
	ShippingFee           float64
}

// PlaceOrderInput carries everything the customer supplies at checkout. The
// billing address defaults to the shipping address when absent.
type PlaceOrderInput struct {
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	PaymentMethod   domain.PaymentMethod
	Notes           string
}

// OrderService defines the interface for order business logic
type OrderService interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID, input PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) (*domain.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	policy    CheckoutPolicy
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, policy CheckoutPolicy) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		policy:    policy,
	}
}

// PlaceOrder converts the customer's cart into an immutable order. Pricing is
// frozen per line from the product's effective price at this moment; the
// persistence step decrements stock and clears the cart in one transaction, so
// a failure anywhere leaves cart and inventory untouched.
func (s *orderService) PlaceOrder(ctx context.Context, customerID uuid.UUID, input PlaceOrderInput) (*domain.Order, error) {
	cart, err := s.cartRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	cartItems, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	now := time.Now()
	orderID := uuid.New()

	var subtotal float64
	orderItems := make([]*domain.OrderItem, 0, len(cartItems))
	for _, item := range cartItems {
		// Advisory re-check with a useful error message; the conditional
		// decrement inside the transaction is the authoritative guard.
		if item.Quantity > item.Product.StockQuantity {
			return nil, &repository.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				Available:   item.Product.StockQuantity,
				Requested:   item.Quantity,
			}
		}

		unitPrice := item.Product.EffectivePrice()
		lineTotal := roundCents(unitPrice * float64(item.Quantity))
		subtotal += lineTotal

		orderItems = append(orderItems, &domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
			CreatedAt:   now,
		})
	}

	subtotal = roundCents(subtotal)
	tax := roundCents(subtotal * s.policy.TaxRate)
	shipping := s.policy.ShippingFee
	if subtotal > s.policy.FreeShippingThreshold {
		shipping = 0
	}
	total := roundCents(subtotal + tax + shipping)

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	order := &domain.Order{
		ID:              orderID,
		OrderNumber:     newOrderNumber(now),
		CustomerID:      customerID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   input.PaymentMethod,
		Subtotal:        subtotal,
		Tax:             tax,
		Shipping:        shipping,
		Total:           total,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
		Notes:           input.Notes,
		Items:           orderItems,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orderRepo.Place(ctx, order, cart.ID); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrder retrieves an order owned by the customer
func (s *orderService) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != customerID {
		return nil, repository.ErrOrderNotFound
	}

	return order, nil
}

// ListOrders retrieves the customer's orders with pagination
func (s *orderService) ListOrders(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orderRepo.ListByCustomer(ctx, customerID, page, pageSize)
}

// CancelOrder cancels a pending order and restores exactly the quantities the
// order consumed at placement, whatever happened to stock in between.
func (s *orderService) CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPending {
		return nil, ErrInvalidTransition
	}

	if err := s.orderRepo.Cancel(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderNotCancellable) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	order.Status = domain.OrderStatusCancelled
	return order, nil
}

// UpdateStatus advances an order along the fulfillment path. Cancellation is
// not reachable here: it must go through CancelOrder so stock restoration is
// never skipped.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status == domain.OrderStatusCancelled || !order.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	order.Status = status
	return order, nil
}

// UpdatePaymentStatus records the payment state reported by the external
// payment collaborator. It never gates fulfillment transitions.
func (s *orderService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.PaymentStatus.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	if err := s.orderRepo.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	order.PaymentStatus = status
	return order, nil
}

// newOrderNumber builds a human-readable unique order number from a
// high-resolution timestamp plus a random suffix.
func newOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", t.UTC().Format("20060102150405.000000"), suffix)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
