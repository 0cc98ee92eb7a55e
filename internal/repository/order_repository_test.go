package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

func buildTestOrder(customerID uuid.UUID, lines map[*domain.Product]int) *domain.Order {
	now := time.Now()
	address := domain.Address{
		Street:  "1 Via Roma",
		City:    "Naples",
		State:   "NA",
		ZipCode: "80100",
		Country: "IT",
	}

	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-TEST-" + uuid.New().String(),
		CustomerID:      customerID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: address,
		BillingAddress:  address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for product, quantity := range lines {
		lineTotal := product.Price * float64(quantity)
		order.Subtotal += lineTotal
		order.Items = append(order.Items, &domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			UnitPrice:   product.Price,
			LineTotal:   lineTotal,
			CreatedAt:   now,
		})
	}
	order.Tax = order.Subtotal * 0.08
	order.Total = order.Subtotal + order.Tax

	return order
}

func newTestOrderRepository() (OrderRepository, CartRepository, InventoryRepository) {
	inventory := NewInventoryRepository(testDB)
	carts := NewCartRepository(testDB)
	return NewOrderRepository(testDB, inventory, carts), carts, inventory
}

func TestPlaceOrderPersistsDecrementsAndClearsCart(t *testing.T) {
	orders, carts, inventory := newTestOrderRepository()
	ctx := context.Background()

	product := createTestProduct(t, 100.00, 5)
	customerID := uuid.New()

	cart, err := carts.GetOrCreate(ctx, customerID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	now := time.Now()
	if err := carts.UpsertItem(ctx, &domain.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  3,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("UpsertItem failed: %v", err)
	}

	order := buildTestOrder(customerID, map[*domain.Product]int{product: 3})
	if err := orders.Place(ctx, order, cart.ID); err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	found, err := orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.OrderNumber != order.OrderNumber {
		t.Errorf("Expected order number %s, got %s", order.OrderNumber, found.OrderNumber)
	}
	if found.Status != domain.OrderStatusPending {
		t.Errorf("Expected pending status, got %s", found.Status)
	}
	if len(found.Items) != 1 {
		t.Fatalf("Expected 1 order item, got %d", len(found.Items))
	}
	if found.Items[0].ProductName != product.Name || found.Items[0].Quantity != 3 {
		t.Errorf("Unexpected frozen line: %+v", found.Items[0])
	}

	_, stock, err := inventory.CheckAvailability(ctx, product.ID, 0)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if stock != 2 {
		t.Errorf("Expected stock 2 after placement, got %d", stock)
	}

	items, err := carts.ListItems(ctx, cart.ID)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected cart to be cleared, got %d lines", len(items))
	}
}

func TestPlaceOrderRollsBackOnInsufficientStock(t *testing.T) {
	orders, carts, inventory := newTestOrderRepository()
	ctx := context.Background()

	plentiful := createTestProduct(t, 10.00, 10)
	scarce := createTestProduct(t, 25.00, 1)
	customerID := uuid.New()

	cart, err := carts.GetOrCreate(ctx, customerID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	now := time.Now()
	for product, quantity := range map[*domain.Product]int{plentiful: 2, scarce: 1} {
		if err := carts.UpsertItem(ctx, &domain.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			t.Fatalf("UpsertItem failed: %v", err)
		}
	}

	order := buildTestOrder(customerID, map[*domain.Product]int{plentiful: 2, scarce: 2})
	err = orders.Place(ctx, order, cart.ID)

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != scarce.ID || stockErr.Available != 1 || stockErr.Requested != 2 {
		t.Errorf("Unexpected error details: %+v", stockErr)
	}

	// Nothing from the failed placement may stick.
	if _, err := orders.FindByID(ctx, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Expected no order row after rollback, got %v", err)
	}
	_, stock, err := inventory.CheckAvailability(ctx, plentiful.ID, 0)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if stock != 10 {
		t.Errorf("Expected stock 10 restored by rollback, got %d", stock)
	}
	items, err := carts.ListItems(ctx, cart.ID)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected cart to keep both lines, got %d", len(items))
	}
}

func TestCancelRestoresStockOnlyWhilePending(t *testing.T) {
	orders, _, inventory := newTestOrderRepository()
	ctx := context.Background()

	product := createTestProduct(t, 50.00, 5)
	customerID := uuid.New()

	order := buildTestOrder(customerID, map[*domain.Product]int{product: 3})
	if err := orders.Place(ctx, order, uuid.New()); err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	if err := orders.Cancel(ctx, order); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	found, err := orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Status != domain.OrderStatusCancelled {
		t.Errorf("Expected cancelled status, got %s", found.Status)
	}

	_, stock, err := inventory.CheckAvailability(ctx, product.ID, 0)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if stock != 5 {
		t.Errorf("Expected stock restored to 5, got %d", stock)
	}

	// A second cancellation finds no pending row and must not restock again.
	if err := orders.Cancel(ctx, order); !errors.Is(err, ErrOrderNotCancellable) {
		t.Errorf("Expected ErrOrderNotCancellable, got %v", err)
	}
	_, stock, _ = inventory.CheckAvailability(ctx, product.ID, 0)
	if stock != 5 {
		t.Errorf("Expected stock to stay at 5, got %d", stock)
	}
}

func TestOrderStatusUpdatesPersist(t *testing.T) {
	orders, _, _ := newTestOrderRepository()
	ctx := context.Background()

	product := createTestProduct(t, 50.00, 5)
	customerID := uuid.New()

	order := buildTestOrder(customerID, map[*domain.Product]int{product: 1})
	if err := orders.Place(ctx, order, uuid.New()); err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	if err := orders.UpdateStatus(ctx, order.ID, domain.OrderStatusProcessing); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if err := orders.UpdatePaymentStatus(ctx, order.ID, domain.PaymentStatusPaid); err != nil {
		t.Fatalf("UpdatePaymentStatus failed: %v", err)
	}

	found, err := orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Status != domain.OrderStatusProcessing {
		t.Errorf("Expected processing, got %s", found.Status)
	}
	if found.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("Expected paid, got %s", found.PaymentStatus)
	}

	if err := orders.UpdateStatus(ctx, uuid.New(), domain.OrderStatusProcessing); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound for unknown order, got %v", err)
	}
}

func TestListByCustomerPaginates(t *testing.T) {
	orders, _, _ := newTestOrderRepository()
	ctx := context.Background()

	customerID := uuid.New()
	for i := 0; i < 3; i++ {
		product := createTestProduct(t, 10.00, 5)
		order := buildTestOrder(customerID, map[*domain.Product]int{product: 1})
		if err := orders.Place(ctx, order, uuid.New()); err != nil {
			t.Fatalf("Place failed: %v", err)
		}
	}

	page, total, err := orders.ListByCustomer(ctx, customerID, 1, 2)
	if err != nil {
		t.Fatalf("ListByCustomer failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if len(page) != 2 {
		t.Errorf("Expected 2 orders on the first page, got %d", len(page))
	}

	second, _, err := orders.ListByCustomer(ctx, customerID, 2, 2)
	if err != nil {
		t.Fatalf("ListByCustomer failed: %v", err)
	}
	if len(second) != 1 {
		t.Errorf("Expected 1 order on the second page, got %d", len(second))
	}

	// Another customer's history stays invisible.
	foreign, total, err := orders.ListByCustomer(ctx, uuid.New(), 1, 10)
	if err != nil {
		t.Fatalf("ListByCustomer failed: %v", err)
	}
	if total != 0 || len(foreign) != 0 {
		t.Errorf("Expected no orders for a fresh customer, got %d", len(foreign))
	}
}
