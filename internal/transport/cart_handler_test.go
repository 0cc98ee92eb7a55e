package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

const testJWTSecret = "test-secret"

// Mock repositories for testing
type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) List(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	products := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	return products, len(products), nil
}

func (m *mockProductRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return nil, 0, nil
}

type mockCartRepository struct {
	carts    map[uuid.UUID]*domain.Cart
	items    map[uuid.UUID]*domain.CartItem
	products *mockProductRepository
}

func newMockCartRepository(products *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{
		carts:    make(map[uuid.UUID]*domain.Cart),
		items:    make(map[uuid.UUID]*domain.CartItem),
		products: products,
	}
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	if cart, exists := m.carts[customerID]; exists {
		return cart, nil
	}
	now := time.Now()
	cart := &domain.Cart{ID: uuid.New(), CustomerID: customerID, CreatedAt: now, UpdatedAt: now}
	m.carts[customerID] = cart
	return cart, nil
}

func (m *mockCartRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	cart, exists := m.carts[customerID]
	if !exists {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (m *mockCartRepository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	item, exists := m.items[itemID]
	if !exists {
		return nil, repository.ErrCartItemNotFound
	}
	return item, nil
}

func (m *mockCartRepository) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	for _, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) UpsertItem(ctx context.Context, item *domain.CartItem) error {
	for _, existing := range m.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			existing.Quantity = item.Quantity
			existing.UpdatedAt = item.UpdatedAt
			return nil
		}
	}
	copied := *item
	copied.Product = nil
	m.items[item.ID] = &copied
	return nil
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	item, exists := m.items[itemID]
	if !exists {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *mockCartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if _, exists := m.items[itemID]; !exists {
		return repository.ErrCartItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	items := make([]*domain.CartItem, 0)
	for _, item := range m.items {
		if item.CartID != cartID {
			continue
		}
		copied := *item
		if product, exists := m.products.products[item.ProductID]; exists {
			copied.Product = product
		}
		items = append(items, &copied)
	}
	return items, nil
}

func (m *mockCartRepository) ClearItems(ctx context.Context, q repository.Querier, cartID uuid.UUID) error {
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func seedMockProduct(products *mockProductRepository, price float64, stock int) *domain.Product {
	now := time.Now()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          "Test Product " + uuid.New().String()[:8],
		Price:         price,
		CategoryID:    uuid.New(),
		StockQuantity: stock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	products.products[product.ID] = product
	return product
}

func bearerToken(t *testing.T, customerID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"customer_id": customerID.String(),
		"role":        role,
		"exp":         time.Now().Add(1 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return "Bearer " + signed
}

type cartTestEnv struct {
	router   chi.Router
	products *mockProductRepository
	carts    *mockCartRepository
	cartSvc  service.CartService
}

func newCartTestEnv() *cartTestEnv {
	logger := zap.NewNop()
	products := newMockProductRepository()
	carts := newMockCartRepository(products)
	cartSvc := service.NewCartService(carts, products)

	router := chi.NewRouter()
	auth := middleware.AuthMiddleware(testJWTSecret, logger)
	NewCartHandler(cartSvc, logger).RegisterRoutes(router, auth)

	return &cartTestEnv{router: router, products: products, carts: carts, cartSvc: cartSvc}
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCartEndpointsRequireAuthentication(t *testing.T) {
	env := newCartTestEnv()

	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/cart"},
		{"POST", "/api/cart/items"},
		{"PUT", "/api/cart/items/" + uuid.New().String()},
		{"DELETE", "/api/cart/items/" + uuid.New().String()},
		{"POST", "/api/cart/sync"},
	}

	for _, route := range routes {
		w := doJSON(t, env.router, route.method, route.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestAddItemCreatesLine(t *testing.T) {
	env := newCartTestEnv()
	product := seedMockProduct(env.products, 12.50, 10)
	token := bearerToken(t, uuid.New(), "customer")

	w := doJSON(t, env.router, "POST", "/api/cart/items", token, AddItemRequest{
		ProductID: product.ID.String(),
		Quantity:  2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp CartItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Quantity != 2 || resp.ProductID != product.ID.String() {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.UnitPrice != 12.50 || resp.LineTotal != 25.00 {
		t.Errorf("Expected unit 12.50 line 25.00, got %.2f/%.2f", resp.UnitPrice, resp.LineTotal)
	}
}

func TestProperty_AddItemInvalidPayloadRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid add-to-cart payloads return validation errors", prop.ForAll(
		func(invalidCase int) bool {
			env := newCartTestEnv()
			product := seedMockProduct(env.products, 5.00, 10)
			token := bearerToken(t, uuid.New(), "customer")

			var payload map[string]any
			switch invalidCase % 4 {
			case 0:
				payload = map[string]any{"quantity": 1} // missing product_id
			case 1:
				payload = map[string]any{"product_id": "not-a-uuid", "quantity": 1}
			case 2:
				payload = map[string]any{"product_id": product.ID.String(), "quantity": 0}
			case 3:
				payload = map[string]any{"product_id": product.ID.String(), "quantity": -2}
			}

			w := doJSON(t, env.router, "POST", "/api/cart/items", token, payload)
			return w.Code == http.StatusBadRequest
		},
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAddItemInsufficientStockReturnsConflict(t *testing.T) {
	env := newCartTestEnv()
	product := seedMockProduct(env.products, 5.00, 2)
	token := bearerToken(t, uuid.New(), "customer")

	w := doJSON(t, env.router, "POST", "/api/cart/items", token, AddItemRequest{
		ProductID: product.ID.String(),
		Quantity:  5,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var resp middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error.Details["available_stock"] != float64(2) {
		t.Errorf("Expected available_stock 2 in details, got %v", resp.Error.Details["available_stock"])
	}
	if resp.Error.Details["requested"] != float64(5) {
		t.Errorf("Expected requested 5 in details, got %v", resp.Error.Details["requested"])
	}
}

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	env := newCartTestEnv()
	product := seedMockProduct(env.products, 5.00, 10)
	customerID := uuid.New()
	token := bearerToken(t, customerID, "customer")

	item, err := env.cartSvc.AddItem(context.Background(), customerID, product.ID, 2)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	zero := 0
	w := doJSON(t, env.router, "PUT", "/api/cart/items/"+item.ID.String(), token, UpdateItemRequest{Quantity: &zero})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	cart := getCart(t, env, token)
	if len(cart.Items) != 0 {
		t.Errorf("Expected empty cart after removal, got %d lines", len(cart.Items))
	}
}

func TestUpdateForeignItemReturnsNotFound(t *testing.T) {
	env := newCartTestEnv()
	product := seedMockProduct(env.products, 5.00, 10)
	owner := uuid.New()

	item, err := env.cartSvc.AddItem(context.Background(), owner, product.ID, 2)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	other := uuid.New()
	if _, _, err := env.cartSvc.GetCart(context.Background(), other); err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}

	five := 5
	w := doJSON(t, env.router, "PUT", "/api/cart/items/"+item.ID.String(), bearerToken(t, other, "customer"), UpdateItemRequest{Quantity: &five})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign item, got %d", w.Code)
	}
}

func getCart(t *testing.T, env *cartTestEnv, token string) CartResponse {
	t.Helper()
	w := doJSON(t, env.router, "GET", "/api/cart", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/cart: expected 200, got %d", w.Code)
	}
	var resp CartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode cart response: %v", err)
	}
	return resp
}

func TestSyncReturnsAuthoritativeCart(t *testing.T) {
	env := newCartTestEnv()
	product := seedMockProduct(env.products, 10.00, 20)
	customerID := uuid.New()
	token := bearerToken(t, customerID, "customer")

	// Server cart already has 3 of the product.
	if _, err := env.cartSvc.AddItem(context.Background(), customerID, product.ID, 3); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	w := doJSON(t, env.router, "POST", "/api/cart/sync", token, map[string]any{
		"items": []map[string]any{
			{"product_id": product.ID.String(), "quantity": 1},
			{"product_id": "mangled", "quantity": 4},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp CartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(resp.Items))
	}
	// Server quantity wins over the smaller client quantity.
	if resp.Items[0].Quantity != 3 {
		t.Errorf("Expected quantity 3, got %d", resp.Items[0].Quantity)
	}
	if resp.Subtotal != 30.00 {
		t.Errorf("Expected subtotal 30.00, got %.2f", resp.Subtotal)
	}
}
