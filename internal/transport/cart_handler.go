package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest represents the add-to-cart request payload
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest represents the quantity update payload. A quantity of zero
// removes the line, so the field is a pointer to tell zero from absent.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// SyncItem is one line of a client-local cart submitted for reconciliation.
// Deliberately unvalidated: reconciliation skips bad lines instead of failing
// the whole merge.
type SyncItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SyncRequest represents the cart reconciliation payload
type SyncRequest struct {
	Items []SyncItem `json:"items"`
}

// CartItemResponse represents one cart line with resolved product data
type CartItemResponse struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
	LineTotal     float64 `json:"line_total"`
	StockQuantity int     `json:"stock_quantity"`
}

// CartResponse represents the full authoritative cart
type CartResponse struct {
	ID        string             `json:"id"`
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  float64            `json:"subtotal"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes; every route requires authentication
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Post("/sync", h.Sync)
	})
}

// GetCart returns the customer's current cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, items, err := h.cartService.GetCart(r.Context(), customerID)
	if err != nil {
		h.logger.Error("Failed to get cart", zap.Error(err))
		respondWithServiceError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(cart, items))
}

// AddItem adds a product to the cart, merging with an existing line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add item validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	item, err := h.cartService.AddItem(r.Context(), customerID, productID, req.Quantity)
	if err != nil {
		h.logger.Debug("Add item failed", zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.String("product_id", productID.String()),
		)
		respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Cart item added",
		zap.String("customer_id", customerID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", item.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newCartItemResponse(item))
}

// UpdateItem sets a cart line's quantity; zero removes the line
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item ID")
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update item validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.cartService.UpdateItemQuantity(r.Context(), customerID, itemID, *req.Quantity)
	if err != nil {
		h.logger.Debug("Update item failed", zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.String("item_id", itemID.String()),
		)
		respondWithServiceError(w, err)
		return
	}

	if item == nil {
		middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "item removed"})
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newCartItemResponse(item))
}

// RemoveItem deletes a cart line
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item ID")
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), customerID, itemID); err != nil {
		h.logger.Debug("Remove item failed", zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.String("item_id", itemID.String()),
		)
		respondWithServiceError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "item removed"})
}

// Sync reconciles a client-local cart into the server cart and returns the
// authoritative result for the client to replace its local state with.
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SyncRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart sync validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	clientItems := make([]domain.ClientCartItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			// Unknown or mangled product references never fail the merge.
			continue
		}
		clientItems = append(clientItems, domain.ClientCartItem{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	cart, items, err := h.cartService.Reconcile(r.Context(), customerID, clientItems)
	if err != nil {
		h.logger.Error("Cart sync failed", zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Cart reconciled",
		zap.String("customer_id", customerID.String()),
		zap.Int("client_items", len(clientItems)),
		zap.Int("cart_items", len(items)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(cart, items))
}

func newCartItemResponse(item *domain.CartItem) CartItemResponse {
	resp := CartItemResponse{
		ID:        item.ID.String(),
		ProductID: item.ProductID.String(),
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		unitPrice := item.Product.EffectivePrice()
		resp.ProductName = item.Product.Name
		resp.UnitPrice = unitPrice
		resp.LineTotal = unitPrice * float64(item.Quantity)
		resp.StockQuantity = item.Product.StockQuantity
	}
	return resp
}

func newCartResponse(cart *domain.Cart, items []*domain.CartItem) CartResponse {
	resp := CartResponse{
		ID:    cart.ID.String(),
		Items: make([]CartItemResponse, 0, len(items)),
	}
	for _, item := range items {
		itemResp := newCartItemResponse(item)
		resp.Items = append(resp.Items, itemResp)
		resp.Subtotal += itemResp.LineTotal
	}
	resp.ItemCount = len(resp.Items)
	return resp
}
