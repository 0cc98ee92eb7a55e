package transport

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddressPayload represents a shipping or billing address
type AddressPayload struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// PlaceOrderRequest represents the checkout payload. Billing address is
// optional and defaults to the shipping address.
type PlaceOrderRequest struct {
	ShippingAddress AddressPayload  `json:"shipping_address" validate:"required"`
	BillingAddress  *AddressPayload `json:"billing_address,omitempty"`
	PaymentMethod   string          `json:"payment_method" validate:"required,oneof=card paypal cash_on_delivery"`
	Notes           string          `json:"notes,omitempty" validate:"max=1000"`
}

// UpdateOrderStatusRequest represents the admin status advance payload.
// Cancellation has its own endpoint because it restores stock.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing shipped delivered"`
}

// UpdatePaymentStatusRequest represents the payment state recorded from the
// payment collaborator
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=paid failed refunded"`
}

// OrderItemResponse represents one frozen order line
type OrderItemResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// OrderResponse represents an order with its frozen totals
type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	PaymentMethod   string              `json:"payment_method"`
	Subtotal        float64             `json:"subtotal"`
	Tax             float64             `json:"tax"`
	Shipping        float64             `json:"shipping"`
	Total           float64             `json:"total"`
	ShippingAddress AddressPayload      `json:"shipping_address"`
	BillingAddress  AddressPayload      `json:"billing_address"`
	Notes           string              `json:"notes,omitempty"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderListResponse represents a paginated order listing
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes. Placement is additionally rate
// limited; status/payment updates require the admin role.
func (h *OrderHandler) RegisterRoutes(
	r chi.Router,
	authMiddleware func(http.Handler) http.Handler,
	adminMiddleware func(http.Handler) http.Handler,
	placeLimiter func(http.Handler) http.Handler,
) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/cancel", h.CancelOrder)

		r.Group(func(r chi.Router) {
			if placeLimiter != nil {
				r.Use(placeLimiter)
			}
			r.Post("/", h.PlaceOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Put("/{orderID}/status", h.UpdateStatus)
			r.Put("/{orderID}/payment-status", h.UpdatePaymentStatus)
		})
	})
}

// PlaceOrder converts the customer's cart into an order
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Place order validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.PlaceOrderInput{
		ShippingAddress: addressFromPayload(req.ShippingAddress),
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		Notes:           req.Notes,
	}
	if req.BillingAddress != nil {
		billing := addressFromPayload(*req.BillingAddress)
		input.BillingAddress = &billing
	}

	order, err := h.orderService.PlaceOrder(r.Context(), customerID, input)
	if err != nil {
		h.logger.Debug("Order placement failed", zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Order placed",
		zap.String("customer_id", customerID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newOrderResponse(order))
}

// GetOrder returns one of the customer's orders
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), customerID, orderID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

// ListOrders returns the customer's orders, newest first
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	orders, total, err := h.orderService.ListOrders(r.Context(), customerID, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		respondWithServiceError(w, err)
		return
	}

	resp := OrderListResponse{
		Orders: make([]OrderResponse, 0, len(orders)),
		Total:  total,
		Page:   page,
	}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, newOrderResponse(order))
	}

	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

// CancelOrder cancels one of the customer's pending orders
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.orderService.CancelOrder(r.Context(), customerID, orderID)
	if err != nil {
		h.logger.Debug("Order cancellation failed", zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.String("order_id", orderID.String()),
		)
		respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Order cancelled",
		zap.String("customer_id", customerID.String()),
		zap.String("order_number", order.OrderNumber),
	)
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

// UpdateStatus advances an order's fulfillment status (admin only)
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

// UpdatePaymentStatus records the payment state (admin only)
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdatePaymentStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdatePaymentStatus(r.Context(), orderID, domain.PaymentStatus(req.PaymentStatus))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Payment status updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_status", string(order.PaymentStatus)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

func addressFromPayload(p AddressPayload) domain.Address {
	return domain.Address{
		Street:  p.Street,
		City:    p.City,
		State:   p.State,
		ZipCode: p.ZipCode,
		Country: p.Country,
	}
}

func payloadFromAddress(a domain.Address) AddressPayload {
	return AddressPayload{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

func newOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:              order.ID.String(),
		OrderNumber:     order.OrderNumber,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   string(order.PaymentMethod),
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		Shipping:        order.Shipping,
		Total:           order.Total,
		ShippingAddress: payloadFromAddress(order.ShippingAddress),
		BillingAddress:  payloadFromAddress(order.BillingAddress),
		Notes:           order.Notes,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return resp
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
