package transport

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// respondWithServiceError translates the core's error kinds into transport
// responses. Ownership failures arrive as not-found from the services, so no
// special case exists (or leaks) for them here.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var stockErr *repository.InsufficientStockError
	if errors.As(err, &stockErr) {
		middleware.RespondWithErrorDetails(w, http.StatusConflict, stockErr.Error(), map[string]interface{}{
			"product_id":      stockErr.ProductID.String(),
			"product_name":    stockErr.ProductName,
			"available_stock": stockErr.Available,
			"requested":       stockErr.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusConflict, "insufficient stock")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, repository.ErrCartItemNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "cart item not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrEmptyCart):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "cart is empty")
	case errors.Is(err, service.ErrInvalidTransition):
		middleware.RespondWithError(w, http.StatusConflict, "status transition not allowed")
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "category with this name already exists")
	default:
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
