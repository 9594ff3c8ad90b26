package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/service"
)

// CartHandlers serves the student's billings and cart.
type CartHandlers struct {
	svc    *service.PortalService
	logger *zap.Logger
}

// NewCartHandlers returns handler struct.
func NewCartHandlers(svc *service.PortalService, logger *zap.Logger) *CartHandlers {
	return &CartHandlers{svc: svc, logger: logger}
}

type cartResponse struct {
	Items []models.CartItem `json:"items"`
	Total int64             `json:"total"`
}

func (h *CartHandlers) cart() cartResponse {
	st := h.svc.Store()
	return cartResponse{Items: st.Cart(), Total: st.CartTotal()}
}

// Billings handles GET /api/billings.
func (h *CartHandlers) Billings(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Billings(r.Context())
	if err != nil {
		writeFailure(w, h.logger, "list billings", err)
		return
	}
	if list == nil {
		list = []models.Billing{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/cart.
func (h *CartHandlers) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cart())
}

// Add handles POST /api/cart/items.
func (h *CartHandlers) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BillingID string `json:"billing_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.AddToCart(r.Context(), req.BillingID); err != nil {
		writeFailure(w, h.logger, "add to cart", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.cart())
}

// Remove handles DELETE /api/cart/items/{billingID}.
func (h *CartHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	billingID := strings.TrimSpace(r.PathValue("billingID"))
	if !h.svc.RemoveFromCart(r.Context(), billingID) {
		writeError(w, http.StatusNotFound, "billing not in cart")
		return
	}
	writeJSON(w, http.StatusOK, h.cart())
}
