package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/service"
)

// PaymentHandlers serves checkout and payment status.
type PaymentHandlers struct {
	svc    *service.PortalService
	logger *zap.Logger
}

// NewPaymentHandlers returns handler struct.
func NewPaymentHandlers(svc *service.PortalService, logger *zap.Logger) *PaymentHandlers {
	return &PaymentHandlers{svc: svc, logger: logger}
}

// Checkout handles POST /api/checkout. An empty body or empty billing_ids pays from the cart.
func (h *PaymentHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BillingIDs []string `json:"billing_ids"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Checkout(r.Context(), req.BillingIDs)
	if err != nil {
		writeFailure(w, h.logger, "checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		RedirectURL  string             `json:"redirect_url"`
		GatewayToken string             `json:"gateway_token"`
		OrderID      string             `json:"order_id"`
		Transaction  models.Transaction `json:"transaction"`
	}{res.RedirectURL, res.GatewayToken, res.OrderID, res.Transaction})
}

// Transactions handles GET /api/transactions.
func (h *PaymentHandlers) Transactions(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.svc.Store().Session(); !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Store().Transactions())
}

// Status handles POST /api/transactions/{billingID}/status.
func (h *PaymentHandlers) Status(w http.ResponseWriter, r *http.Request) {
	billingID := r.PathValue("billingID")
	paid, err := h.svc.CheckPaymentStatus(r.Context(), billingID)
	if err != nil {
		writeFailure(w, h.logger, "payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"billing_id": billingID, "paid": paid})
}
