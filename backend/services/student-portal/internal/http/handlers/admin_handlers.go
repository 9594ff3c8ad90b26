package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/service"
)

// AdminHandlers proxies the superadmin listings.
type AdminHandlers struct {
	svc    *service.PortalService
	logger *zap.Logger
}

// NewAdminHandlers returns handler struct.
func NewAdminHandlers(svc *service.PortalService, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{svc: svc, logger: logger}
}

// Debts handles GET /api/admin/debts.
func (h *AdminHandlers) Debts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListDebts(r.Context())
	if err != nil {
		writeFailure(w, h.logger, "list debts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Billings handles GET /api/admin/billings?search=&debt_id=&user_id=&status=.
func (h *AdminHandlers) Billings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.ListBillings(r.Context(), clients.BillingFilter{
		Search: q.Get("search"),
		DebtID: q.Get("debt_id"),
		UserID: q.Get("user_id"),
		Status: q.Get("status"),
	})
	if err != nil {
		writeFailure(w, h.logger, "list billings", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Users handles GET /api/admin/users.
func (h *AdminHandlers) Users(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeFailure(w, h.logger, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
