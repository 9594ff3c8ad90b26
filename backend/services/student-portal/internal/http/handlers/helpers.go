package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/service"
	"tuitionpay/backend/services/student-portal/internal/store"
)

const maxBodyBytes = 64 * 1024

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeFailure maps portal errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var apiErr *clients.APIError
	switch {
	case errors.Is(err, store.ErrNoSession):
		writeError(w, http.StatusUnauthorized, "login required")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "superadmin role required")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "email and password are required")
	case errors.Is(err, service.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "name is required")
	case errors.Is(err, store.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, store.ErrMissingBillingID):
		writeError(w, http.StatusBadRequest, "billing_id is required")
	case errors.Is(err, clients.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBillingNotFound):
		writeError(w, http.StatusNotFound, "billing not found")
	case errors.Is(err, store.ErrDuplicateItem):
		writeError(w, http.StatusConflict, "billing already in cart")
	case errors.Is(err, store.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "billing already paid")
	case errors.Is(err, store.ErrConnection):
		logger.Warn(op+" failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "billing api unavailable")
	case errors.Is(err, store.ErrIncompleteCheckout), errors.Is(err, clients.ErrIncompleteResponse):
		logger.Warn(op+" failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "incomplete response from billing api")
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(apiErr.StatusCode)
		}
		writeError(w, status, message)
	default:
		logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
