package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/service"
	"tuitionpay/backend/services/student-portal/internal/store"
)

// SessionHandlers serves login state.
type SessionHandlers struct {
	svc    *service.PortalService
	logger *zap.Logger
}

// NewSessionHandlers returns handler struct.
func NewSessionHandlers(svc *service.PortalService, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{svc: svc, logger: logger}
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	IsAdmin       bool         `json:"is_admin"`
}

func newSessionResponse(session *models.Session) sessionResponse {
	if session == nil {
		return sessionResponse{}
	}
	user := session.User
	return sessionResponse{Authenticated: true, User: &user, IsAdmin: session.IsAdmin()}
}

// Get handles GET /api/session.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.svc.Store().Session()
	if !ok {
		writeJSON(w, http.StatusOK, newSessionResponse(nil))
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(&session))
}

// Login handles POST /api/session/login.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFailure(w, h.logger, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// Register handles POST /api/session/register.
func (h *SessionHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeFailure(w, h.logger, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

// Logout handles POST /api/session/logout. Local state is gone even when the API
// could not be told, so that case still answers 200 with a warning.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context())
	resp := map[string]string{"status": "logged out"}
	if err != nil {
		var warning string
		if errors.Is(err, store.ErrConnection) {
			warning = "billing api unavailable, session cleared locally"
		} else {
			warning = "billing api refused logout, session cleared locally"
		}
		h.logger.Warn("logout incomplete", zap.Error(err))
		resp["warning"] = warning
	}
	writeJSON(w, http.StatusOK, resp)
}
