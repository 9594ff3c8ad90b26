package httpserver

import (
	"net/http"

	"tuitionpay/backend/services/student-portal/internal/http/handlers"
	"tuitionpay/backend/services/student-portal/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	SessionHandlers *handlers.SessionHandlers
	CartHandlers    *handlers.CartHandlers
	PaymentHandlers *handlers.PaymentHandlers
	AdminHandlers   *handlers.AdminHandlers
	HealthHandler   http.HandlerFunc
	Loading         func() bool
}

// NewRouter wires HTTP routes. Everything except /health waits for the session to load.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))

	loaded := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, middleware.RequireLoaded(deps.Loading))
	}

	mux.Handle("/api/session", method(http.MethodGet, loaded(deps.SessionHandlers.Get)))
	mux.Handle("/api/session/login", method(http.MethodPost, loaded(deps.SessionHandlers.Login)))
	mux.Handle("/api/session/register", method(http.MethodPost, loaded(deps.SessionHandlers.Register)))
	mux.Handle("/api/session/logout", method(http.MethodPost, loaded(deps.SessionHandlers.Logout)))

	mux.Handle("/api/billings", method(http.MethodGet, loaded(deps.CartHandlers.Billings)))
	mux.Handle("/api/cart", method(http.MethodGet, loaded(deps.CartHandlers.Get)))
	mux.Handle("/api/cart/items", method(http.MethodPost, loaded(deps.CartHandlers.Add)))
	mux.Handle("/api/cart/items/{billingID}", method(http.MethodDelete, loaded(deps.CartHandlers.Remove)))

	mux.Handle("/api/checkout", method(http.MethodPost, loaded(deps.PaymentHandlers.Checkout)))
	mux.Handle("/api/transactions", method(http.MethodGet, loaded(deps.PaymentHandlers.Transactions)))
	mux.Handle("/api/transactions/{billingID}/status", method(http.MethodPost, loaded(deps.PaymentHandlers.Status)))

	mux.Handle("/api/admin/debts", method(http.MethodGet, loaded(deps.AdminHandlers.Debts)))
	mux.Handle("/api/admin/billings", method(http.MethodGet, loaded(deps.AdminHandlers.Billings)))
	mux.Handle("/api/admin/users", method(http.MethodGet, loaded(deps.AdminHandlers.Users)))

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
