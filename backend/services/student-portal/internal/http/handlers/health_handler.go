package handlers

import "net/http"

// NewHealthHandler returns GET /health handler.
func NewHealthHandler(loading func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if loading != nil && loading() {
			status = "loading"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}
