// Package clienttest runs an in-process billing API for tests.
package clienttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tuitionpay/backend/services/student-portal/internal/models"
)

type account struct {
	user     models.User
	password string
	token    string
}

// FakeAPI answers the student and superadmin endpoints from memory.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts []account
	billings []models.Billing
	debts    []models.DebtCategory
	statuses map[string]string
	orders   int

	checkoutCalls []string
	logoutCalls   int
}

// NewFakeAPI starts the server and closes it when t ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{statuses: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", f.login)
	mux.HandleFunc("POST /register", f.register)
	mux.HandleFunc("POST /v1/logout", f.authed(f.logout))
	mux.HandleFunc("GET /v1/billings/user/{id}", f.authed(f.userBillings))
	mux.HandleFunc("POST /v1/checkout", f.authed(f.checkout))
	mux.HandleFunc("GET /v1/checkout/status/{id}", f.authed(f.status))
	mux.HandleFunc("GET /v1/debts", f.admin(f.listDebts))
	mux.HandleFunc("GET /v1/billings", f.admin(f.listBillings))
	mux.HandleFunc("GET /v1/superadmin/role/user", f.admin(f.listUsers))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base url of the server.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// AddUser registers an account that can log in.
func (f *FakeAPI) AddUser(user models.User, password, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, account{user: user, password: password, token: token})
}

// AddBilling adds a billing to the user it names.
func (f *FakeAPI) AddBilling(b models.Billing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.billings = append(f.billings, b)
}

// AddDebt adds a payment category.
func (f *FakeAPI) AddDebt(d models.DebtCategory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debts = append(f.debts, d)
}

// SetStatus sets the gateway sub-status reported for a billing.
func (f *FakeAPI) SetStatus(billingID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[billingID] = status
}

// Checkouts returns the billing ids checked out so far.
func (f *FakeAPI) Checkouts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checkoutCalls...)
}

// Logouts returns how many times logout was called.
func (f *FakeAPI) Logouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": status < 300, "data": data})
}

func refuse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": message})
}

func (f *FakeAPI) byToken(r *http.Request) (account, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.token == token {
			return a, true
		}
	}
	return account{}, false
}

type authedHandler func(w http.ResponseWriter, r *http.Request, a account)

func (f *FakeAPI) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := f.byToken(r)
		if !ok {
			refuse(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next(w, r, a)
	}
}

func (f *FakeAPI) admin(next authedHandler) http.HandlerFunc {
	return f.authed(func(w http.ResponseWriter, r *http.Request, a account) {
		if a.user.Role != models.RoleSuperadmin {
			refuse(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r, a)
	})
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	email, password := r.FormValue("email"), r.FormValue("password")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.user.Email == email && a.password == password {
			respond(w, http.StatusOK, map[string]interface{}{"user": a.user, "token": a.token})
			return
		}
	}
	refuse(w, http.StatusUnauthorized, "Email atau password salah")
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := r.FormValue("email")
	for _, a := range f.accounts {
		if a.user.Email == email {
			refuse(w, http.StatusUnprocessableEntity, "The email has already been taken.")
			return
		}
	}
	id := len(f.accounts) + 100
	a := account{
		user:     models.User{ID: models.ID(fmt.Sprint(id)), Name: r.FormValue("name"), Email: email, Role: models.RoleStudent},
		password: r.FormValue("password"),
		token:    fmt.Sprintf("%d|registered", id),
	}
	f.accounts = append(f.accounts, a)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": true, "user": a.user, "token": a.token})
}

func (f *FakeAPI) logout(w http.ResponseWriter, _ *http.Request, _ account) {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	respond(w, http.StatusOK, nil)
}

func (f *FakeAPI) userBillings(w http.ResponseWriter, r *http.Request, a account) {
	id := r.PathValue("id")
	if id != a.user.ID.String() && a.user.Role != models.RoleSuperadmin {
		refuse(w, http.StatusForbidden, "Forbidden")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Billing{}
	for _, b := range f.billings {
		if b.UserID.String() == id {
			out = append(out, b)
		}
	}
	respond(w, http.StatusOK, out)
}

func (f *FakeAPI) checkout(w http.ResponseWriter, r *http.Request, _ account) {
	billingID := r.FormValue("billing_id")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkoutCalls = append(f.checkoutCalls, billingID)
	for _, b := range f.billings {
		if b.ID.String() != billingID {
			continue
		}
		if b.IsPaid() {
			refuse(w, http.StatusUnprocessableEntity, "Tagihan sudah dibayar")
			return
		}
		f.orders++
		respond(w, http.StatusOK, map[string]interface{}{
			"redirect_url": "https://app.sandbox.midtrans.com/snap/v2/vtweb/" + billingID,
			"snap_token":   "snap-" + billingID,
			"order_id":     fmt.Sprintf("ORDER-%s-%d", billingID, f.orders),
		})
		return
	}
	refuse(w, http.StatusNotFound, "Tagihan tidak ditemukan")
}

func (f *FakeAPI) status(w http.ResponseWriter, r *http.Request, _ account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[r.PathValue("id")]
	if !ok {
		status = "pending"
	}
	respond(w, http.StatusOK, map[string]string{"transaction_status": status})
}

func (f *FakeAPI) listDebts(w http.ResponseWriter, _ *http.Request, _ account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	respond(w, http.StatusOK, map[string]interface{}{"debts": f.debts})
}

func (f *FakeAPI) listBillings(w http.ResponseWriter, _ *http.Request, _ account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	respond(w, http.StatusOK, f.billings)
}

func (f *FakeAPI) listUsers(w http.ResponseWriter, _ *http.Request, _ account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]models.User, 0, len(f.accounts))
	for _, a := range f.accounts {
		users = append(users, a.user)
	}
	respond(w, http.StatusOK, users)
}
