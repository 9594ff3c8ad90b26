package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/storage"
)

// PaymentAPI is the part of the billing API the store calls itself.
type PaymentAPI interface {
	Logout(ctx context.Context, token string) error
	Checkout(ctx context.Context, token, billingID string) (*clients.CheckoutResponse, error)
	PaymentStatus(ctx context.Context, token, billingID string) (*clients.StatusResponse, error)
}

// Store owns the session, the cart and the transactions started by this client,
// and keeps the durable copy in kv in sync.
type Store struct {
	kv     storage.KV
	api    PaymentAPI
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu           sync.RWMutex
	session      *models.Session
	cart         []models.CartItem
	transactions []models.Transaction
	changed      chan struct{}

	initOnce sync.Once
	initErr  error
	loading  atomic.Bool
	ready    chan struct{}
}

// New returns a store in the loading state; call Initialize once before serving.
func New(kv storage.KV, api PaymentAPI, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		kv:     kv,
		api:    api,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		ready:  make(chan struct{}),
	}
	s.changed = make(chan struct{})
	s.loading.Store(true)
	return s
}

// Loading is true until Initialize has finished.
func (s *Store) Loading() bool {
	return s.loading.Load()
}

// Ready is closed once Initialize has finished, successfully or not.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Session returns the active session.
func (s *Store) Session() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return models.Session{}, false
	}
	return *s.session, true
}

// Cart returns a copy of the cart.
func (s *Store) Cart() []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CartItem, len(s.cart))
	copy(out, s.cart)
	return out
}

// CartTotal sums the cart amounts.
func (s *Store) CartTotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, item := range s.cart {
		total += item.Amount
	}
	return total
}

// Transactions returns a copy of the transaction list.
func (s *Store) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Token returns the bearer token of the active session.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return "", false
	}
	return s.session.Token, true
}

// SessionChanged returns a channel that is closed on the next login, logout or
// session restore.
func (s *Store) SessionChanged() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// sessionChangedLocked wakes SessionChanged waiters. Caller holds s.mu.
func (s *Store) sessionChangedLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
