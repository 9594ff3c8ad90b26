package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/store"
)

var (
	// ErrInvalidCredentials represents a login attempt without email or password.
	ErrInvalidCredentials = errors.New("portal: email and password required")
	// ErrNameRequired rejects a registration without a display name.
	ErrNameRequired = errors.New("portal: name required")
	// ErrBillingNotFound is returned when the billing is not one of the student's.
	ErrBillingNotFound = errors.New("portal: billing not found")
	// ErrForbidden rejects management operations for non superadmin sessions.
	ErrForbidden = errors.New("portal: superadmin role required")
)

// PortalService combines the session store with the billing API for one student.
type PortalService struct {
	store         *store.Store
	payments      *clients.PaymentClient
	admin         *clients.AdminClient
	watchInterval time.Duration
	logger        *zap.Logger
}

// NewPortalService builds PortalService.
func NewPortalService(st *store.Store, payments *clients.PaymentClient, admin *clients.AdminClient, watchInterval time.Duration, logger *zap.Logger) *PortalService {
	return &PortalService{
		store:         st,
		payments:      payments,
		admin:         admin,
		watchInterval: watchInterval,
		logger:        logger,
	}
}

// Store exposes the underlying session store.
func (s *PortalService) Store() *store.Store {
	return s.store
}

// Login authenticates against the API and opens the session.
func (s *PortalService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	res, err := s.payments.Login(ctx, email, password)
	if err != nil {
		return nil, remote("portal: login", err)
	}
	return s.open(ctx, res)
}

// Register creates a student account and opens its session.
func (s *PortalService) Register(ctx context.Context, name, email, password string) (*models.Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	res, err := s.payments.Register(ctx, name, email, password)
	if err != nil {
		return nil, remote("portal: register", err)
	}
	return s.open(ctx, res)
}

func (s *PortalService) open(ctx context.Context, res *clients.AuthResult) (*models.Session, error) {
	if err := s.store.Login(ctx, res.User, res.Token); err != nil {
		return nil, err
	}
	session, _ := s.store.Session()
	return &session, nil
}

// Logout ends the session locally and remotely.
func (s *PortalService) Logout(ctx context.Context) error {
	return s.store.Logout(ctx)
}

// Billings lists the logged-in student's billings.
func (s *PortalService) Billings(ctx context.Context) ([]models.Billing, error) {
	session, ok := s.store.Session()
	if !ok {
		return nil, store.ErrNoSession
	}
	list, err := s.payments.StudentBillings(ctx, session.Token, session.User.ID.String())
	if err != nil {
		return nil, remote("portal: billings", err)
	}
	return list, nil
}

func (s *PortalService) findBilling(ctx context.Context, billingID string) (models.Billing, error) {
	list, err := s.Billings(ctx)
	if err != nil {
		return models.Billing{}, err
	}
	for _, b := range list {
		if b.ID.String() == billingID {
			return b, nil
		}
	}
	return models.Billing{}, fmt.Errorf("%w: %s", ErrBillingNotFound, billingID)
}

// AddToCart looks the billing up among the student's billings and adds it.
func (s *PortalService) AddToCart(ctx context.Context, billingID string) error {
	billingID = strings.TrimSpace(billingID)
	if billingID == "" {
		return store.ErrMissingBillingID
	}
	billing, err := s.findBilling(ctx, billingID)
	if err != nil {
		return err
	}
	return s.store.AddToCart(ctx, billing)
}

// RemoveFromCart drops the billing from the cart.
func (s *PortalService) RemoveFromCart(ctx context.Context, billingID string) bool {
	return s.store.RemoveFromCart(ctx, strings.TrimSpace(billingID))
}

// Checkout pays the selected billings, or the whole cart when none are selected.
// Selected billings missing from the cart are looked up among the student's billings.
func (s *PortalService) Checkout(ctx context.Context, billingIDs []string) (*store.CheckoutResult, error) {
	cart := s.store.Cart()
	if len(billingIDs) == 0 {
		return s.store.Checkout(ctx, "", cart)
	}

	items := make([]models.CartItem, 0, len(billingIDs))
	for _, id := range billingIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if item, ok := cartItem(cart, id); ok {
			items = append(items, item)
			continue
		}
		billing, err := s.findBilling(ctx, id)
		if err != nil {
			return nil, err
		}
		if billing.IsPaid() {
			return nil, store.ErrAlreadyPaid
		}
		items = append(items, models.NewCartItem(billing))
	}
	return s.store.Checkout(ctx, "", items)
}

func cartItem(cart []models.CartItem, billingID string) (models.CartItem, bool) {
	for _, item := range cart {
		if item.BillingID == billingID {
			return item, true
		}
	}
	return models.CartItem{}, false
}

// CheckPaymentStatus reports whether the billing is settled.
func (s *PortalService) CheckPaymentStatus(ctx context.Context, billingID string) (bool, error) {
	return s.store.CheckPaymentStatus(ctx, strings.TrimSpace(billingID))
}

// WatchPayment polls until the billing is settled or ctx ends.
func (s *PortalService) WatchPayment(ctx context.Context, billingID string) error {
	return s.store.WatchPayment(ctx, strings.TrimSpace(billingID), s.watchInterval)
}

func remote(op string, err error) error {
	if errors.Is(err, clients.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %v", op, store.ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
