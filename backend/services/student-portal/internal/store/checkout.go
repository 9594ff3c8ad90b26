package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/storage"
)

// CheckoutResult tells the caller where to send the student.
type CheckoutResult struct {
	RedirectURL  string
	GatewayToken string
	OrderID      string
	Transaction  models.Transaction
}

// Checkout starts a gateway payment for the first of items. Only one billing is paid
// per checkout; on success the whole cart is cleared.
func (s *Store) Checkout(ctx context.Context, userID string, items []models.CartItem) (*CheckoutResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	session, ok := s.Session()
	if !ok {
		return nil, ErrNoSession
	}
	if userID == "" {
		userID = session.User.ID.String()
	}
	if userID != session.User.ID.String() {
		return nil, fmt.Errorf("%w: session belongs to another user", ErrNoSession)
	}

	item := items[0]
	if item.BillingID == "" {
		return nil, ErrMissingBillingID
	}
	if len(items) > 1 {
		s.logger.Info("checkout pays the first selected item only",
			zap.String("billing_id", item.BillingID),
			zap.Int("selected", len(items)),
		)
	}

	if s.api == nil {
		return nil, errNoAPI
	}
	resp, err := s.api.Checkout(ctx, session.Token, item.BillingID)
	if err != nil {
		s.logger.Warn("checkout failed", zap.String("billing_id", item.BillingID), zap.Error(err))
		return nil, remoteError("store: checkout", err)
	}
	if resp == nil || resp.RedirectURL == "" || resp.GatewayToken == "" || resp.OrderID == "" {
		s.logger.Warn("checkout response incomplete", zap.String("billing_id", item.BillingID))
		return nil, ErrIncompleteCheckout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.Token != session.Token {
		return nil, fmt.Errorf("%w: session ended during checkout", ErrNoSession)
	}

	now := s.now()
	tx := models.Transaction{
		ID:        s.newID(),
		UserID:    userID,
		BillingID: item.BillingID,
		OrderID:   resp.OrderID,
		Amount:    item.Amount,
		Status:    models.TransactionInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.transactions = append(s.transactions, tx)
	s.cart = nil
	s.persistLocked(ctx, storage.KeyTransactions, storage.KeyCart)

	s.logger.Info("checkout initiated",
		zap.String("transaction_id", tx.ID),
		zap.String("billing_id", tx.BillingID),
		zap.String("order_id", tx.OrderID),
		zap.Int64("amount", tx.Amount),
	)

	return &CheckoutResult{
		RedirectURL:  resp.RedirectURL,
		GatewayToken: resp.GatewayToken,
		OrderID:      resp.OrderID,
		Transaction:  tx,
	}, nil
}
