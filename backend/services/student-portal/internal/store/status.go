package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/storage"
)

// Gateway sub-statuses the store acts on.
const (
	GatewaySettlement = "settlement"
	GatewayPending    = "pending"
)

// Notification is a payment status pushed from outside the store.
type Notification struct {
	BillingID         string `json:"billing_id"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

// CheckPaymentStatus asks the API about a billing. It returns true, and marks the
// matching transaction Paid, only for the settlement sub-status.
func (s *Store) CheckPaymentStatus(ctx context.Context, billingID string) (bool, error) {
	token, ok := s.Token()
	if !ok {
		return false, ErrNoSession
	}
	if billingID == "" {
		return false, ErrMissingBillingID
	}

	if s.api == nil {
		return false, errNoAPI
	}
	resp, err := s.api.PaymentStatus(ctx, token, billingID)
	if err != nil {
		s.logger.Warn("payment status check failed", zap.String("billing_id", billingID), zap.Error(err))
		return false, remoteError("store: payment status", err)
	}
	if resp == nil || resp.TransactionStatus != GatewaySettlement {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findLocked(billingID, resp.OrderID); i >= 0 {
		if s.transactions[i].Advance(models.TransactionPaid, s.now()) {
			s.persistLocked(ctx, storage.KeyTransactions)
		}
		s.logger.Info("payment settled", zap.String("billing_id", billingID), zap.String("transaction_id", s.transactions[i].ID))
	} else {
		s.logger.Info("payment settled for billing without local transaction", zap.String("billing_id", billingID))
	}
	return true, nil
}

// ApplyPaymentNotification advances a transaction from a pushed status. Statuses
// other than pending and settlement, and backward moves, are ignored.
func (s *Store) ApplyPaymentNotification(ctx context.Context, n Notification) bool {
	var next models.TransactionStatus
	switch n.TransactionStatus {
	case GatewaySettlement:
		next = models.TransactionPaid
	case GatewayPending:
		next = models.TransactionPending
	default:
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return false
	}
	i := s.findLocked(n.BillingID, n.OrderID)
	if i < 0 || !s.transactions[i].Advance(next, s.now()) {
		return false
	}
	s.persistLocked(ctx, storage.KeyTransactions)
	s.logger.Info("payment notification applied",
		zap.String("transaction_id", s.transactions[i].ID),
		zap.String("status", string(next)),
	)
	return true
}

// findLocked prefers an order id match, then the most recent transaction of the billing.
func (s *Store) findLocked(billingID, orderID string) int {
	if orderID != "" {
		for i := range s.transactions {
			if s.transactions[i].OrderID == orderID {
				return i
			}
		}
	}
	if billingID == "" {
		return -1
	}
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].BillingID == billingID {
			return i
		}
	}
	return -1
}

// WatchPayment polls CheckPaymentStatus until the billing is paid or ctx ends.
// Connection and API errors are logged and retried on the next tick.
func (s *Store) WatchPayment(ctx context.Context, billingID string, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		paid, err := s.CheckPaymentStatus(ctx, billingID)
		switch {
		case paid:
			return nil
		case errors.Is(err, ErrNoSession), errors.Is(err, ErrMissingBillingID):
			return err
		case err != nil:
			s.logger.Debug("payment watch retry", zap.String("billing_id", billingID), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
