package store

import (
	"context"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/storage"
)

// AddToCart appends the billing unless it is already in the cart (ErrDuplicateItem).
func (s *Store) AddToCart(ctx context.Context, billing models.Billing) error {
	if billing.ID == "" {
		return ErrMissingBillingID
	}
	if billing.IsPaid() {
		return ErrAlreadyPaid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.cart, billing.ID.String()) >= 0 {
		return ErrDuplicateItem
	}
	s.cart = append(s.cart, models.NewCartItem(billing))
	s.persistLocked(ctx, storage.KeyCart)

	s.logger.Debug("added to cart", zap.String("billing_id", billing.ID.String()), zap.Int("cart_items", len(s.cart)))
	return nil
}

// RemoveFromCart drops the matching item and reports whether there was one.
func (s *Store) RemoveFromCart(ctx context.Context, billingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.cart, billingID)
	if i < 0 {
		return false
	}
	s.cart = append(s.cart[:i:i], s.cart[i+1:]...)
	s.persistLocked(ctx, storage.KeyCart)
	return true
}

func indexOf(cart []models.CartItem, billingID string) int {
	for i, item := range cart {
		if item.BillingID == billingID {
			return i
		}
	}
	return -1
}

func dedupeCart(cart []models.CartItem) []models.CartItem {
	if len(cart) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(cart))
	out := make([]models.CartItem, 0, len(cart))
	for _, item := range cart {
		if item.BillingID == "" {
			continue
		}
		if _, ok := seen[item.BillingID]; ok {
			continue
		}
		seen[item.BillingID] = struct{}{}
		item.Quantity = 1
		out = append(out, item)
	}
	return out
}
