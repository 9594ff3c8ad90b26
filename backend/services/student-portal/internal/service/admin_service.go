package service

import (
	"context"

	"go.uber.org/zap"

	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/store"
)

func (s *PortalService) adminToken() (string, error) {
	session, ok := s.store.Session()
	if !ok {
		return "", store.ErrNoSession
	}
	if !session.IsAdmin() {
		return "", ErrForbidden
	}
	return session.Token, nil
}

// ListDebts returns the payment categories.
func (s *PortalService) ListDebts(ctx context.Context) ([]models.DebtCategory, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}
	list, err := s.admin.ListDebts(ctx, token)
	if err != nil {
		return nil, remote("portal: list debts", err)
	}
	return list, nil
}

// CreateDebt adds a payment category.
func (s *PortalService) CreateDebt(ctx context.Context, in clients.DebtInput) error {
	token, err := s.adminToken()
	if err != nil {
		return err
	}
	if err := s.admin.CreateDebt(ctx, token, in); err != nil {
		return remote("portal: create debt", err)
	}
	s.logger.Info("debt category created", zap.String("name", in.Name))
	return nil
}

// UpdateDebt replaces a payment category.
func (s *PortalService) UpdateDebt(ctx context.Context, id string, in clients.DebtInput) error {
	token, err := s.adminToken()
	if err != nil {
		return err
	}
	if err := s.admin.UpdateDebt(ctx, token, id, in); err != nil {
		return remote("portal: update debt", err)
	}
	s.logger.Info("debt category updated", zap.String("debt_id", id))
	return nil
}

// DeleteDebt removes a payment category.
func (s *PortalService) DeleteDebt(ctx context.Context, id string) error {
	token, err := s.adminToken()
	if err != nil {
		return err
	}
	if err := s.admin.DeleteDebt(ctx, token, id); err != nil {
		return remote("portal: delete debt", err)
	}
	s.logger.Info("debt category deleted", zap.String("debt_id", id))
	return nil
}

// ListBillings returns every billing matching filter.
func (s *PortalService) ListBillings(ctx context.Context, filter clients.BillingFilter) ([]models.Billing, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}
	list, err := s.admin.ListBillings(ctx, token)
	if err != nil {
		return nil, remote("portal: list billings", err)
	}
	return clients.FilterBillings(list, filter), nil
}

// CreateBilling issues a billing to a student.
func (s *PortalService) CreateBilling(ctx context.Context, in clients.BillingInput) error {
	token, err := s.adminToken()
	if err != nil {
		return err
	}
	if err := s.admin.CreateBilling(ctx, token, in); err != nil {
		return remote("portal: create billing", err)
	}
	s.logger.Info("billing created", zap.String("user_id", in.UserID), zap.Int64("amount", in.Amount))
	return nil
}

// UpdateBilling replaces a billing.
func (s *PortalService) UpdateBilling(ctx context.Context, id string, in clients.BillingInput) error {
	token, err := s.adminToken()
	if err != nil {
		return err
	}
	if err := s.admin.UpdateBilling(ctx, token, id, in); err != nil {
		return remote("portal: update billing", err)
	}
	s.logger.Info("billing updated", zap.String("billing_id", id))
	return nil
}

// DeleteBilling removes a billing.
func (s *PortalService) DeleteBilling(ctx context.Context, id string) error {
	token, err := s.adminToken()
	if err != nil {
		return err
	}
	if err := s.admin.DeleteBilling(ctx, token, id); err != nil {
		return remote("portal: delete billing", err)
	}
	s.logger.Info("billing deleted", zap.String("billing_id", id))
	return nil
}

// ListUsers returns the registered users.
func (s *PortalService) ListUsers(ctx context.Context) ([]clients.AdminUser, error) {
	token, err := s.adminToken()
	if err != nil {
		return nil, err
	}
	list, err := s.admin.ListUsers(ctx, token)
	if err != nil {
		return nil, remote("portal: list users", err)
	}
	return list, nil
}
