package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tuitionpay/backend/services/student-portal/internal/models"
)

// ErrInvalidInput is returned before any request when a form is incomplete.
var ErrInvalidInput = errors.New("clients: invalid input")

// DebtInput is the payment category form.
type DebtInput struct {
	Name        string `validate:"required"`
	Description string `validate:"required"`
}

// BillingInput is the billing form of the management screen.
type BillingInput struct {
	Amount      int64  `validate:"required,gt=0"`
	Description string `validate:"required"`
	Month       int    `validate:"required,min=1,max=12"`
	Year        int    `validate:"required,min=2000,max=2100"`
	DebtID      string `validate:"required"`
	UserID      string `validate:"required"`
	Status      string `validate:"required,oneof=paid unpaid"`
}

// AdminUser is a row of the user management screen.
type AdminUser struct {
	ID    models.ID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// AdminClient covers the superadmin management endpoints.
type AdminClient struct {
	base     *BaseClient
	validate *validator.Validate
}

// NewAdminClient returns client instance.
func NewAdminClient(baseURL string, httpClient HTTPDoer) *AdminClient {
	return &AdminClient{
		base:     NewBaseClient(baseURL, httpClient),
		validate: validator.New(),
	}
}

func (c *AdminClient) check(input interface{}) error {
	err := c.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
}

// ListDebts handles GET /v1/debts.
func (c *AdminClient) ListDebts(ctx context.Context, token string) ([]models.DebtCategory, error) {
	env, _, err := c.base.call(ctx, http.MethodGet, "/v1/debts", token, nil)
	if err != nil {
		return nil, err
	}
	var debts []models.DebtCategory
	if err := decodeList(env.Data, "debts", &debts); err != nil {
		return nil, fmt.Errorf("clients: decode debts: %w", err)
	}
	return debts, nil
}

func (in DebtInput) form() url.Values {
	form := url.Values{}
	form.Set("name", in.Name)
	form.Set("description", in.Description)
	return form
}

// CreateDebt handles POST /v1/debts.
func (c *AdminClient) CreateDebt(ctx context.Context, token string, in DebtInput) error {
	if err := c.check(in); err != nil {
		return err
	}
	_, _, err := c.base.call(ctx, http.MethodPost, "/v1/debts", token, in.form())
	return err
}

// UpdateDebt posts with a _method=PUT override, as the API expects for form bodies.
func (c *AdminClient) UpdateDebt(ctx context.Context, token, id string, in DebtInput) error {
	if id == "" {
		return fmt.Errorf("%w: debt id required", ErrInvalidInput)
	}
	if err := c.check(in); err != nil {
		return err
	}
	form := in.form()
	form.Set("_method", http.MethodPut)
	_, _, err := c.base.call(ctx, http.MethodPost, "/v1/debts/"+url.PathEscape(id), token, form)
	return err
}

// DeleteDebt handles DELETE /v1/debts/{id}.
func (c *AdminClient) DeleteDebt(ctx context.Context, token, id string) error {
	if id == "" {
		return fmt.Errorf("%w: debt id required", ErrInvalidInput)
	}
	_, _, err := c.base.call(ctx, http.MethodDelete, "/v1/debts/"+url.PathEscape(id), token, nil)
	return err
}

// ListBillings handles GET /v1/billings.
func (c *AdminClient) ListBillings(ctx context.Context, token string) ([]models.Billing, error) {
	env, _, err := c.base.call(ctx, http.MethodGet, "/v1/billings", token, nil)
	if err != nil {
		return nil, err
	}
	var billings []models.Billing
	if err := decodeList(env.Data, "billings", &billings); err != nil {
		return nil, fmt.Errorf("clients: decode billings: %w", err)
	}
	return billings, nil
}

func (in BillingInput) form() url.Values {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(in.Amount, 10))
	form.Set("description", in.Description)
	form.Set("month", strconv.Itoa(in.Month))
	form.Set("year", strconv.Itoa(in.Year))
	form.Set("debt_id", in.DebtID)
	form.Set("user_id", in.UserID)
	form.Set("status", in.Status)
	return form
}

// CreateBilling handles POST /v1/billings.
func (c *AdminClient) CreateBilling(ctx context.Context, token string, in BillingInput) error {
	if err := c.check(in); err != nil {
		return err
	}
	_, _, err := c.base.call(ctx, http.MethodPost, "/v1/billings", token, in.form())
	return err
}

// UpdateBilling handles POST /v1/billings/{id} with _method=PUT.
func (c *AdminClient) UpdateBilling(ctx context.Context, token, id string, in BillingInput) error {
	if id == "" {
		return fmt.Errorf("%w: billing id required", ErrInvalidInput)
	}
	if err := c.check(in); err != nil {
		return err
	}
	form := in.form()
	form.Set("_method", http.MethodPut)
	_, _, err := c.base.call(ctx, http.MethodPost, "/v1/billings/"+url.PathEscape(id), token, form)
	return err
}

// DeleteBilling handles DELETE /v1/billings/{id}.
func (c *AdminClient) DeleteBilling(ctx context.Context, token, id string) error {
	if id == "" {
		return fmt.Errorf("%w: billing id required", ErrInvalidInput)
	}
	_, _, err := c.base.call(ctx, http.MethodDelete, "/v1/billings/"+url.PathEscape(id), token, nil)
	return err
}

// ListUsers handles GET /v1/superadmin/role/user.
func (c *AdminClient) ListUsers(ctx context.Context, token string) ([]AdminUser, error) {
	env, _, err := c.base.call(ctx, http.MethodGet, "/v1/superadmin/role/user", token, nil)
	if err != nil {
		return nil, err
	}
	var users []AdminUser
	if err := decodeList(env.Data, "users", &users); err != nil {
		return nil, fmt.Errorf("clients: decode users: %w", err)
	}
	return users, nil
}

// BillingFilter narrows the management list. Empty fields match everything.
type BillingFilter struct {
	Search string
	DebtID string
	UserID string
	Status string
}

// FilterBillings applies every non-empty criterion of f.
func FilterBillings(list []models.Billing, f BillingFilter) []models.Billing {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Billing, 0, len(list))
	for _, b := range list {
		if search != "" && !strings.Contains(strings.ToLower(b.Description), search) {
			continue
		}
		if f.DebtID != "" && b.DebtID.String() != f.DebtID {
			continue
		}
		if f.UserID != "" && b.UserID.String() != f.UserID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	return out
}
