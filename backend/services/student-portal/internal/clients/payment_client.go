package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"tuitionpay/backend/services/student-portal/internal/models"
)

// AuthResult is the identity returned by login or registration.
type AuthResult struct {
	User  models.User
	Token string
}

// CheckoutResponse is what the gateway needs to take over the payment.
type CheckoutResponse struct {
	RedirectURL  string
	GatewayToken string
	OrderID      string
}

// StatusResponse carries the gateway sub-status for a billing.
type StatusResponse struct {
	TransactionStatus string
	OrderID           string
}

// PaymentClient covers the student-facing endpoints.
type PaymentClient struct {
	base *BaseClient
}

// NewPaymentClient returns client instance.
func NewPaymentClient(baseURL string, httpClient HTTPDoer) *PaymentClient {
	return &PaymentClient{base: NewBaseClient(baseURL, httpClient)}
}

type authPayload struct {
	User  *userPayload `json:"user"`
	Token string       `json:"token"`
}

type userPayload struct {
	models.User
	Token string `json:"token"`
}

func (p authPayload) result() (*AuthResult, error) {
	if p.User == nil {
		return nil, fmt.Errorf("%w: user missing", ErrIncompleteResponse)
	}
	token := p.Token
	if token == "" {
		token = p.User.Token
	}
	if token == "" {
		return nil, fmt.Errorf("%w: token missing", ErrIncompleteResponse)
	}
	return &AuthResult{User: p.User.User, Token: token}, nil
}

// Login handles POST /login.
func (c *PaymentClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	env, _, err := c.base.call(ctx, http.MethodPost, "/login", "", form)
	if err != nil {
		return nil, err
	}
	var payload authPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("clients: decode login: %w", err)
		}
	}
	return payload.result()
}

// Register handles POST /register. The API answers with user/token at the top level.
func (c *PaymentClient) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("password", password)

	env, body, err := c.base.call(ctx, http.MethodPost, "/register", "", form)
	if err != nil {
		return nil, err
	}
	var payload authPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("clients: decode register: %w", err)
	}
	if payload.User == nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("clients: decode register: %w", err)
		}
	}
	return payload.result()
}

// Logout handles POST /v1/logout.
func (c *PaymentClient) Logout(ctx context.Context, token string) error {
	_, _, err := c.base.call(ctx, http.MethodPost, "/v1/logout", token, url.Values{})
	return err
}

// StudentBillings fetches the billings addressed to one user.
func (c *PaymentClient) StudentBillings(ctx context.Context, token, userID string) ([]models.Billing, error) {
	if userID == "" {
		return nil, errors.New("clients: user id required")
	}
	env, _, err := c.base.call(ctx, http.MethodGet, "/v1/billings/user/"+url.PathEscape(userID), token, nil)
	if err != nil {
		return nil, err
	}
	var billings []models.Billing
	if err := decodeList(env.Data, "billings", &billings); err != nil {
		return nil, fmt.Errorf("clients: decode billings: %w", err)
	}
	return billings, nil
}

// Checkout starts a gateway payment for one billing. Completeness of the answer is
// left to the caller.
func (c *PaymentClient) Checkout(ctx context.Context, token, billingID string) (*CheckoutResponse, error) {
	form := url.Values{}
	form.Set("billing_id", billingID)

	env, _, err := c.base.call(ctx, http.MethodPost, "/v1/checkout", token, form)
	if err != nil {
		return nil, err
	}
	var data struct {
		RedirectURL string    `json:"redirect_url"`
		SnapToken   string    `json:"snap_token"`
		Token       string    `json:"token"`
		OrderID     models.ID `json:"order_id"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("clients: decode checkout: %w", err)
		}
	}
	gatewayToken := data.SnapToken
	if gatewayToken == "" {
		gatewayToken = data.Token
	}
	return &CheckoutResponse{
		RedirectURL:  data.RedirectURL,
		GatewayToken: gatewayToken,
		OrderID:      data.OrderID.String(),
	}, nil
}

// PaymentStatus asks the API for the gateway status of a billing.
func (c *PaymentClient) PaymentStatus(ctx context.Context, token, billingID string) (*StatusResponse, error) {
	env, _, err := c.base.call(ctx, http.MethodGet, "/v1/checkout/status/"+url.PathEscape(billingID), token, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		TransactionStatus string    `json:"transaction_status"`
		OrderID           models.ID `json:"order_id"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("clients: decode status: %w", err)
		}
	}
	return &StatusResponse{TransactionStatus: data.TransactionStatus, OrderID: data.OrderID.String()}, nil
}
