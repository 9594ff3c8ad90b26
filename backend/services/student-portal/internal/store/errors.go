package store

import (
	"errors"
	"fmt"

	"tuitionpay/backend/services/student-portal/internal/clients"
)

var (
	// ErrSessionCorrupted means persisted session data could not be decoded and was cleared.
	ErrSessionCorrupted = errors.New("store: persisted session corrupted")
	// ErrSessionExpired means the persisted token expired and the session was cleared.
	ErrSessionExpired = errors.New("store: persisted session expired")
	// ErrConnection wraps network failures talking to the billing API.
	ErrConnection = errors.New("store: cannot reach billing api")
	// ErrNoSession rejects operations that need a logged-in user.
	ErrNoSession = errors.New("store: no active session")
	// ErrEmptyCart rejects a checkout without items.
	ErrEmptyCart = errors.New("store: cart is empty")
	// ErrMissingBillingID rejects operations without a billing identifier.
	ErrMissingBillingID = errors.New("store: billing id required")
	// ErrMissingToken rejects a login without a bearer token.
	ErrMissingToken = errors.New("store: token required")
	// ErrDuplicateItem signals the billing is already in the cart.
	ErrDuplicateItem = errors.New("store: billing already in cart")
	// ErrAlreadyPaid signals the billing cannot be paid again.
	ErrAlreadyPaid = errors.New("store: billing already paid")
	// ErrIncompleteCheckout means the API accepted the checkout but left out redirect, token or order id.
	ErrIncompleteCheckout = errors.New("store: incomplete checkout response")

	errNoAPI = fmt.Errorf("%w: no billing api configured", ErrConnection)
)

// remoteError maps a client failure onto the store taxonomy. API refusals keep
// their *clients.APIError so callers can show the server message.
func remoteError(op string, err error) error {
	if errors.Is(err, clients.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %v", op, ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
