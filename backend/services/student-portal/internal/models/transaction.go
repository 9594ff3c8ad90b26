package models

import "time"

// TransactionStatus is the client-side view of a gateway payment.
type TransactionStatus string

const (
	TransactionInitiated TransactionStatus = "Initiated"
	TransactionPending   TransactionStatus = "Pending"
	TransactionPaid      TransactionStatus = "Paid"
)

func (s TransactionStatus) rank() int {
	switch s {
	case TransactionInitiated:
		return 1
	case TransactionPending:
		return 2
	case TransactionPaid:
		return 3
	default:
		return 0
	}
}

// Precedes reports whether moving from s to next is a forward transition.
func (s TransactionStatus) Precedes(next TransactionStatus) bool {
	return next.rank() > s.rank()
}

// Transaction records a checkout started by this client.
type Transaction struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	BillingID string            `json:"billing_id"`
	OrderID   string            `json:"order_id"`
	Amount    int64             `json:"amount"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Advance moves the transaction forward; it never regresses.
func (t *Transaction) Advance(next TransactionStatus, at time.Time) bool {
	if !t.Status.Precedes(next) {
		return false
	}
	t.Status = next
	t.UpdatedAt = at
	return true
}
