package models

// Billing statuses as reported by the API.
const (
	BillingUnpaid = "unpaid"
	BillingPaid   = "paid"
)

// Billing is a payable item owned by the remote system.
type Billing struct {
	ID          ID     `json:"id"`
	UserID      ID     `json:"user_id,omitempty"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	DebtID      ID     `json:"debt_id"`
	Status      string `json:"status"`
}

// IsPaid reports whether the billing can no longer be added to a cart.
func (b Billing) IsPaid() bool {
	return b.Status == BillingPaid
}

// DebtCategory groups billings (SPP, Non-SPP, ...).
type DebtCategory struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
