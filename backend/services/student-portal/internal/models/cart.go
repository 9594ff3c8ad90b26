package models

// CartItem is a billing selected for payment. Quantity is always 1.
type CartItem struct {
	BillingID   string `json:"billing_id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	DebtID      string `json:"debt_id"`
	Quantity    int    `json:"quantity"`
}

// NewCartItem copies the payable fields of a billing.
func NewCartItem(b Billing) CartItem {
	return CartItem{
		BillingID:   b.ID.String(),
		Description: b.Description,
		Amount:      b.Amount,
		Month:       b.Month,
		Year:        b.Year,
		DebtID:      b.DebtID.String(),
		Quantity:    1,
	}
}
