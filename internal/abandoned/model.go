package abandoned

import (
	"encoding/json"
	"time"
)

// Checkout is a hybrid payment the customer walked away from: the order was
// split, the bank redirect was issued, and the money never arrived. Marketing
// follows these up, so the row carries everything needed to re-engage.
type Checkout struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	CustomerID    int64           `json:"customer_id"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   int64           `json:"total_amount"`
	WalletAmount  int64           `json:"wallet_amount"`
	BankAmount    int64           `json:"bank_amount"`
	Currency      string          `json:"currency"`
	CartSnapshot  json.RawMessage `json:"cart_snapshot,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
