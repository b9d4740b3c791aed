package payment

import (
	"strings"
	"time"
)

// Status is the internal four-state view of a bank payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// MapVendorStatus folds the bank's status vocabulary into the internal enum.
// Unrecognized values stay pending rather than failing an order on a vendor
// vocabulary change.
func MapVendorStatus(vendorStatus string) Status {
	switch strings.ToLower(vendorStatus) {
	case "success", "completed", "paid":
		return StatusCompleted
	case "pending", "processing":
		return StatusPending
	case "failed", "error":
		return StatusFailed
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

type Payment struct {
	ID                  int64
	OrderNumber         string
	CreditApplicationID string
	RedirectURL         string
	Amount              int64
	Currency            string
	Status              Status
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Total    int64  `json:"total"`
}

type RegisterRequest struct {
	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	CustomerEmail   string
	OrderNumber     string
	Items           []OrderItem
	TotalAmount     int64
	Currency        string
	CallbackURL     string
	StatusURL       string
	Description     string
}

type RegisterResponse struct {
	CreditApplicationID string
	OrderNumber         string
	RedirectURL         string
}

type StatusResult struct {
	OrderNumber   string
	Status        Status
	TransactionID string
	Amount        int64
	Currency      string
	PaymentDate   string
	ErrorMessage  string
}
