package checkout

import (
	"chemshop-be/internal/order"
)

// bankReceiptGraceDays is how long a bank_receipt order may stay unpaid
// before the finance team chases it.
const bankReceiptGraceDays = 3

type ItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type SubmitInput struct {
	IdempotencyKey  string        `json:"-"`
	PaymentMethod   string        `json:"payment_method" validate:"required,oneof=wallet_full wallet_partial bank_receipt online_payment"`
	Items           []ItemInput   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress order.Address `json:"shipping_address" validate:"required"`
	ShippingCost    int64         `json:"shipping_cost" validate:"gte=0"`
	CallbackURL     string        `json:"callback_url" validate:"omitempty,url"`
}

// PaymentOption is one way the customer can settle the cart.
type PaymentOption struct {
	Method       string `json:"method"`
	WalletAmount int64  `json:"wallet_amount"`
	BankAmount   int64  `json:"bank_amount"`
	GracePeriod  int    `json:"grace_period_days,omitempty"`
}

type PaymentOptions struct {
	TotalAmount   int64           `json:"total_amount"`
	Currency      string          `json:"currency"`
	WalletBalance int64           `json:"wallet_balance"`
	Options       []PaymentOption `json:"options"`
}

// SubmitResult is what the storefront needs to continue: the order itself and,
// for orders with a bank portion, the redirect URL of the bank application.
type SubmitResult struct {
	Order       *order.Order `json:"order"`
	RedirectURL string       `json:"redirect_url,omitempty"`
	Replayed    bool         `json:"-"`
}
