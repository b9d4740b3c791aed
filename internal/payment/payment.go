package payment

import "context"

// Gateway abstracts the external bank API so the order flow and tests never
// talk to the vendor directly.
type Gateway interface {
	RegisterPayment(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	GetPaymentStatus(ctx context.Context, orderNumber string) (*StatusResult, error)
	CancelPayment(ctx context.Context, orderNumber string) error
	RefundPayment(ctx context.Context, orderNumber string, amount int64) error
}
