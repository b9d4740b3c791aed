package order

import "time"

type OrderStatus string

const (
	StatusPending             OrderStatus = "pending"
	StatusFinancial           OrderStatus = "financial"
	StatusWarehousePending    OrderStatus = "warehouse_pending"
	StatusWarehouseProcessing OrderStatus = "warehouse_processing"
	StatusReadyForDelivery    OrderStatus = "ready_for_delivery"
	StatusInTransit           OrderStatus = "in_transit"
	StatusDelivered           OrderStatus = "delivered"
	StatusCancelled           OrderStatus = "cancelled"
	StatusRejected            OrderStatus = "rejected"
	StatusPaymentFailed       OrderStatus = "payment_failed"
)

type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefunded      PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodWalletFull    PaymentMethod = "wallet_full"
	MethodWalletPartial PaymentMethod = "wallet_partial"
	MethodBankReceipt   PaymentMethod = "bank_receipt"
	MethodOnlinePayment PaymentMethod = "online_payment"
)

// transitions is the closed transition table. Any status write outside it is
// rejected, so a handler can no longer flip an order to an arbitrary string.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:             {StatusFinancial, StatusCancelled, StatusRejected, StatusPaymentFailed},
	StatusFinancial:           {StatusWarehousePending, StatusCancelled, StatusRejected, StatusPaymentFailed},
	StatusWarehousePending:    {StatusWarehouseProcessing, StatusCancelled, StatusRejected},
	StatusWarehouseProcessing: {StatusReadyForDelivery, StatusCancelled, StatusRejected},
	StatusReadyForDelivery:    {StatusInTransit, StatusCancelled},
	StatusInTransit:           {StatusDelivered, StatusCancelled},
	StatusPaymentFailed:       {StatusPending, StatusCancelled},
	StatusDelivered:           {},
	StatusCancelled:           {},
	StatusRejected:            {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func IsTerminal(s OrderStatus) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

type Address struct {
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	Line      string `json:"line"`
	PostCode  string `json:"post_code,omitempty"`
}

type Order struct {
	ID               int64
	OrderNumber      string
	CustomerID       int64
	TotalAmount      int64
	Currency         string
	PaymentMethod    PaymentMethod
	WalletAmountUsed int64
	BankAmountDue    int64
	Status           OrderStatus
	PaymentStatus    PaymentStatus
	ShippingAddress  Address
	Items            []Item
	ReceiptURL       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	Unit        string
	UnitPrice   int64
	LineTotal   int64
}

// CanonicalPaymentStatus derives the payment status an order should carry
// from its authoritative fields. The stored payment_status column is a
// denormalized copy of this; the sync monitor measures and corrects drift
// against it.
func CanonicalPaymentStatus(o *Order) PaymentStatus {
	switch o.Status {
	case StatusPaymentFailed:
		return PaymentFailed
	case StatusCancelled, StatusRejected:
		if o.WalletAmountUsed > 0 || o.PaymentStatus == PaymentPaid || o.PaymentStatus == PaymentRefunded {
			return PaymentRefunded
		}
		return PaymentUnpaid
	case StatusPending:
		switch {
		case o.PaymentMethod == MethodWalletFull:
			return PaymentPaid
		case o.WalletAmountUsed > 0:
			return PaymentPartiallyPaid
		default:
			return PaymentUnpaid
		}
	default:
		// financial onward means the money side is settled
		return PaymentPaid
	}
}
