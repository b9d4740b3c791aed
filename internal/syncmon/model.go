package syncmon

import "time"

// Mismatch is one order whose stored payment status drifted from what its
// authoritative fields say it should be.
type Mismatch struct {
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Expected      string `json:"expected_payment_status"`
}

type Report struct {
	TotalOrders    int        `json:"total_orders"`
	MismatchCount  int        `json:"mismatch_count"`
	SyncPercentage float64    `json:"sync_percentage"`
	Mismatches     []Mismatch `json:"mismatches,omitempty"`
	CheckedAt      time.Time  `json:"checked_at"`
}

type DriftResult struct {
	Corrected    int       `json:"corrected"`
	AutoApproved int       `json:"auto_approved"`
	RanAt        time.Time `json:"ran_at"`
}
