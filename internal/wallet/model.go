package wallet

import "time"

type Wallet struct {
	ID          int64
	CustomerID  int64
	Balance     int64
	CreditLimit int64
	Currency    string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Transaction is one ledger row. BalanceBefore/After make the history
// auditable without replaying it.
type Transaction struct {
	ID            int64
	WalletID      int64
	CustomerID    int64
	Type          TransactionType
	Amount        int64
	Currency      string
	BalanceBefore int64
	BalanceAfter  int64
	Description   string
	ReferenceType string
	ReferenceID   string
	CreatedAt     time.Time
}

type RechargeStatus string

const (
	RechargeStatusPending   RechargeStatus = "pending"
	RechargeStatusCompleted RechargeStatus = "completed"
	RechargeStatusRejected  RechargeStatus = "rejected"
)

type RechargeRequest struct {
	ID            int64
	RequestNumber string
	CustomerID    int64
	Amount        int64
	Currency      string
	Status        RechargeStatus
	AdminNotes    string
	ApprovedBy    *int64
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}
