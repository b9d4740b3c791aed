package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chemshop-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetByCustomerID(ctx context.Context, customerID int64) (*Wallet, error)
	Credit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error)
	Debit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error)
	Transactions(ctx context.Context, customerID int64, limit int) ([]Transaction, error)

	CreateRechargeRequest(ctx context.Context, req *RechargeRequest) error
	GetRechargeRequest(ctx context.Context, id int64) (*RechargeRequest, error)
	ListPendingRechargeRequests(ctx context.Context) ([]RechargeRequest, error)
	UpdateRechargeStatus(ctx context.Context, id int64, status RechargeStatus, notes string, approvedBy int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByCustomerID(ctx context.Context, customerID int64) (*Wallet, error) {
	query := `
		SELECT id, customer_id, balance, credit_limit, currency, status, created_at, updated_at
		FROM customer_wallets
		WHERE customer_id = $1
	`

	var w Wallet
	err := r.db.QueryRowContext(ctx, query, customerID).Scan(
		&w.ID, &w.CustomerID, &w.Balance, &w.CreditLimit,
		&w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	return &w, nil
}

// Credit adds funds, creating the wallet lazily for customers who have never
// held a balance. Balance update and ledger row commit together.
func (r *repository) Credit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int64("customer_id", customerID),
		zap.Int64("amount", amount),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback wallet credit", zap.Error(rbErr))
			}
		}
	}()

	w, err := lockWallet(ctx, tx, customerID)
	if errors.Is(err, ErrWalletNotFound) {
		w, err = createWallet(ctx, tx, customerID)
	}
	if err != nil {
		return nil, err
	}

	txn, err := applyMovement(ctx, tx, w, TransactionCredit, amount, description, refType, refID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	log.Info("wallet credited", zap.Int64("balance_after", txn.BalanceAfter))
	return txn, nil
}

// Debit withdraws funds. The available amount is balance plus credit limit;
// anything beyond that fails with ErrInsufficientFunds before any row changes.
func (r *repository) Debit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int64("customer_id", customerID),
		zap.Int64("amount", amount),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback wallet debit", zap.Error(rbErr))
			}
		}
	}()

	w, err := lockWallet(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	if amount > w.Balance+w.CreditLimit {
		log.Warn("debit rejected",
			zap.Int64("balance", w.Balance),
			zap.Int64("credit_limit", w.CreditLimit),
		)
		return nil, ErrInsufficientFunds
	}

	txn, err := applyMovement(ctx, tx, w, TransactionDebit, amount, description, refType, refID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	log.Info("wallet debited", zap.Int64("balance_after", txn.BalanceAfter))
	return txn, nil
}

// DebitTx runs a debit inside a caller-owned transaction. Checkout uses it so
// the wallet movement commits or rolls back together with the order insert and
// the counter increment.
func DebitTx(ctx context.Context, tx *sql.Tx, customerID, amount int64, description, refType, refID string) (*Transaction, error) {
	w, err := lockWallet(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	if amount > w.Balance+w.CreditLimit {
		return nil, ErrInsufficientFunds
	}

	return applyMovement(ctx, tx, w, TransactionDebit, amount, description, refType, refID)
}

func lockWallet(ctx context.Context, tx *sql.Tx, customerID int64) (*Wallet, error) {
	query := `
		SELECT id, customer_id, balance, credit_limit, currency, status
		FROM customer_wallets
		WHERE customer_id = $1
		FOR UPDATE
	`

	var w Wallet
	err := tx.QueryRowContext(ctx, query, customerID).Scan(
		&w.ID, &w.CustomerID, &w.Balance, &w.CreditLimit, &w.Currency, &w.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	return &w, nil
}

func createWallet(ctx context.Context, tx *sql.Tx, customerID int64) (*Wallet, error) {
	query := `
		INSERT INTO customer_wallets (customer_id, balance, credit_limit, currency, status)
		VALUES ($1, 0, 0, 'IQD', 'active')
		RETURNING id
	`

	w := &Wallet{CustomerID: customerID, Currency: "IQD", Status: "active"}
	if err := tx.QueryRowContext(ctx, query, customerID).Scan(&w.ID); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return w, nil
}

func applyMovement(ctx context.Context, tx *sql.Tx, w *Wallet, typ TransactionType, amount int64, description, refType, refID string) (*Transaction, error) {
	after := w.Balance + amount
	if typ == TransactionDebit {
		after = w.Balance - amount
	}

	txn := &Transaction{
		WalletID:      w.ID,
		CustomerID:    w.CustomerID,
		Type:          typ,
		Amount:        amount,
		Currency:      w.Currency,
		BalanceBefore: w.Balance,
		BalanceAfter:  after,
		Description:   description,
		ReferenceType: refType,
		ReferenceID:   refID,
		CreatedAt:     time.Now(),
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO wallet_transactions (
			wallet_id, customer_id, transaction_type, amount, currency,
			balance_before, balance_after, description, reference_type, reference_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`,
		txn.WalletID, txn.CustomerID, txn.Type, txn.Amount, txn.Currency,
		txn.BalanceBefore, txn.BalanceAfter, txn.Description, txn.ReferenceType, txn.ReferenceID,
	).Scan(&txn.ID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customer_wallets
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, after, w.ID)
	if err != nil {
		return nil, err
	}

	return txn, nil
}

func (r *repository) Transactions(ctx context.Context, customerID int64, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, wallet_id, customer_id, transaction_type, amount, currency,
		       balance_before, balance_after, description, reference_type, reference_id, created_at
		FROM wallet_transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.WalletID, &t.CustomerID, &t.Type, &t.Amount, &t.Currency,
			&t.BalanceBefore, &t.BalanceAfter, &t.Description, &t.ReferenceType, &t.ReferenceID, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}

	return txns, rows.Err()
}

func (r *repository) CreateRechargeRequest(ctx context.Context, req *RechargeRequest) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO wallet_recharge_requests (request_number, customer_id, amount, currency, status)
		VALUES ($1,$2,$3,$4,'pending')
		RETURNING id, created_at
	`, req.RequestNumber, req.CustomerID, req.Amount, req.Currency).
		Scan(&req.ID, &req.CreatedAt)
}

func (r *repository) GetRechargeRequest(ctx context.Context, id int64) (*RechargeRequest, error) {
	var req RechargeRequest
	var notes sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, request_number, customer_id, amount, currency, status,
		       admin_notes, approved_by, created_at, processed_at
		FROM wallet_recharge_requests
		WHERE id = $1
	`, id).Scan(
		&req.ID, &req.RequestNumber, &req.CustomerID, &req.Amount, &req.Currency,
		&req.Status, &notes, &req.ApprovedBy, &req.CreatedAt, &req.ProcessedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRechargeNotFound
	}
	if err != nil {
		return nil, err
	}
	req.AdminNotes = notes.String

	return &req, nil
}

func (r *repository) ListPendingRechargeRequests(ctx context.Context) ([]RechargeRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_number, customer_id, amount, currency, status,
		       admin_notes, approved_by, created_at, processed_at
		FROM wallet_recharge_requests
		WHERE status = 'pending'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []RechargeRequest
	for rows.Next() {
		var req RechargeRequest
		var notes sql.NullString
		if err := rows.Scan(
			&req.ID, &req.RequestNumber, &req.CustomerID, &req.Amount, &req.Currency,
			&req.Status, &notes, &req.ApprovedBy, &req.CreatedAt, &req.ProcessedAt,
		); err != nil {
			return nil, err
		}
		req.AdminNotes = notes.String
		reqs = append(reqs, req)
	}

	return reqs, rows.Err()
}

func (r *repository) UpdateRechargeStatus(ctx context.Context, id int64, status RechargeStatus, notes string, approvedBy int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wallet_recharge_requests
		SET status = $1, admin_notes = $2, approved_by = $3, processed_at = NOW()
		WHERE id = $4 AND status = 'pending'
	`, status, notes, approvedBy, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrRechargeNotPending
	}

	return nil
}
