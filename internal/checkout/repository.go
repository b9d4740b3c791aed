package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/order"
	"chemshop-be/internal/wallet"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrNoSubmission = errors.New("no previous submission for key")

	// ErrDuplicateSubmission means another request with the same idempotency
	// key committed its order first. The caller re-reads and replays it.
	ErrDuplicateSubmission = errors.New("concurrent submission for key")
)

type Repository interface {
	// CreateOrder allocates the next order number and writes the order, its
	// items and the wallet debit in one transaction. Either everything lands
	// or nothing does, so a failure can never leave a half-paid order.
	CreateOrder(ctx context.Context, o *order.Order, idempotencyKey string) error

	FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (*order.Order, error)
}

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) CreateOrder(ctx context.Context, o *order.Order, idempotencyKey string) error {
	log := logger.FromCtx(ctx).With(zap.Int64("customer_id", o.CustomerID))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback order creation", zap.Error(rbErr))
			}
		}
	}()

	now := r.now()

	counter, err := nextCounter(ctx, tx, now.Year())
	if err != nil {
		return fmt.Errorf("failed to allocate order number: %w", err)
	}
	o.OrderNumber = order.FormatOrderNumber(now, counter)

	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}

	var key sql.NullString
	if idempotencyKey != "" {
		key = sql.NullString{String: idempotencyKey, Valid: true}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO customer_orders (
			order_number, customer_id, total_amount, currency, payment_method,
			wallet_amount_used, bank_amount_due, status, payment_status,
			shipping_address, idempotency_key
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at
	`,
		o.OrderNumber, o.CustomerID, o.TotalAmount, o.Currency, o.PaymentMethod,
		o.WalletAmountUsed, o.BankAmountDue, o.Status, o.PaymentStatus,
		addr, key,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "idx_orders_idempotency" {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id
		`,
			item.OrderID, item.ProductID, item.ProductName,
			item.Quantity, item.Unit, item.UnitPrice, item.LineTotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if o.WalletAmountUsed > 0 {
		_, err = wallet.DebitTx(ctx, tx, o.CustomerID, o.WalletAmountUsed,
			fmt.Sprintf("Payment for order %s", o.OrderNumber),
			"order", o.OrderNumber)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	log.Info("order created",
		zap.String("order_number", o.OrderNumber),
		zap.Int64("total", o.TotalAmount),
		zap.Int64("wallet_used", o.WalletAmountUsed),
	)
	return nil
}

// nextCounter bumps the per-year counter under a row lock so two concurrent
// checkouts can never draw the same number. Missing years start at zero.
func nextCounter(ctx context.Context, tx *sql.Tx, year int) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_counter (year, counter) VALUES ($1, 0)
		ON CONFLICT (year) DO NOTHING
	`, year); err != nil {
		return 0, err
	}

	var counter int64
	if err := tx.QueryRowContext(ctx, `
		SELECT counter FROM order_counter WHERE year = $1 FOR UPDATE
	`, year).Scan(&counter); err != nil {
		return 0, err
	}

	counter++
	if _, err := tx.ExecContext(ctx, `
		UPDATE order_counter SET counter = $1 WHERE year = $2
	`, counter, year); err != nil {
		return 0, err
	}

	return counter, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (*order.Order, error) {
	var o order.Order
	var addr []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_id, total_amount, currency, payment_method,
		       wallet_amount_used, bank_amount_due, status, payment_status,
		       shipping_address, receipt_url, created_at, updated_at
		FROM customer_orders
		WHERE customer_id = $1 AND idempotency_key = $2
	`, customerID, key).Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount, &o.Currency, &o.PaymentMethod,
		&o.WalletAmountUsed, &o.BankAmountDue, &o.Status, &o.PaymentStatus,
		&addr, &o.ReceiptURL, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSubmission
	}
	if err != nil {
		return nil, err
	}

	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, err
		}
	}

	return &o, nil
}
