package syncmon

import (
	"context"
	"database/sql"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/order"

	"go.uber.org/zap"
)

type Repository interface {
	// ListForAudit loads the fields the canonical derivation needs for every
	// order that is not yet terminal plus terminals changed recently.
	ListForAudit(ctx context.Context) ([]order.Order, error)

	// FixPaymentStatus overwrites a drifted payment status and writes an
	// audit row in the same transaction.
	FixPaymentStatus(ctx context.Context, orderNumber string, from, to order.PaymentStatus) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListForAudit(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_number, customer_id, total_amount, payment_method,
		       wallet_amount_used, bank_amount_due, status, payment_status
		FROM customer_orders
		WHERE status NOT IN ('delivered', 'cancelled', 'rejected')
		   OR updated_at > NOW() - INTERVAL '7 days'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.OrderNumber, &o.CustomerID, &o.TotalAmount, &o.PaymentMethod,
			&o.WalletAmountUsed, &o.BankAmountDue, &o.Status, &o.PaymentStatus,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

func (r *repository) FixPaymentStatus(ctx context.Context, orderNumber string, from, to order.PaymentStatus) error {
	log := logger.FromCtx(ctx).With(zap.String("order_number", orderNumber))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback drift fix", zap.Error(rbErr))
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE customer_orders
		SET payment_status = $1, updated_at = NOW()
		WHERE order_number = $2 AND payment_status = $3
	`, to, orderNumber, from)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		// the order changed underneath the audit, skip it this round
		return order.ErrOrderNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_change_log (order_number, old_status, new_status, changed_by)
		VALUES ($1, $2, $3, 'sync_monitor')
	`, orderNumber, "payment:"+string(from), "payment:"+string(to))
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	log.Info("payment status drift corrected",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}
