package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"chemshop-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByStatuses(ctx context.Context, statuses []OrderStatus, limit, page int32) ([]Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, page int32) ([]Order, error)
	UpdateStatus(ctx context.Context, orderNumber string, from, to OrderStatus, paymentStatus PaymentStatus, changedBy string) error
	SetReceiptURL(ctx context.Context, orderNumber, url string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, order_number, customer_id, total_amount, currency, payment_method,
	wallet_amount_used, bank_amount_due, status, payment_status,
	shipping_address, receipt_url, created_at, updated_at
`

func scanOrder(row interface {
	Scan(dest ...any) error
}) (*Order, error) {
	var o Order
	var addr []byte

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount, &o.Currency, &o.PaymentMethod,
		&o.WalletAmountUsed, &o.BankAmountDue, &o.Status, &o.PaymentStatus,
		&addr, &o.ReceiptURL, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}

	return &o, nil
}

func (r *repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM customer_orders WHERE order_number = $1`, orderNumber)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
	`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.Unit, &item.UnitPrice, &item.LineTotal,
		); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	return o, rows.Err()
}

func (r *repository) ListByStatuses(ctx context.Context, statuses []OrderStatus, limit, page int32) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT ` + orderColumns + ` FROM customer_orders WHERE 1=1`
	args := []any{}
	argIndex := 1

	if len(statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", argIndex)
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		args = append(args, pq.Array(strs))
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	return r.listOrders(ctx, query, args...)
}

func (r *repository) ListByCustomer(ctx context.Context, customerID int64, limit, page int32) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT ` + orderColumns + `
		FROM customer_orders
		WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	return r.listOrders(ctx, query, customerID, limit, offset)
}

func (r *repository) listOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}

	return orders, rows.Err()
}

// UpdateStatus writes the new status pair guarded by the expected current
// status, and records the change in status_change_log in the same
// transaction. A zero rows-affected result means the order moved underneath
// the caller.
func (r *repository) UpdateStatus(ctx context.Context, orderNumber string, from, to OrderStatus, paymentStatus PaymentStatus, changedBy string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("order_number", orderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback status update", zap.Error(rbErr))
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE customer_orders
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE order_number = $3 AND status = $4
	`, to, paymentStatus, orderNumber, from)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_change_log (order_number, old_status, new_status, changed_by)
		VALUES ($1, $2, $3, $4)
	`, orderNumber, from, to, changedBy)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	log.Info("order status updated", zap.String("changed_by", changedBy))
	return nil
}

func (r *repository) SetReceiptURL(ctx context.Context, orderNumber, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customer_orders
		SET receipt_url = $1, updated_at = NOW()
		WHERE order_number = $2
	`, url, orderNumber)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}
