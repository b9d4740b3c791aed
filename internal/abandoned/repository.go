package abandoned

import (
	"context"
	"database/sql"
)

type Repository interface {
	// Save is the durable outbox write; publication happens asynchronously.
	Save(ctx context.Context, c *Checkout) error

	ListUndelivered(ctx context.Context, limit int) ([]Checkout, error)
	MarkDelivered(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, c *Checkout) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO abandoned_checkouts (
			order_number, customer_id, customer_email, total_amount,
			wallet_amount, bank_amount, currency, cart_snapshot, reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at
	`,
		c.OrderNumber, c.CustomerID, c.CustomerEmail, c.TotalAmount,
		c.WalletAmount, c.BankAmount, c.Currency, c.CartSnapshot, c.Reason,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *repository) ListUndelivered(ctx context.Context, limit int) ([]Checkout, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_number, customer_id, customer_email, total_amount,
		       wallet_amount, bank_amount, currency, cart_snapshot, reason, created_at
		FROM abandoned_checkouts
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Checkout
	for rows.Next() {
		var c Checkout
		if err := rows.Scan(
			&c.ID, &c.OrderNumber, &c.CustomerID, &c.CustomerEmail, &c.TotalAmount,
			&c.WalletAmount, &c.BankAmount, &c.Currency, &c.CartSnapshot, &c.Reason, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *repository) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE abandoned_checkouts SET delivered_at = NOW() WHERE id = $1
	`, id)
	return err
}
