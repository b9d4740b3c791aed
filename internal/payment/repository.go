package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Repository interface {
	SavePayment(ctx context.Context, p *Payment) error
	UpdatePaymentStatus(ctx context.Context, orderNumber string, status Status) error
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Payment, error)

	// SaveCallback records an incoming gateway callback idempotently; the
	// second delivery of the same event reports isDuplicate.
	SaveCallback(ctx context.Context, eventID, orderNumber string, payload json.RawMessage) (callbackID int64, isDuplicate bool, err error)
	MarkCallbackProcessed(ctx context.Context, callbackID int64) error
	MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, p *Payment) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO bank_payments (
			order_number, credit_application_id, redirect_url, amount, currency, status
		) VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`,
		p.OrderNumber, p.CreditApplicationID, p.RedirectURL, p.Amount, p.Currency, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, orderNumber string, status Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bank_payments SET status = $1, updated_at = NOW() WHERE order_number = $2
	`, status, orderNumber)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*Payment, error) {
	var p Payment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_number, credit_application_id, redirect_url, amount, currency, status, created_at, updated_at
		FROM bank_payments
		WHERE order_number = $1
	`, orderNumber).Scan(
		&p.ID, &p.OrderNumber, &p.CreditApplicationID, &p.RedirectURL,
		&p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) SaveCallback(ctx context.Context, eventID, orderNumber string, payload json.RawMessage) (int64, bool, error) {
	const q = `
	INSERT INTO payment_callbacks (provider, event_id, order_number, payload)
	VALUES ('TBI', $1, $2, $3)
	ON CONFLICT (provider, event_id)
	DO NOTHING
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q, eventID, orderNumber, payload).Scan(&id)
	if err != nil {
		// Duplicate callback, idempotent success
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkCallbackProcessed(ctx context.Context, callbackID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_callbacks SET processed_at = NOW() WHERE id = $1
	`, callbackID)
	return err
}

func (r *repository) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_callbacks SET process_error = $2 WHERE id = $1
	`, callbackID, reason)
	return err
}
