package customer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Customer) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (email, password_hash, name, phone, role, status)
		VALUES ($1,$2,$3,$4,$5,'active')
		RETURNING id, created_at
	`, c.Email, c.PasswordHash, c.Name, c.Phone, c.Role).Scan(&c.ID, &c.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	return r.get(ctx, `WHERE email = $1`, email)
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Customer, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *repository) get(ctx context.Context, where string, arg any) (*Customer, error) {
	var c Customer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, phone, role, status, created_at
		FROM customers `+where,
		arg,
	).Scan(&c.ID, &c.Email, &c.PasswordHash, &c.Name, &c.Phone, &c.Role, &c.Status, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}
