package product

import (
	"context"
	"database/sql"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	GetForCheckout(ctx context.Context, productID int64) (*Product, error)
	HasStock(ctx context.Context, productID int64, qty int) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetForCheckout(ctx context.Context, productID int64) (*Product, error) {
	query := `
		SELECT id, sku, name, unit_price, unit, stock, status
		FROM shop_products
		WHERE id = $1 AND status = 'active'
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.Unit, &p.Stock, &p.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) HasStock(ctx context.Context, productID int64, qty int) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT stock >= $1 FROM shop_products WHERE id = $2
	`, qty, productID).Scan(&ok)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrProductNotFound
	}
	return ok, err
}
