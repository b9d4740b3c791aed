package product

import "time"

// Product is the slice of the catalog the order flow needs: price, unit and
// stock. The full catalog lives in the storefront service.
type Product struct {
	ID        int64
	SKU       string
	Name      string
	UnitPrice int64
	Unit      string
	Stock     int
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)
