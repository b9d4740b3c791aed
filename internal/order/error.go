package order

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrOrderNotCancelable = errors.New("order can no longer be cancelled")
	ErrForbidden          = errors.New("cannot access another customer's order")
)
