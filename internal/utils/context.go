package utils

import "context"

type ctxKey string

const (
	customerIDKey    ctxKey = "customer_id"
	customerEmailKey ctxKey = "email"
	customerRoleKey  ctxKey = "role"
)

func SetCustomerContext(ctx context.Context, customerID int64, email, role string) context.Context {
	ctx = context.WithValue(ctx, customerIDKey, customerID)
	ctx = context.WithValue(ctx, customerEmailKey, email)
	return context.WithValue(ctx, customerRoleKey, role)
}

func GetCustomerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(customerIDKey).(int64)
	return id, ok
}

func GetCustomerEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(customerEmailKey).(string)
	return email
}

func GetCustomerRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(customerRoleKey).(string)
	return role
}
