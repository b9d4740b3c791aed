package middleware

import (
	"net/http"
	"strings"

	"chemshop-be/internal/customer"
	"chemshop-be/internal/utils"
)

// Auth validates the bearer token and stores the customer identity in the
// request context.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := customer.ParseToken(jwtSecret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := utils.SetCustomerContext(r.Context(), claims.CustomerID, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin sits behind Auth and gates the admin surface.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if utils.GetCustomerRoleFromContext(r.Context()) != customer.RoleAdmin {
			utils.WriteJSONError(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
