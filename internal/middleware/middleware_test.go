package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chemshop-be/internal/customer"
	"chemshop-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"
)

func okHandler(gotID *int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotID != nil {
			if id, ok := utils.GetCustomerIDFromContext(r.Context()); ok {
				*gotID = id
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	secret := "test-secret"

	t.Run("ValidToken", func(t *testing.T) {
		token, err := customer.GenerateToken(secret, &customer.Customer{ID: 42, Email: "c@example.com", Role: customer.RoleCustomer})
		require.NoError(t, err)

		var gotID int64
		handler := Auth(secret)(okHandler(&gotID))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), gotID)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		handler := Auth(secret)(okHandler(nil))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		handler := Auth(secret)(okHandler(nil))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Run("AdminPasses", func(t *testing.T) {
		handler := RequireAdmin(okHandler(nil))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(utils.SetCustomerContext(req.Context(), 1, "a@example.com", customer.RoleAdmin))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("CustomerBlocked", func(t *testing.T) {
		handler := RequireAdmin(okHandler(nil))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(utils.SetCustomerContext(req.Context(), 2, "c@example.com", customer.RoleCustomer))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(Tier{Rate: rate.Limit(1), Burst: 2})
	handler := l.Middleware(okHandler(nil))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusOK, send())
	// burst exhausted
	assert.Equal(t, http.StatusTooManyRequests, send())

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
