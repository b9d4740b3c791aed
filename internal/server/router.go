package server

import (
	"net/http"

	"chemshop-be/internal/abandoned"
	"chemshop-be/internal/checkout"
	"chemshop-be/internal/customer"
	"chemshop-be/internal/logger"
	"chemshop-be/internal/middleware"
	"chemshop-be/internal/order"
	"chemshop-be/internal/payment/webhook"
	"chemshop-be/internal/syncmon"
	"chemshop-be/internal/utils"
	"chemshop-be/internal/wallet"

	"github.com/go-chi/chi/v5"
)

// Handlers collects every HTTP handler the router mounts.
type Handlers struct {
	Customer  *customer.Handler
	Checkout  *checkout.Handler
	Order     *order.Handler
	Receipt   *order.ReceiptHandler
	Wallet    *wallet.Handler
	Webhook   *webhook.Handler
	Abandoned *abandoned.Handler
	Sync      *syncmon.Handler
}

// NewRouter wires the API surface. Payment-touching routes sit behind the
// strict rate limit tier; the callback route is unauthenticated because the
// bank signs in with its own event ids, not our JWTs.
func NewRouter(h Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)

	defaultLimit := middleware.NewLimiter(middleware.TierDefault)
	strictLimit := middleware.NewLimiter(middleware.TierStrict)
	auth := middleware.Auth(jwtSecret)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// public
		r.Group(func(r chi.Router) {
			r.Use(defaultLimit.Middleware)
			r.Post("/auth/register", h.Customer.Register)
			r.Post("/auth/login", h.Customer.Login)
		})

		// bank callback, no JWT
		r.Group(func(r chi.Router) {
			r.Use(strictLimit.Middleware)
			r.Post("/payment/callback", h.Webhook.HandleCallback)
		})

		// customer surface
		r.Group(func(r chi.Router) {
			r.Use(defaultLimit.Middleware)
			r.Use(auth)

			r.Get("/orders", h.Order.ListMyOrders)
			r.Get("/orders/{orderNumber}", h.Order.GetOrder)
			r.Post("/orders/{orderNumber}/receipt", h.Receipt.Upload)

			r.Get("/wallet", h.Wallet.Summary)
			r.Get("/wallet/transactions", h.Wallet.Transactions)
			r.Post("/wallet/recharge", h.Wallet.RequestRecharge)
		})

		// payment-moving routes, strict tier
		r.Group(func(r chi.Router) {
			r.Use(strictLimit.Middleware)
			r.Use(auth)

			r.Post("/checkout/options", h.Checkout.PaymentOptions)
			r.Post("/checkout", h.Checkout.Submit)
			r.Post("/payment/cancel", h.Order.CancelPayment)
			r.Get("/payment/status/{orderNumber}", h.Order.PaymentStatus)
			r.Post("/abandoned-orders/hybrid-payment", h.Abandoned.Track)
		})

		// admin surface
		r.Group(func(r chi.Router) {
			r.Use(defaultLimit.Middleware)
			r.Use(auth)
			r.Use(middleware.RequireAdmin)

			r.Get("/admin/orders", h.Order.ListDepartmentOrders)
			r.Patch("/admin/orders/{orderNumber}/status", h.Order.UpdateStatus)
			r.Get("/orders/sync-monitor", h.Sync.Report)
			r.Post("/orders/prevent-drift", h.Sync.PreventDrift)
			r.Get("/admin/recharges", h.Wallet.ListPendingRecharges)
			r.Post("/admin/recharges/{id}/approve", h.Wallet.ApproveRecharge)
			r.Post("/admin/recharges/{id}/reject", h.Wallet.RejectRecharge)
		})
	})

	return r
}
