package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	svc      Service
	validate *validator.Validate
}

func NewHandler(svc Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func parsePaging(r *http.Request) (limit, page int32) {
	limit, page = 20, 1
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = int32(v)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = int32(v)
	}
	return limit, page
}

type orderResponse struct {
	OrderNumber      string        `json:"order_number"`
	TotalAmount      int64         `json:"total_amount"`
	Currency         string        `json:"currency"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	WalletAmountUsed int64         `json:"wallet_amount_used"`
	BankAmountDue    int64         `json:"bank_amount_due"`
	Status           OrderStatus   `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	ShippingAddress  Address       `json:"shipping_address"`
	Items            []itemView    `json:"items,omitempty"`
	ReceiptURL       *string       `json:"receipt_url,omitempty"`
	CreatedAt        string        `json:"created_at"`
}

type itemView struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

func toOrderResponse(o *Order) orderResponse {
	resp := orderResponse{
		OrderNumber:      o.OrderNumber,
		TotalAmount:      o.TotalAmount,
		Currency:         o.Currency,
		PaymentMethod:    o.PaymentMethod,
		WalletAmountUsed: o.WalletAmountUsed,
		BankAmountDue:    o.BankAmountDue,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		ShippingAddress:  o.ShippingAddress,
		ReceiptURL:       o.ReceiptURL,
		CreatedAt:        o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, itemView{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return resp
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	if !ValidOrderNumber(orderNumber) {
		utils.WriteJSONError(w, "invalid order number", http.StatusBadRequest)
		return
	}

	o, err := h.svc.GetOrder(r.Context(), orderNumber)
	if err != nil {
		writeOrderError(w, r, err, "failed to load order")
		return
	}

	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	limit, page := parsePaging(r)

	orders, err := h.svc.ListCustomerOrders(r.Context(), limit, page)
	if err != nil {
		writeOrderError(w, r, err, "failed to list orders")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListDepartmentOrders(w http.ResponseWriter, r *http.Request) {
	limit, page := parsePaging(r)
	department := r.URL.Query().Get("department")

	orders, err := h.svc.ListDepartmentOrders(r.Context(), department, limit, page)
	if err != nil {
		writeOrderError(w, r, err, "failed to list orders")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteJSONError(w, "status is required", http.StatusBadRequest)
		return
	}

	changedBy := utils.GetCustomerEmailFromContext(r.Context())
	if changedBy == "" {
		changedBy = "admin"
	}

	err := h.svc.UpdateStatus(r.Context(), orderNumber, OrderStatus(req.Status), changedBy)
	if err != nil {
		writeOrderError(w, r, err, "failed to update order status")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"order_number": orderNumber,
		"status":       req.Status,
	})
}

type cancelPaymentRequest struct {
	OrderNumber string `json:"order_number" validate:"required"`
}

func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req cancelPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil || !ValidOrderNumber(req.OrderNumber) {
		utils.WriteJSONError(w, "invalid order number", http.StatusBadRequest)
		return
	}

	o, err := h.svc.CancelPayment(r.Context(), req.OrderNumber)
	if err != nil {
		writeOrderError(w, r, err, "failed to cancel payment")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"order_number":    o.OrderNumber,
		"status":          o.Status,
		"payment_status":  o.PaymentStatus,
		"wallet_refunded": o.WalletAmountUsed,
	})
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	if !ValidOrderNumber(orderNumber) {
		utils.WriteJSONError(w, "invalid order number", http.StatusBadRequest)
		return
	}

	res, err := h.svc.PaymentStatus(r.Context(), orderNumber)
	if err != nil {
		writeOrderError(w, r, err, "failed to fetch payment status")
		return
	}

	utils.WriteJSON(w, http.StatusOK, res)
}

func writeOrderError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		utils.WriteJSONError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrOrderNotCancelable):
		utils.WriteJSONError(w, "order can no longer be cancelled", http.StatusConflict)
	case errors.Is(err, ErrInvalidTransition):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	default:
		logger.FromCtx(r.Context()).Error(fallback, zap.Error(err))
		utils.WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}
