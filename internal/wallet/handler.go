package wallet

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
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	wlt, txns, err := h.svc.Summary(r.Context(), customerID)
	if err != nil {
		writeWalletError(w, r, err, "failed to load wallet")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"balance":             wlt.Balance,
		"credit_limit":        wlt.CreditLimit,
		"currency":            wlt.Currency,
		"status":              wlt.Status,
		"recent_transactions": txns,
	})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	_, txns, err := h.svc.Summary(r.Context(), customerID)
	if err != nil {
		writeWalletError(w, r, err, "failed to load transactions")
		return
	}
	if len(txns) > limit {
		txns = txns[:limit]
	}

	utils.WriteJSON(w, http.StatusOK, txns)
}

type rechargeRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) RequestRecharge(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req rechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteJSONError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	rc, err := h.svc.RequestRecharge(r.Context(), customerID, req.Amount)
	if err != nil {
		writeWalletError(w, r, err, "failed to file recharge request")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, rc)
}

func (h *Handler) ListPendingRecharges(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.PendingRecharges(r.Context())
	if err != nil {
		writeWalletError(w, r, err, "failed to list recharge requests")
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}

func (h *Handler) ApproveRecharge(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteJSONError(w, "invalid request id", http.StatusBadRequest)
		return
	}

	adminID, _ := utils.GetCustomerIDFromContext(r.Context())

	txn, err := h.svc.ApproveRecharge(r.Context(), requestID, adminID)
	if err != nil {
		writeWalletError(w, r, err, "failed to approve recharge")
		return
	}

	utils.WriteJSON(w, http.StatusOK, txn)
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) RejectRecharge(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteJSONError(w, "invalid request id", http.StatusBadRequest)
		return
	}

	var req rejectRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	adminID, _ := utils.GetCustomerIDFromContext(r.Context())

	if err := h.svc.RejectRecharge(r.Context(), requestID, adminID, req.Notes); err != nil {
		writeWalletError(w, r, err, "failed to reject recharge")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"result": "rejected"})
}

func writeWalletError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrWalletNotFound):
		utils.WriteJSONError(w, "wallet not found", http.StatusNotFound)
	case errors.Is(err, ErrRechargeNotFound):
		utils.WriteJSONError(w, "recharge request not found", http.StatusNotFound)
	case errors.Is(err, ErrRechargeNotPending):
		utils.WriteJSONError(w, "recharge request already processed", http.StatusConflict)
	case errors.Is(err, ErrInvalidAmount):
		utils.WriteJSONError(w, "amount must be positive", http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientFunds):
		utils.WriteJSONError(w, "insufficient funds", http.StatusPaymentRequired)
	default:
		logger.FromCtx(r.Context()).Error(fallback, zap.Error(err))
		utils.WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}
