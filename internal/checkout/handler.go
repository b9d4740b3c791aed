package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/product"
	"chemshop-be/internal/utils"
	"chemshop-be/internal/wallet"

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

type optionsRequest struct {
	Items        []ItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingCost int64       `json:"shipping_cost" validate:"gte=0"`
}

func (h *Handler) PaymentOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteJSONError(w, "invalid cart", http.StatusBadRequest)
		return
	}

	opts, err := h.svc.PaymentOptions(r.Context(), req.Items, req.ShippingCost)
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, opts)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var input SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		utils.WriteJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	input.IdempotencyKey = r.Header.Get("Idempotency-Key")

	res, err := h.svc.Submit(r.Context(), input)
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}

	utils.WriteJSON(w, code, map[string]any{
		"order_number":       res.Order.OrderNumber,
		"total_amount":       res.Order.TotalAmount,
		"currency":           res.Order.Currency,
		"payment_method":     res.Order.PaymentMethod,
		"wallet_amount_used": res.Order.WalletAmountUsed,
		"bank_amount_due":    res.Order.BankAmountDue,
		"status":             res.Order.Status,
		"payment_status":     res.Order.PaymentStatus,
		"redirect_url":       res.RedirectURL,
	})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "invalid field: " + verrs[0].Namespace()
	}
	return "invalid request"
}

func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, ErrEmptyCart):
		utils.WriteJSONError(w, "cart is empty", http.StatusBadRequest)
	case errors.Is(err, ErrWalletUnused):
		utils.WriteJSONError(w, "wallet balance is empty", http.StatusBadRequest)
	case errors.Is(err, ErrOutOfStock):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, product.ErrProductNotFound):
		utils.WriteJSONError(w, "product not available", http.StatusNotFound)
	case errors.Is(err, wallet.ErrInsufficientFunds):
		utils.WriteJSONError(w, "insufficient wallet funds", http.StatusPaymentRequired)
	default:
		logger.FromCtx(r.Context()).Error("checkout failed", zap.Error(err))
		utils.WriteJSONError(w, "checkout failed", http.StatusInternalServerError)
	}
}
