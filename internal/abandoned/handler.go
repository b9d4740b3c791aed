package abandoned

import (
	"encoding/json"
	"net/http"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/order"
	"chemshop-be/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	repo     Repository
	validate *validator.Validate
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo, validate: validator.New()}
}

type trackRequest struct {
	OrderNumber  string          `json:"order_number" validate:"required"`
	TotalAmount  int64           `json:"total_amount" validate:"required,gt=0"`
	WalletAmount int64           `json:"wallet_amount" validate:"gte=0"`
	BankAmount   int64           `json:"bank_amount" validate:"gte=0"`
	CartSnapshot json.RawMessage `json:"cart_snapshot"`
	Reason       string          `json:"reason"`
}

// Track records a hybrid checkout the customer abandoned at the bank redirect.
// The write is the durable part; the dispatcher publishes it later.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	customerID, ok := utils.GetCustomerIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil || !order.ValidOrderNumber(req.OrderNumber) {
		utils.WriteJSONError(w, "invalid abandonment payload", http.StatusBadRequest)
		return
	}
	if req.WalletAmount+req.BankAmount != req.TotalAmount {
		utils.WriteJSONError(w, "amounts do not add up", http.StatusBadRequest)
		return
	}

	c := &Checkout{
		OrderNumber:   req.OrderNumber,
		CustomerID:    customerID,
		CustomerEmail: utils.GetCustomerEmailFromContext(r.Context()),
		TotalAmount:   req.TotalAmount,
		WalletAmount:  req.WalletAmount,
		BankAmount:    req.BankAmount,
		Currency:      "IQD",
		CartSnapshot:  req.CartSnapshot,
		Reason:        req.Reason,
	}

	if err := h.repo.Save(r.Context(), c); err != nil {
		logger.FromCtx(r.Context()).Error("failed to record abandoned checkout",
			zap.String("order_number", req.OrderNumber), zap.Error(err))
		utils.WriteJSONError(w, "failed to record abandonment", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]any{"id": c.ID})
}
