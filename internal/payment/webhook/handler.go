package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/order"
	"chemshop-be/internal/payment"
	"chemshop-be/internal/utils"

	"go.uber.org/zap"
)

// Handler receives TBI payment callbacks. Every delivery is persisted first,
// duplicates acknowledged without reprocessing, and only then is the order
// moved. The bank retries on non-2xx, so a processing failure answers 500.
type Handler struct {
	payments payment.Repository
	orders   order.Service
}

func NewHandler(payments payment.Repository, orders order.Service) *Handler {
	return &Handler{payments: payments, orders: orders}
}

type callbackPayload struct {
	EventID             string `json:"eventId"`
	OrderID             string `json:"orderId"`
	CreditApplicationID string `json:"creditApplicationId"`
	Status              string `json:"status"`
	TransactionID       string `json:"transactionId"`
	Amount              int64  `json:"amount"`
	ErrorMessage        string `json:"errorMessage"`
}

func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		utils.WriteJSONError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var cb callbackPayload
	if err := json.Unmarshal(body, &cb); err != nil {
		log.Warn("unparseable payment callback", zap.Error(err))
		utils.WriteJSONError(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if cb.OrderID == "" || !order.ValidOrderNumber(cb.OrderID) {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	// Some TBI environments omit eventId; fall back to a deterministic key so
	// replays of the same status still dedupe.
	eventID := cb.EventID
	if eventID == "" {
		eventID = fmt.Sprintf("%s:%s:%s", cb.OrderID, cb.Status, cb.TransactionID)
	}

	log = log.With(
		zap.String("order_number", cb.OrderID),
		zap.String("event_id", eventID),
		zap.String("vendor_status", cb.Status),
	)

	callbackID, duplicate, err := h.payments.SaveCallback(ctx, eventID, cb.OrderID, body)
	if err != nil {
		log.Error("failed to persist payment callback", zap.Error(err))
		utils.WriteJSONError(w, "failed to persist callback", http.StatusInternalServerError)
		return
	}
	if duplicate {
		log.Info("duplicate payment callback acknowledged")
		utils.WriteJSON(w, http.StatusOK, map[string]string{"result": "duplicate"})
		return
	}

	if err := h.apply(r, cb); err != nil {
		log.Error("payment callback processing failed", zap.Error(err))
		if mErr := h.payments.MarkCallbackFailed(ctx, callbackID, err.Error()); mErr != nil {
			log.Error("failed to mark callback failed", zap.Error(mErr))
		}
		utils.WriteJSONError(w, "callback processing failed", http.StatusInternalServerError)
		return
	}

	if err := h.payments.MarkCallbackProcessed(ctx, callbackID); err != nil {
		log.Error("failed to mark callback processed", zap.Error(err))
	}

	log.Info("payment callback processed")
	utils.WriteJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *Handler) apply(r *http.Request, cb callbackPayload) error {
	ctx := r.Context()

	switch payment.MapVendorStatus(cb.Status) {
	case payment.StatusCompleted:
		return h.orders.MarkBankPaid(ctx, cb.OrderID)
	case payment.StatusFailed:
		return h.orders.MarkBankFailed(ctx, cb.OrderID)
	case payment.StatusCancelled:
		if err := h.payments.UpdatePaymentStatus(ctx, cb.OrderID, payment.StatusCancelled); err != nil && !errors.Is(err, payment.ErrPaymentNotFound) {
			return err
		}
		return nil
	default:
		// still pending at the bank, nothing to move yet
		return nil
	}
}
