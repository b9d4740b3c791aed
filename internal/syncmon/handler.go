package syncmon

import (
	"net/http"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/utils"

	"go.uber.org/zap"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("sync report failed", zap.Error(err))
		utils.WriteJSONError(w, "failed to build sync report", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) PreventDrift(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PreventDrift(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("drift prevention failed", zap.Error(err))
		utils.WriteJSONError(w, "drift prevention failed", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}
