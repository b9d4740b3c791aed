package order

import (
	"net/http"
	"strings"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/storage"
	"chemshop-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxReceiptSize = 10 << 20 // 10 MiB

// ReceiptHandler accepts bank transfer receipt images for bank_receipt orders
// and stores them in object storage.
type ReceiptHandler struct {
	svc      Service
	uploader storage.Uploader
}

func NewReceiptHandler(svc Service, uploader storage.Uploader) *ReceiptHandler {
	return &ReceiptHandler{svc: svc, uploader: uploader}
}

func (h *ReceiptHandler) Upload(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	if !ValidOrderNumber(orderNumber) {
		utils.WriteJSONError(w, "invalid order number", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		utils.WriteJSONError(w, "receipt file too large", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		utils.WriteJSONError(w, "receipt file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		utils.WriteJSONError(w, "receipt must be an image or PDF", http.StatusUnsupportedMediaType)
		return
	}

	url, key, err := h.uploader.UploadPublicFile(r.Context(), "receipts", header.Filename, file, contentType)
	if err != nil {
		logger.FromCtx(r.Context()).Error("receipt upload failed",
			zap.String("order_number", orderNumber), zap.Error(err))
		utils.WriteJSONError(w, "failed to store receipt", http.StatusInternalServerError)
		return
	}

	if err := h.svc.AttachReceipt(r.Context(), orderNumber, url); err != nil {
		writeOrderError(w, r, err, "failed to attach receipt")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"order_number": orderNumber,
		"receipt_url":  url,
		"key":          key,
	})
}
