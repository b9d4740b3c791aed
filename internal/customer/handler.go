package customer

import (
	"encoding/json"
	"errors"
	"net/http"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/utils"

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

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteJSONError(w, "invalid registration details", http.StatusBadRequest)
		return
	}

	c, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			utils.WriteJSONError(w, "email already registered", http.StatusConflict)
			return
		}
		logger.FromCtx(r.Context()).Error("registration failed", zap.Error(err))
		utils.WriteJSONError(w, "registration failed", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, c)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteJSONError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	token, c, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			utils.WriteJSONError(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		logger.FromCtx(r.Context()).Error("login failed", zap.Error(err))
		utils.WriteJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"customer": c,
	})
}
