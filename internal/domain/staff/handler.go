package staff

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/loyaltyhub/points-api/internal/middleware"
	"github.com/loyaltyhub/points-api/internal/pkg/response"
	"github.com/loyaltyhub/points-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

type verifyPINRequest struct {
	PIN string `json:"pin" validate:"required,max=12"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// VerifyPIN lets staff tooling pre-check a PIN before submitting a
// gated action. The result is only a boolean; no reason is leaked.
func (h *Handler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.GetStaffID(r.Context())
	if staffID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req verifyPINRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	valid := h.svc.VerifyPIN(r.Context(), staffID, req.PIN)
	response.OK(w, map[string]bool{"valid": valid})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/verify-pin", h.VerifyPIN)
	return r
}
