package ledger

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/domain/audit"
	"github.com/loyaltyhub/points-api/internal/middleware"
	"github.com/loyaltyhub/points-api/internal/pkg/response"
	"github.com/loyaltyhub/points-api/internal/pkg/validator"
)

// Earns above this many points require staff PIN confirmation.
const pinRequiredAbove = 500

// PINVerifier confirms a staff PIN before large earns.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, staffID uuid.UUID, pin string) bool
}

// VelocityChecker flags anomalous earning velocity. Advisory: the
// handler records the flag but does not block the earn.
type VelocityChecker interface {
	CheckVelocity(ctx context.Context, tenantID, accountID uuid.UUID, incomingPoints int64) (bool, error)
}

type Handler struct {
	svc      *Service
	pins     PINVerifier
	velocity VelocityChecker
	audit    audit.Recorder
}

func NewHandler(svc *Service, pins PINVerifier, velocity VelocityChecker, auditor audit.Recorder) *Handler {
	return &Handler{svc: svc, pins: pins, velocity: velocity, audit: auditor}
}

func (h *Handler) Earn(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	staffID := middleware.GetStaffID(r.Context())
	if tenantID == uuid.Nil || staffID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req EarnRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if req.Points > pinRequiredAbove {
		if !h.pins.VerifyPIN(r.Context(), staffID, req.PIN) {
			h.audit.Record(r.Context(), tenantID, &staffID, audit.ActionPINRejected, map[string]interface{}{
				"points": req.Points,
				"phone":  req.Phone,
			})
			response.Error(w, http.StatusForbidden, "PERMISSION_DENIED", "PIN confirmation required for large earns")
			return
		}
	}

	acc, err := h.svc.EnsureAccount(r.Context(), tenantID, req.Phone)
	if err != nil {
		response.InternalError(w)
		return
	}

	flagged, err := h.velocity.CheckVelocity(r.Context(), tenantID, acc.ID, req.Points)
	if err != nil {
		// Advisory check only; a detector failure never blocks an earn.
		log.Warn().Err(err).Str("account_id", acc.ID.String()).Msg("velocity check failed")
	}

	entry, err := h.svc.Earn(r.Context(), acc.ID, req.Points, req.Description, req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.Error(w, http.StatusBadRequest, "INVALID_AMOUNT", "points must be greater than zero")
		case errors.Is(err, ErrIdempotencyConflict):
			response.Conflict(w, "IDEMPOTENCY_CONFLICT", "idempotency key already used with a different amount")
		default:
			response.InternalError(w)
		}
		return
	}

	acc, err = h.svc.GetAccountByPhone(r.Context(), tenantID, req.Phone)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, EarnResponse{
		Entry:          entry,
		Balance:        acc.PointsBalance,
		AnomalyFlagged: flagged,
	})
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.accountFromQuery(w, r)
	if !ok {
		return
	}
	response.OK(w, BalanceResponse{
		Phone:          acc.Phone,
		PointsBalance:  acc.PointsBalance,
		LifetimePoints: acc.LifetimePoints,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.accountFromQuery(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.svc.History(r.Context(), acc.ID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"entries": entries})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.accountFromQuery(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.Reconcile(r.Context(), acc.ID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, rec)
}

func (h *Handler) accountFromQuery(w http.ResponseWriter, r *http.Request) (*Account, bool) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return nil, false
	}

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		response.BadRequest(w, "phone query parameter is required")
		return nil, false
	}

	acc, err := h.svc.GetAccountByPhone(r.Context(), tenantID, phone)
	if errors.Is(err, ErrAccountNotFound) {
		response.NotFound(w, "account not found")
		return nil, false
	}
	if err != nil {
		response.InternalError(w)
		return nil, false
	}
	return acc, true
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/earn", h.Earn)
	r.Get("/balance", h.Balance)
	r.Get("/history", h.History)
	r.Get("/reconcile", h.Reconcile)
	return r
}
