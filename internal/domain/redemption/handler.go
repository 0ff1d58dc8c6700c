package redemption

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/domain/ledger"
	"github.com/loyaltyhub/points-api/internal/middleware"
	"github.com/loyaltyhub/points-api/internal/pkg/ratelimit"
	"github.com/loyaltyhub/points-api/internal/pkg/response"
	"github.com/loyaltyhub/points-api/internal/pkg/validator"
)

// LimiterConfig holds the token-bucket knobs for redemption endpoints.
type LimiterConfig struct {
	Capacity     float64
	RefillPerSec float64
}

type Handler struct {
	svc     *Service
	limiter *ratelimit.Limiter
	limits  LimiterConfig
}

func NewHandler(svc *Service, limiter *ratelimit.Limiter, limits LimiterConfig) *Handler {
	return &Handler{svc: svc, limiter: limiter, limits: limits}
}

// allowStaff rate-limits redemption actions per staff member. These
// endpoints fail closed: if the limiter backend is unreachable the
// request is denied.
func (h *Handler) allowStaff(w http.ResponseWriter, r *http.Request, staffID uuid.UUID) bool {
	key := "redeem:" + staffID.String()
	allowed, err := h.limiter.Allow(r.Context(), key, 1, h.limits.Capacity, h.limits.RefillPerSec)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("rate limiter unavailable, failing closed")
	}
	if !ratelimit.Decide(allowed, err, ratelimit.FailClosed) {
		response.TooManyRequests(w)
		return false
	}
	return true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	rewardID, err := uuid.Parse(req.RewardID)
	if err != nil {
		response.BadRequest(w, "invalid reward_id")
		return
	}

	red, err := h.svc.Create(r.Context(), tenantID, req.Phone, rewardID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrAccountNotFound):
			response.NotFound(w, "account not found")
		case errors.Is(err, ErrRewardNotFound):
			response.NotFound(w, "reward not found")
		case errors.Is(err, ErrAlreadyPending):
			response.Conflict(w, "ALREADY_PENDING", "member already has an open redemption")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, red)
}

func (h *Handler) IssueOTP(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.GetStaffID(r.Context())
	if staffID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	if !h.allowStaff(w, r, staffID) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid redemption id")
		return
	}

	code, expiresAt, err := h.svc.IssueOTP(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "redemption not found")
		case errors.Is(err, ErrNotPending):
			response.Conflict(w, "NOT_PENDING", "redemption is not pending")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, IssueOTPResponse{Code: code, ExpiresAt: expiresAt.Format(time.RFC3339)})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	staffID := middleware.GetStaffID(r.Context())
	if tenantID == uuid.Nil || staffID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	if !h.allowStaff(w, r, staffID) {
		return
	}

	var req CompleteRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.svc.Complete(r.Context(), tenantID, req.Phone, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidOrExpiredOTP):
			response.Error(w, http.StatusUnprocessableEntity, "INVALID_OR_EXPIRED_OTP", "invalid or expired code")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			response.Conflict(w, "INSUFFICIENT_BALANCE", "insufficient point balance")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.GetStaffID(r.Context())
	role := middleware.GetRole(r.Context())
	if staffID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid redemption id")
		return
	}

	var req VoidRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.svc.Void(r.Context(), id, req.VoidReason, staffID, role)
	if err != nil {
		switch {
		case errors.Is(err, ErrPermissionDenied):
			response.Error(w, http.StatusForbidden, "PERMISSION_DENIED", "role not permitted to void redemptions")
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "redemption not found")
		case errors.Is(err, ErrNotVoidable):
			response.Conflict(w, "NOT_VOIDABLE", "only completed redemptions can be voided")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	rewards, err := h.svc.ListRewards(r.Context(), tenantID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"rewards": rewards})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Post("/{id}/otp", h.IssueOTP)
	r.Post("/complete", h.Complete)
	r.With(middleware.RequireManager()).Post("/{id}/void", h.Void)
	return r
}
