package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/pkg/response"
	"github.com/loyaltyhub/points-api/internal/pkg/signature"
)

// SignatureHeader carries the provider's HMAC-SHA256 over the raw body.
const SignatureHeader = "X-Signature-256"

type Handler struct {
	svc         *Service
	appSecret   string
	verifyToken string
}

func NewHandler(svc *Service, appSecret, verifyToken string) *Handler {
	return &Handler{svc: svc, appSecret: appSecret, verifyToken: verifyToken}
}

// Verify answers the provider's subscription handshake: echo the
// challenge only when the configured verify token matches.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("verify_token")
	challenge := r.URL.Query().Get("challenge")

	if h.verifyToken == "" || token != h.verifyToken {
		response.Forbidden(w, "verify token mismatch")
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// Receive verifies the delivery signature and hands the body to intake.
// Duplicates still return 200 so the provider stops retrying.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}
	defer r.Body.Close()

	if !signature.Verify(body, r.Header.Get(SignatureHeader), h.appSecret) {
		log.Warn().Str("ip", r.RemoteAddr).Msg("webhook signature rejected")
		response.Unauthorized(w, "invalid signature")
		return
	}

	accepted, err := h.svc.Ingest(r.Context(), body)
	if errors.Is(err, ErrInvalidPayload) {
		response.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("webhook ingest failed")
		response.InternalError(w)
		return
	}

	response.OK(w, IngestResponse{Accepted: accepted})
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Verify)
	r.Post("/", h.Receive)
	return r
}
