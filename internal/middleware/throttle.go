package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/pkg/ratelimit"
	"github.com/loyaltyhub/points-api/internal/pkg/response"
)

// Throttle applies per-client-IP request throttling. Generic throttling
// fails open: a limiter backend outage must not take down the whole API.
func Throttle(limiter *ratelimit.Limiter, capacity, refillPerSec float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "throttle:" + getClientIP(r)

			allowed, err := limiter.Allow(r.Context(), key, 1, capacity, refillPerSec)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, failing open")
			}
			if !ratelimit.Decide(allowed, err, ratelimit.FailOpen) {
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
