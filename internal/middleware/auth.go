package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/loyaltyhub/points-api/internal/pkg/jwt"
	"github.com/loyaltyhub/points-api/internal/pkg/response"
)

type contextKey string

const (
	StaffIDKey  contextKey = "staff_id"
	TenantIDKey contextKey = "tenant_id"
	RoleKey     contextKey = "role"
)

// Auth returns middleware that validates staff JWTs
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateAccessToken(parts[1])
			if err != nil {
				if err == jwt.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), StaffIDKey, claims.StaffID)
			ctx = context.WithValue(ctx, TenantIDKey, claims.TenantID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetStaffID extracts staff ID from context
func GetStaffID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(StaffIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetTenantID extracts tenant ID from context
func GetTenantID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(TenantIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetRole extracts staff role from context
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// RequireRole returns middleware that checks staff role
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staffRole := GetRole(r.Context())

			for _, role := range roles {
				if staffRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "Insufficient permissions")
		})
	}
}

// RequireManager requires a role allowed to void redemptions
func RequireManager() func(http.Handler) http.Handler {
	return RequireRole("admin", "owner", "manager")
}
