package jwt_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltyhub/points-api/internal/pkg/jwt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := jwt.NewService("test-secret", time.Hour)
	staffID := uuid.New()
	tenantID := uuid.New()

	token, err := svc.GenerateAccessToken(staffID, tenantID, "cashier")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.StaffID != staffID {
		t.Fatalf("staff id mismatch: %s != %s", claims.StaffID, staffID)
	}
	if claims.TenantID != tenantID {
		t.Fatalf("tenant id mismatch: %s != %s", claims.TenantID, tenantID)
	}
	if claims.Role != "cashier" {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := jwt.NewService("secret-a", time.Hour)
	verifier := jwt.NewService("secret-b", time.Hour)

	token, err := issuer.GenerateAccessToken(uuid.New(), uuid.New(), "admin")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := verifier.ValidateAccessToken(token); !errors.Is(err, jwt.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := jwt.NewService("test-secret", -time.Minute)

	token, err := svc.GenerateAccessToken(uuid.New(), uuid.New(), "admin")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := svc.ValidateAccessToken(token); !errors.Is(err, jwt.ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}
