package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltyhub/points-api/internal/middleware"
	"github.com/loyaltyhub/points-api/internal/pkg/jwt"
)

func TestAuthPassesValidToken(t *testing.T) {
	svc := jwt.NewService("test-secret", time.Hour)
	staffID := uuid.New()
	tenantID := uuid.New()

	token, err := svc.GenerateAccessToken(staffID, tenantID, "manager")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	var gotStaff, gotTenant uuid.UUID
	var gotRole string
	handler := middleware.Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStaff = middleware.GetStaffID(r.Context())
		gotTenant = middleware.GetTenantID(r.Context())
		gotRole = middleware.GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotStaff != staffID || gotTenant != tenantID || gotRole != "manager" {
		t.Fatalf("context mismatch: staff=%s tenant=%s role=%s", gotStaff, gotTenant, gotRole)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	svc := jwt.NewService("test-secret", time.Hour)
	handler := middleware.Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without auth")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	svc := jwt.NewService("test-secret", time.Hour)
	handler := middleware.Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without auth")
	}))

	for _, header := range []string{"Bearer", "Basic abc", "Bearer a b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	issuer := jwt.NewService("test-secret", -time.Minute)
	verifier := jwt.NewService("test-secret", time.Hour)

	token, err := issuer.GenerateAccessToken(uuid.New(), uuid.New(), "admin")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	handler := middleware.Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireManager(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{"owner", http.StatusOK},
		{"admin", http.StatusOK},
		{"manager", http.StatusOK},
		{"cashier", http.StatusForbidden},
		{"", http.StatusForbidden},
	}

	svc := jwt.NewService("test-secret", time.Hour)

	for _, tc := range cases {
		token, err := svc.GenerateAccessToken(uuid.New(), uuid.New(), tc.role)
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		handler := middleware.Auth(svc)(middleware.RequireManager()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("role %q: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}
}
