package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/config"
	"github.com/loyaltyhub/points-api/internal/domain/anomaly"
	"github.com/loyaltyhub/points-api/internal/domain/audit"
	"github.com/loyaltyhub/points-api/internal/domain/ledger"
	"github.com/loyaltyhub/points-api/internal/domain/redemption"
	"github.com/loyaltyhub/points-api/internal/domain/staff"
	"github.com/loyaltyhub/points-api/internal/domain/webhook"
	"github.com/loyaltyhub/points-api/internal/middleware"
	"github.com/loyaltyhub/points-api/internal/pkg/database"
	"github.com/loyaltyhub/points-api/internal/pkg/jwt"
	"github.com/loyaltyhub/points-api/internal/pkg/logger"
	"github.com/loyaltyhub/points-api/internal/pkg/ratelimit"
	pkgresponse "github.com/loyaltyhub/points-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting points API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	limiter := ratelimit.NewLimiter(rdb)

	// ---------- Repositories ----------
	auditRepo := audit.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	staffRepo := staff.NewRepository(db)
	redemptionRepo := redemption.NewRepository(db, ledgerRepo)
	webhookRepo := webhook.NewRepository(db)

	// ---------- Services ----------
	auditService := audit.NewService(auditRepo)
	ledgerService := ledger.NewService(ledgerRepo, auditService)
	staffService := staff.NewService(staffRepo)
	detector := anomaly.NewDetector(ledgerRepo, auditService)
	redemptionService := redemption.NewService(redemptionRepo, &redemptionAccountsAdapter{svc: ledgerService}, auditService)
	webhookService := webhook.NewService(webhookRepo, rdb)

	// ---------- Handlers ----------
	ledgerHandler := ledger.NewHandler(ledgerService, staffService, detector, auditService)
	redemptionHandler := redemption.NewHandler(redemptionService, limiter, redemption.LimiterConfig{
		Capacity:     cfg.RedeemCapacity,
		RefillPerSec: cfg.RedeemRefillRate,
	})
	staffHandler := staff.NewHandler(staffService)
	webhookHandler := webhook.NewHandler(webhookService, cfg.WebhookAppSecret, cfg.WebhookVerifyToken)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Throttle(limiter, cfg.ThrottleCapacity, cfg.ThrottleRefillRate))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/points", ledgerHandler.Routes(authMiddleware))
		r.Mount("/redemptions", redemptionHandler.Routes(authMiddleware))
		r.Mount("/staff", staffHandler.Routes(authMiddleware))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/rewards", redemptionHandler.ListRewards)
		})
	})

	r.Mount("/webhooks/messaging", webhookHandler.Routes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// redemptionAccountsAdapter narrows the ledger service to the account
// lookup the redemption domain needs.
type redemptionAccountsAdapter struct {
	svc *ledger.Service
}

func (a *redemptionAccountsAdapter) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*ledger.Account, error) {
	return a.svc.GetAccountByPhone(ctx, tenantID, phone)
}
