package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/config"
	"github.com/loyaltyhub/points-api/internal/domain/ledger"
	"github.com/loyaltyhub/points-api/internal/domain/webhook"
	"github.com/loyaltyhub/points-api/internal/pkg/database"
	"github.com/loyaltyhub/points-api/internal/pkg/logger"
)

const (
	pollInterval = 5 * time.Second
	maxAttempts  = 3
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().Msg("Starting job-worker")

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

	jobs := webhook.NewRepository(db)
	accounts := ledger.NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pub/sub wake-up from the API; polling still runs underneath.
	wake := make(chan struct{}, 1)
	go subscribeWakeups(ctx, rdb, wake)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	lastIdleLog := time.Time{}
	idleLogEvery := 1 * time.Minute

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("job-worker stopped")
			return
		case <-wake:
			// immediate poll
		case <-ticker.C:
		}

		// Drain the queue before going back to sleep.
		for {
			if ctx.Err() != nil {
				break
			}

			job, ok, err := jobs.ClaimJob(ctx)
			if err != nil {
				log.Error().Err(err).Msg("DB error while claiming job")
				break
			}
			if !ok {
				now := time.Now()
				if lastIdleLog.IsZero() || now.Sub(lastIdleLog) >= idleLogEvery {
					log.Info().Msg("Idle: no queued jobs found")
					lastIdleLog = now
				}
				break
			}

			start := time.Now()
			log.Info().
				Str("job_id", job.ID.String()).
				Str("kind", job.Kind).
				Int("attempt", job.Attempts).
				Msg("Processing job")

			if err := processJob(ctx, accounts, job); err != nil {
				log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Processing failed")
				if err2 := jobs.MarkJobFailed(ctx, job.ID, maxAttempts); err2 != nil {
					log.Error().Err(err2).Str("job_id", job.ID.String()).Msg("Failed to update job status")
				}
				continue
			}

			if err := jobs.MarkJobDone(ctx, job.ID); err != nil {
				log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to update job status=done")
				continue
			}

			log.Info().
				Str("job_id", job.ID.String()).
				Dur("took", time.Since(start)).
				Msg("Processing done")
		}
	}
}

// processJob registers the sender as a loyalty member. An account that
// already exists is a no-op, so retries are safe.
func processJob(ctx context.Context, accounts *ledger.Repository, job *webhook.Job) error {
	switch job.Kind {
	case webhook.JobKindInboundMessage:
		var p webhook.InboundMessagePayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return err
		}

		acc, err := accounts.EnsureAccount(ctx, p.TenantID, p.Message.From)
		if err != nil {
			return err
		}

		log.Info().
			Str("account_id", acc.ID.String()).
			Str("message_id", p.Message.ID).
			Msg("Inbound message linked to account")
		return nil
	default:
		log.Warn().Str("kind", job.Kind).Msg("Unknown job kind, dropping")
		return nil
	}
}

func subscribeWakeups(ctx context.Context, rdb *redis.Client, wake chan<- struct{}) {
	sub := rdb.Subscribe(ctx, webhook.WakeChannel)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Channel():
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}
