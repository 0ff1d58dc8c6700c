package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// WakeChannel is the Redis channel the job worker subscribes to.
const WakeChannel = "jobs:wake"

// ErrInvalidPayload marks a delivery body that cannot be parsed.
var ErrInvalidPayload = errors.New("invalid webhook payload")

type Service struct {
	repo *Repository
	rdb  *redis.Client
}

func NewService(repo *Repository, rdb *redis.Client) *Service {
	return &Service{repo: repo, rdb: rdb}
}

// Ingest deduplicates a provider delivery and enqueues one job per
// inbound message. Returns accepted=false for replays.
func (s *Service) Ingest(ctx context.Context, body []byte) (bool, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	eventID := env.EventID
	if eventID == "" {
		// Some providers omit a delivery id; derive one from the body.
		sum := sha256.Sum256(body)
		eventID = hex.EncodeToString(sum[:])
	}

	tenantID, err := uuid.Parse(env.TenantID)
	if err != nil {
		return false, fmt.Errorf("%w: bad tenant_id", ErrInvalidPayload)
	}

	jobs := make([]Job, 0, len(env.Messages))
	for _, msg := range env.Messages {
		payload, err := json.Marshal(InboundMessagePayload{TenantID: tenantID, Message: msg})
		if err != nil {
			return false, err
		}
		jobs = append(jobs, Job{
			ID:      uuid.New(),
			Kind:    JobKindInboundMessage,
			Payload: payload,
		})
	}

	accepted, err := s.repo.Ingest(ctx, eventID, body, jobs)
	if err != nil {
		return false, err
	}

	if !accepted {
		log.Info().Str("event_id", eventID).Msg("duplicate webhook event ignored")
		return false, nil
	}

	log.Info().Str("event_id", eventID).Int("jobs", len(jobs)).Msg("webhook event ingested")

	// Wake the worker; polling covers us if the publish is lost.
	if err := s.rdb.Publish(ctx, WakeChannel, eventID).Err(); err != nil {
		log.Warn().Err(err).Msg("job wake publish failed")
	}
	return true, nil
}
