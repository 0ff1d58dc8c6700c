package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Recorder writes audit entries. Implementations must be safe to call
// on every mutation path.
type Recorder interface {
	Record(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, action string, details map[string]interface{})
}

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Record writes an audit entry best-effort. A failed audit write never
// fails the primary operation: it is logged and swallowed.
func (s *Service) Record(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, action string, details map[string]interface{}) {
	raw, err := json.Marshal(details)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("audit details marshal failed")
		return
	}

	entry := &Entry{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Details:  raw,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}
