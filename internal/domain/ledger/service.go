package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/domain/audit"
)

type Service struct {
	repo  *Repository
	audit audit.Recorder
}

func NewService(repo *Repository, auditor audit.Recorder) *Service {
	return &Service{repo: repo, audit: auditor}
}

// EnsureAccount looks up a member by phone, creating the account lazily.
func (s *Service) EnsureAccount(ctx context.Context, tenantID uuid.UUID, phone string) (*Account, error) {
	return s.repo.EnsureAccount(ctx, tenantID, phone)
}

// GetAccountByPhone looks up an existing member by phone.
func (s *Service) GetAccountByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Account, error) {
	return s.repo.GetAccountByPhone(ctx, tenantID, phone)
}

// Earn credits points to an account. The optional idempotency key makes
// client retries safe.
func (s *Service) Earn(ctx context.Context, accountID uuid.UUID, points int64, description, idempotencyKey string) (*Entry, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, err := s.repo.Earn(ctx, accountID, points, description, idempotencyKey)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, entry.TenantID, nil, audit.ActionPointsEarned, map[string]interface{}{
		"account_id": accountID.String(),
		"entry_id":   entry.ID.String(),
		"points":     points,
	})

	log.Info().
		Str("account_id", accountID.String()).
		Int64("points", points).
		Str("idempotency_key", idempotencyKey).
		Msg("points earned")
	return entry, nil
}

func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListEntries(ctx, accountID, limit, offset)
}

// Reconciliation reports a recomputed ledger sum against the cached
// account balance.
type Reconciliation struct {
	AccountID     uuid.UUID `json:"account_id"`
	CachedBalance int64     `json:"cached_balance"`
	LedgerSum     int64     `json:"ledger_sum"`
	Drift         bool      `json:"drift"`
}

// Reconcile recomputes the balance from the ledger and flags drift.
// Read-only: it never repairs, only reports.
func (s *Service) Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error) {
	acc, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.LedgerSum(ctx, accountID)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		AccountID:     accountID,
		CachedBalance: acc.PointsBalance,
		LedgerSum:     sum,
		Drift:         acc.PointsBalance != sum,
	}
	if rec.Drift {
		log.Error().
			Str("account_id", accountID.String()).
			Int64("cached", acc.PointsBalance).
			Int64("ledger_sum", sum).
			Msg("balance drift detected")
	}
	return rec, nil
}
