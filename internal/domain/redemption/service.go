package redemption

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/domain/audit"
	"github.com/loyaltyhub/points-api/internal/domain/ledger"
	"github.com/loyaltyhub/points-api/internal/domain/staff"
)

// Accounts resolves members for the redemption surface.
type Accounts interface {
	GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*ledger.Account, error)
}

type Service struct {
	repo     *Repository
	accounts Accounts
	audit    audit.Recorder
}

func NewService(repo *Repository, accounts Accounts, auditor audit.Recorder) *Service {
	return &Service{repo: repo, accounts: accounts, audit: auditor}
}

// Create opens a pending redemption for a member against an active
// reward of the same tenant.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, phone string, rewardID uuid.UUID) (*Redemption, error) {
	acc, err := s.accounts.GetByPhone(ctx, tenantID, phone)
	if err != nil {
		return nil, err
	}

	reward, err := s.repo.GetReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.TenantID != tenantID || !reward.Active {
		return nil, ErrRewardNotFound
	}

	return s.repo.Create(ctx, acc.ID, reward.ID, tenantID)
}

// IssueOTP attaches a fresh 6-digit code to a pending redemption,
// replacing any earlier code. The code itself is never logged.
func (s *Service) IssueOTP(ctx context.Context, redemptionID uuid.UUID) (string, time.Time, error) {
	code, err := generateOTP()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().UTC().Add(otpTTL)
	if err := s.repo.AttachOTP(ctx, redemptionID, code, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	log.Info().
		Str("redemption_id", redemptionID.String()).
		Time("expires_at", expiresAt).
		Msg("redemption OTP issued")
	return code, expiresAt, nil
}

// CompleteResult reports a successful redemption.
type CompleteResult struct {
	RedemptionID   uuid.UUID `json:"redemption_id"`
	RewardName     string    `json:"reward_name"`
	RedeemedPoints int64     `json:"redeemed_points"`
}

// Complete verifies a submitted code against the member's open
// redemption and settles it. Missing accounts, missing redemptions,
// expired and wrong codes all collapse to ErrInvalidOrExpiredOTP.
func (s *Service) Complete(ctx context.Context, tenantID uuid.UUID, phone, code string) (*CompleteResult, error) {
	acc, err := s.accounts.GetByPhone(ctx, tenantID, phone)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, ErrInvalidOrExpiredOTP
	}
	if err != nil {
		return nil, err
	}

	red, err := s.repo.LatestPendingWithOTP(ctx, acc.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidOrExpiredOTP
	}
	if err != nil {
		return nil, err
	}

	completed, entry, rewardName, err := s.repo.VerifyAndComplete(ctx, red.ID, code)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, tenantID, nil, audit.ActionRedemptionComplete, map[string]interface{}{
		"redemption_id": completed.ID.String(),
		"account_id":    acc.ID.String(),
		"points":        entry.Points,
	})

	log.Info().
		Str("redemption_id", completed.ID.String()).
		Str("account_id", acc.ID.String()).
		Int64("points", entry.Points).
		Msg("redemption completed")

	return &CompleteResult{
		RedemptionID:   completed.ID,
		RewardName:     rewardName,
		RedeemedPoints: -entry.Points,
	}, nil
}

// VoidResult reports a reversed redemption.
type VoidResult struct {
	RefundedPoints int64  `json:"refunded_points"`
	RewardName     string `json:"reward_name"`
}

// Void reverses a completed redemption. Only admin, owner and manager
// roles may void.
func (s *Service) Void(ctx context.Context, redemptionID uuid.UUID, reason string, actorID uuid.UUID, role string) (*VoidResult, error) {
	if !staff.CanVoid(role) {
		return nil, ErrPermissionDenied
	}

	refunded, rewardName, err := s.repo.VoidCompleted(ctx, redemptionID, reason)
	if err != nil {
		return nil, err
	}

	red, getErr := s.repo.GetByID(ctx, redemptionID)
	tenantID := uuid.Nil
	if getErr == nil {
		tenantID = red.TenantID
	}
	s.audit.Record(ctx, tenantID, &actorID, audit.ActionRedemptionVoided, map[string]interface{}{
		"redemption_id":   redemptionID.String(),
		"refunded_points": refunded,
		"reward_name":     rewardName,
		"void_reason":     reason,
	})

	log.Info().
		Str("redemption_id", redemptionID.String()).
		Str("voided_by", actorID.String()).
		Int64("refunded_points", refunded).
		Msg("redemption voided")

	return &VoidResult{RefundedPoints: refunded, RewardName: rewardName}, nil
}

func (s *Service) ListRewards(ctx context.Context, tenantID uuid.UUID) ([]Reward, error) {
	return s.repo.ListRewards(ctx, tenantID)
}
