package staff

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/points-api/internal/pkg/pincode"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// VerifyPIN compares a submitted PIN against the stored bcrypt hash.
// Fails closed: any lookup error, a missing profile or an empty stored
// hash all verify as false. Plaintext is never compared.
func (s *Service) VerifyPIN(ctx context.Context, staffID uuid.UUID, pin string) bool {
	if pin == "" {
		return false
	}

	profile, err := s.repo.GetByID(ctx, staffID)
	if err != nil {
		log.Warn().Err(err).Str("staff_id", staffID.String()).Msg("PIN lookup failed")
		return false
	}
	if profile.PINHash == "" {
		return false
	}

	return pincode.Verify(pin, profile.PINHash)
}

// SetPIN stores a new bcrypt hash for the staff PIN.
func (s *Service) SetPIN(ctx context.Context, staffID uuid.UUID, pin string) error {
	hash, err := pincode.Hash(pin)
	if err != nil {
		return err
	}
	return s.repo.SetPINHash(ctx, staffID, hash)
}
