package redemption

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusVoided    Status = "voided"
	StatusExpired   Status = "expired"
)

type Reward struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TenantID   uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name       string    `db:"name" json:"name"`
	CostPoints int64     `db:"cost_points" json:"cost_points"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Redemption tracks one reward claim through its lifecycle. The state
// machine here is the only writer of status, otp_code and
// otp_expires_at. RedeemedPoints records the amount debited at
// completion; a later void refunds exactly that, even if the reward's
// catalogue price has changed since.
type Redemption struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	AccountID      uuid.UUID  `db:"account_id" json:"account_id"`
	RewardID       uuid.UUID  `db:"reward_id" json:"reward_id"`
	TenantID       uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Status         Status     `db:"status" json:"status"`
	OTPCode        *string    `db:"otp_code" json:"-"`
	OTPExpiresAt   *time.Time `db:"otp_expires_at" json:"otp_expires_at,omitempty"`
	RedeemedPoints *int64     `db:"redeemed_points" json:"redeemed_points,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	RedeemedAt     *time.Time `db:"redeemed_at" json:"redeemed_at,omitempty"`
	VoidedAt       *time.Time `db:"voided_at" json:"voided_at,omitempty"`
	VoidReason     *string    `db:"void_reason" json:"void_reason,omitempty"`
}
