package ledger

import (
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryKindEarn   EntryKind = "earn"
	EntryKindRedeem EntryKind = "redeem"
	EntryKindVoid   EntryKind = "void"
)

// Account caches the derived point balance for a member. The balance is
// always equal to the signed sum of the account's ledger entries; the
// ledger repository is the only writer.
type Account struct {
	ID             uuid.UUID `db:"id" json:"id"`
	TenantID       uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Phone          string    `db:"phone" json:"phone"`
	PointsBalance  int64     `db:"points_balance" json:"points_balance"`
	LifetimePoints int64     `db:"lifetime_points" json:"lifetime_points"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Entry is one immutable point movement. Corrections are new
// compensating entries, never mutations.
type Entry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	AccountID      uuid.UUID `db:"account_id" json:"account_id"`
	TenantID       uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Points         int64     `db:"points" json:"points"`
	Kind           EntryKind `db:"kind" json:"kind"`
	Description    string    `db:"description" json:"description"`
	IdempotencyKey *string   `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
