package staff

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// CanVoid reports whether a role may void completed redemptions.
func CanVoid(role string) bool {
	return role == RoleAdmin || role == RoleOwner || role == RoleManager
}

type Staff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	PINHash   string    `db:"pin_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
