package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Common audit actions recorded by the points engine.
const (
	ActionAnomalyDetected    = "anomaly_detected"
	ActionPointsEarned       = "points_earned"
	ActionRedemptionComplete = "redemption_completed"
	ActionRedemptionVoided   = "redemption_voided"
	ActionPINRejected        = "pin_rejected"
)

// Entry is an append-only audit record. The engine writes entries but
// never reads them back.
type Entry struct {
	ID        uuid.UUID       `db:"id"`
	TenantID  uuid.UUID       `db:"tenant_id"`
	ActorID   *uuid.UUID      `db:"actor_id"`
	Action    string          `db:"action"`
	Details   json.RawMessage `db:"details"`
	CreatedAt time.Time       `db:"created_at"`
}
