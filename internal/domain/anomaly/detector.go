package anomaly

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltyhub/points-api/internal/domain/audit"
)

const (
	velocityWindow    = 5 * time.Minute
	velocityThreshold = 500
)

// LedgerReader is the slice of the ledger the detector needs.
type LedgerReader interface {
	SumEarnedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)
}

// Detector flags anomalous earning velocity. It never blocks a
// transaction itself: the contract is the boolean plus the audit entry,
// escalation is the caller's call.
type Detector struct {
	ledger LedgerReader
	audit  audit.Recorder
}

func NewDetector(ledger LedgerReader, auditor audit.Recorder) *Detector {
	return &Detector{ledger: ledger, audit: auditor}
}

// CheckVelocity sums the account's earns over the trailing window, adds
// the incoming points and flags the account when the total crosses the
// threshold. A flag writes one anomaly_detected audit entry.
func (d *Detector) CheckVelocity(ctx context.Context, tenantID, accountID uuid.UUID, incomingPoints int64) (bool, error) {
	earned, err := d.ledger.SumEarnedSince(ctx, accountID, time.Now().Add(-velocityWindow))
	if err != nil {
		return false, err
	}

	total := earned + incomingPoints
	if total <= velocityThreshold {
		return false, nil
	}

	d.audit.Record(ctx, tenantID, nil, audit.ActionAnomalyDetected, map[string]interface{}{
		"account_id":      accountID.String(),
		"window_points":   earned,
		"incoming_points": incomingPoints,
		"total_points":    total,
		"threshold":       velocityThreshold,
	})
	return true, nil
}
