package anomaly_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltyhub/points-api/internal/domain/anomaly"
	"github.com/loyaltyhub/points-api/internal/domain/audit"
)

type fakeLedger struct {
	earned int64
	err    error
}

func (f *fakeLedger) SumEarnedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	return f.earned, f.err
}

type fakeRecorder struct {
	actions []string
	details []map[string]interface{}
}

func (f *fakeRecorder) Record(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, action string, details map[string]interface{}) {
	f.actions = append(f.actions, action)
	f.details = append(f.details, details)
}

func TestCheckVelocityFlagsOverThreshold(t *testing.T) {
	rec := &fakeRecorder{}
	det := anomaly.NewDetector(&fakeLedger{earned: 450}, rec)

	flagged, err := det.CheckVelocity(context.Background(), uuid.New(), uuid.New(), 60)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !flagged {
		t.Fatal("expected flag at 510 points in window")
	}
	if len(rec.actions) != 1 || rec.actions[0] != audit.ActionAnomalyDetected {
		t.Fatalf("expected one anomaly_detected audit entry, got %v", rec.actions)
	}
	if got := rec.details[0]["total_points"]; got != int64(510) {
		t.Fatalf("expected total_points 510, got %v", got)
	}
}

func TestCheckVelocityUnderThreshold(t *testing.T) {
	rec := &fakeRecorder{}
	det := anomaly.NewDetector(&fakeLedger{earned: 100}, rec)

	flagged, err := det.CheckVelocity(context.Background(), uuid.New(), uuid.New(), 100)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if flagged {
		t.Fatal("flagged at 200 points in window")
	}
	if len(rec.actions) != 0 {
		t.Fatalf("unexpected audit entries: %v", rec.actions)
	}
}

func TestCheckVelocityExactThresholdNotFlagged(t *testing.T) {
	rec := &fakeRecorder{}
	det := anomaly.NewDetector(&fakeLedger{earned: 400}, rec)

	flagged, err := det.CheckVelocity(context.Background(), uuid.New(), uuid.New(), 100)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if flagged {
		t.Fatal("exactly at threshold must not flag")
	}
}

func TestCheckVelocityPropagatesLedgerError(t *testing.T) {
	rec := &fakeRecorder{}
	ledgerErr := errors.New("db down")
	det := anomaly.NewDetector(&fakeLedger{err: ledgerErr}, rec)

	_, err := det.CheckVelocity(context.Background(), uuid.New(), uuid.New(), 10)
	if !errors.Is(err, ledgerErr) {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if len(rec.actions) != 0 {
		t.Fatalf("unexpected audit entries on error: %v", rec.actions)
	}
}
