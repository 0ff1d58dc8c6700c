package ledger

// EarnRequest credits points to a member, keyed by phone. A PIN is
// required above the large-earn threshold.
type EarnRequest struct {
	Phone          string `json:"phone" validate:"required,phone"`
	Points         int64  `json:"points" validate:"required,gt=0"`
	Description    string `json:"description" validate:"max=255"`
	PIN            string `json:"pin" validate:"max=12"`
	IdempotencyKey string `json:"idempotency_key" validate:"max=64"`
}

// EarnResponse reports the resulting entry and balance. AnomalyFlagged
// is advisory only; the earn still went through.
type EarnResponse struct {
	Entry          *Entry `json:"entry"`
	Balance        int64  `json:"balance"`
	AnomalyFlagged bool   `json:"anomaly_flagged,omitempty"`
}

// BalanceResponse is the read surface for a member balance.
type BalanceResponse struct {
	Phone          string `json:"phone"`
	PointsBalance  int64  `json:"points_balance"`
	LifetimePoints int64  `json:"lifetime_points"`
}
