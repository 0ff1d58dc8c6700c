package redemption

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/loyaltyhub/points-api/internal/domain/ledger"
)

// Ledger is the slice of the balance engine the state machine drives.
// Both methods operate inside the caller's transaction so that clearing
// an OTP and moving points are one atomic unit.
type Ledger interface {
	DebitTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, points int64, description string) (*ledger.Entry, error)
	RefundTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, points int64, description string) (*ledger.Entry, error)
}

type Repository struct {
	db     *sqlx.DB
	ledger Ledger
}

func NewRepository(db *sqlx.DB, l Ledger) *Repository {
	return &Repository{db: db, ledger: l}
}

const redemptionColumns = `id, account_id, reward_id, tenant_id, status, otp_code, otp_expires_at, redeemed_points, created_at, redeemed_at, voided_at, void_reason`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Redemption, error) {
	var red Redemption
	err := r.db.GetContext(ctx, &red, `
		SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &red, nil
}

func (r *Repository) GetReward(ctx context.Context, id uuid.UUID) (*Reward, error) {
	var rw Reward
	err := r.db.GetContext(ctx, &rw, `
		SELECT id, tenant_id, name, cost_points, active, created_at
		FROM rewards WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rw, nil
}

func (r *Repository) ListRewards(ctx context.Context, tenantID uuid.UUID) ([]Reward, error) {
	rewards := []Reward{}
	err := r.db.SelectContext(ctx, &rewards, `
		SELECT id, tenant_id, name, cost_points, active, created_at
		FROM rewards WHERE tenant_id = $1 AND active
		ORDER BY cost_points
	`, tenantID)
	return rewards, err
}

// Create opens a redemption in pending state with no OTP attached. A
// member may hold one open redemption at a time; a partial unique
// index on pending rows enforces it even for concurrent creates.
func (r *Repository) Create(ctx context.Context, accountID, rewardID, tenantID uuid.UUID) (*Redemption, error) {
	red := &Redemption{
		ID:        uuid.New(),
		AccountID: accountID,
		RewardID:  rewardID,
		TenantID:  tenantID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO redemptions (id, account_id, reward_id, tenant_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, red.ID, red.AccountID, red.RewardID, red.TenantID, string(red.Status), red.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrAlreadyPending
		}
		return nil, err
	}
	return red, nil
}

// AttachOTP stores a fresh code on a pending redemption, overwriting any
// prior one so a single code is active at a time.
func (r *Repository) AttachOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE redemptions
		SET otp_code = $2, otp_expires_at = $3
		WHERE id = $1 AND status = 'pending'
	`, id, code, expiresAt)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotPending
	}
	return nil
}

// LatestPendingWithOTP finds the redemption a submitted code can belong
// to. Since a member holds at most one open redemption, this is the
// account's single pending row with a code attached.
func (r *Repository) LatestPendingWithOTP(ctx context.Context, accountID uuid.UUID) (*Redemption, error) {
	var red Redemption
	err := r.db.GetContext(ctx, &red, `
		SELECT `+redemptionColumns+`
		FROM redemptions
		WHERE account_id = $1 AND status = 'pending' AND otp_code IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &red, nil
}

type lockedRedemption struct {
	Redemption
	RewardCost int64  `db:"reward_cost"`
	RewardName string `db:"reward_name"`
}

// lockForUpdate takes the redemption row lock. Concurrent verifies of
// the same redemption serialize here; the loser re-reads a non-pending
// status.
func (r *Repository) lockForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*lockedRedemption, error) {
	var row lockedRedemption
	err := tx.GetContext(ctx, &row, `
		SELECT r.id, r.account_id, r.reward_id, r.tenant_id, r.status, r.otp_code, r.otp_expires_at,
		       r.redeemed_points, r.created_at, r.redeemed_at, r.voided_at, r.void_reason,
		       w.cost_points AS reward_cost, w.name AS reward_name
		FROM redemptions r
		JOIN rewards w ON w.id = r.reward_id
		WHERE r.id = $1
		FOR UPDATE OF r
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// VerifyAndComplete is the clear-code-and-debit path. Everything runs in
// one transaction under the redemption and account row locks: checking
// the code, clearing it, debiting the balance, inserting the redeem
// entry and marking the redemption completed. A successful verify can
// therefore never be observably followed by a failed debit.
func (r *Repository) VerifyAndComplete(ctx context.Context, id uuid.UUID, code string) (*Redemption, *ledger.Entry, string, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, "", err
	}
	defer tx.Rollback()

	row, err := r.lockForUpdate(ctx, tx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, "", ErrInvalidOrExpiredOTP
	}
	if err != nil {
		return nil, nil, "", err
	}

	if row.Status != StatusPending || row.OTPCode == nil || row.OTPExpiresAt == nil {
		return nil, nil, "", ErrInvalidOrExpiredOTP
	}

	now := time.Now().UTC()
	if now.After(*row.OTPExpiresAt) {
		// Lazily retire the stale code; the claim itself still fails.
		if _, err := tx.ExecContext(ctx, `
			UPDATE redemptions SET status = 'expired', otp_code = NULL, otp_expires_at = NULL WHERE id = $1
		`, id); err != nil {
			return nil, nil, "", err
		}
		if err := tx.Commit(); err != nil {
			return nil, nil, "", err
		}
		return nil, nil, "", ErrInvalidOrExpiredOTP
	}

	if subtle.ConstantTimeCompare([]byte(*row.OTPCode), []byte(code)) != 1 {
		return nil, nil, "", ErrInvalidOrExpiredOTP
	}

	entry, err := r.ledger.DebitTx(ctx, tx, row.AccountID, row.RewardCost, "redeem: "+row.RewardName)
	if err != nil {
		return nil, nil, "", err
	}

	// Record the debited amount on the row: a later void must refund
	// this, not whatever the reward costs by then.
	if _, err := tx.ExecContext(ctx, `
		UPDATE redemptions
		SET status = 'completed', otp_code = NULL, otp_expires_at = NULL, redeemed_points = $2, redeemed_at = $3
		WHERE id = $1
	`, id, row.RewardCost, now); err != nil {
		return nil, nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, "", err
	}

	red := row.Redemption
	red.Status = StatusCompleted
	red.OTPCode = nil
	red.OTPExpiresAt = nil
	red.RedeemedPoints = &row.RewardCost
	red.RedeemedAt = &now
	return &red, entry, row.RewardName, nil
}

// VoidCompleted reverses a completed redemption with a compensating
// refund entry, in one transaction. The refund equals the amount
// debited at completion.
func (r *Repository) VoidCompleted(ctx context.Context, id uuid.UUID, reason string) (int64, string, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, "", err
	}
	defer tx.Rollback()

	row, err := r.lockForUpdate(ctx, tx, id)
	if err != nil {
		return 0, "", err
	}

	if row.Status != StatusCompleted || row.RedeemedPoints == nil {
		return 0, "", ErrNotVoidable
	}

	refund := *row.RedeemedPoints
	if _, err := r.ledger.RefundTx(ctx, tx, row.AccountID, refund, "void: "+reason); err != nil {
		return 0, "", err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE redemptions SET status = 'voided', void_reason = $2, voided_at = now() WHERE id = $1
	`, id, reason); err != nil {
		return 0, "", err
	}

	if err := tx.Commit(); err != nil {
		return 0, "", err
	}
	return refund, row.RewardName, nil
}
