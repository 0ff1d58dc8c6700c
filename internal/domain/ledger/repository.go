package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	var acc Account
	err := r.db.GetContext(ctx, &acc, `
		SELECT id, tenant_id, phone, points_balance, lifetime_points, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *Repository) GetAccountByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Account, error) {
	var acc Account
	err := r.db.GetContext(ctx, &acc, `
		SELECT id, tenant_id, phone, points_balance, lifetime_points, created_at, updated_at
		FROM accounts WHERE tenant_id = $1 AND phone = $2
	`, tenantID, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// EnsureAccount creates the account row lazily on first contact.
func (r *Repository) EnsureAccount(ctx context.Context, tenantID uuid.UUID, phone string) (*Account, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, tenant_id, phone, points_balance, lifetime_points)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (tenant_id, phone) DO NOTHING
	`, uuid.New(), tenantID, phone); err != nil {
		return nil, err
	}
	return r.GetAccountByPhone(ctx, tenantID, phone)
}

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// lockAccount takes the per-account row lock that serializes concurrent
// earn/redeem/void on the same account.
func (r *Repository) lockAccount(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID) (*Account, error) {
	var acc Account
	err := tx.GetContext(ctx, &acc, `
		SELECT id, tenant_id, phone, points_balance, lifetime_points, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *Repository) getEntryByIdemKey(ctx context.Context, q sqlx.QueryerContext, accountID uuid.UUID, key string) (*Entry, bool, error) {
	var entry Entry
	err := sqlx.GetContext(ctx, q, &entry, `
		SELECT id, account_id, tenant_id, points, kind, description, idempotency_key, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND idempotency_key = $2
		LIMIT 1
	`, accountID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (r *Repository) insertEntry(ctx context.Context, tx *sqlx.Tx, entry *Entry) error {
	var idemKey interface{}
	if entry.IdempotencyKey != nil && *entry.IdempotencyKey != "" {
		idemKey = *entry.IdempotencyKey
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, tenant_id, points, kind, description, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.AccountID, entry.TenantID, entry.Points, string(entry.Kind), entry.Description, idemKey, entry.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

func (r *Repository) updateBalance(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, balance, lifetime int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET points_balance = $1, lifetime_points = $2, updated_at = now() WHERE id = $3
	`, balance, lifetime, accountID)
	return err
}

// Earn credits points inside a single transaction: the account row lock,
// the balance update and the entry insert either all happen or none do.
// The same lock serializes concurrent earns on one account, so the
// idempotency pre-check always sees the committed winner: a replay with
// the same key and amount returns the original entry.
func (r *Repository) Earn(ctx context.Context, accountID uuid.UUID, points int64, description, idempotencyKey string) (*Entry, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	acc, err := r.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		existing, found, err := r.getEntryByIdemKey(ctx, tx, accountID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if found {
			if existing.Points != points {
				return nil, ErrIdempotencyConflict
			}
			return existing, nil
		}
	}

	entry := &Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		TenantID:    acc.TenantID,
		Points:      points,
		Kind:        EntryKindEarn,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if idempotencyKey != "" {
		entry.IdempotencyKey = &idempotencyKey
	}

	if err := r.updateBalance(ctx, tx, accountID, acc.PointsBalance+points, acc.LifetimePoints+points); err != nil {
		return nil, err
	}

	if err := r.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitTx debits points within an external transaction. The caller owns
// commit/rollback; used by the redemption state machine so that clearing
// an OTP and debiting the balance are one atomic unit.
func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, points int64, description string) (*Entry, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}

	acc, err := r.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	if acc.PointsBalance < points {
		return nil, ErrInsufficientBalance
	}

	entry := &Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		TenantID:    acc.TenantID,
		Points:      -points,
		Kind:        EntryKindRedeem,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.updateBalance(ctx, tx, accountID, acc.PointsBalance-points, acc.LifetimePoints); err != nil {
		return nil, err
	}
	if err := r.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RefundTx inserts a compensating void entry within an external
// transaction, restoring the points of a voided redemption.
func (r *Repository) RefundTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, points int64, description string) (*Entry, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}

	acc, err := r.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		TenantID:    acc.TenantID,
		Points:      points,
		Kind:        EntryKindVoid,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.updateBalance(ctx, tx, accountID, acc.PointsBalance+points, acc.LifetimePoints); err != nil {
		return nil, err
	}
	if err := r.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SumEarnedSince returns the earned points of an account in a trailing
// window, used by the anomaly detector.
func (r *Repository) SumEarnedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(points), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND kind = 'earn' AND created_at > $2
	`, accountID, since)
	return total, err
}

// LedgerSum recomputes the balance from the ledger, for drift detection.
func (r *Repository) LedgerSum(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(points), 0) FROM ledger_entries WHERE account_id = $1
	`, accountID)
	return total, err
}

func (r *Repository) ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error) {
	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, account_id, tenant_id, points, kind, description, idempotency_key, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	return entries, err
}
