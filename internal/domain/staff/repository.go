package staff

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("staff profile not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	var s Staff
	err := r.db.GetContext(ctx, &s, `
		SELECT id, tenant_id, name, role, pin_hash, created_at
		FROM staff_profiles WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) SetPINHash(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE staff_profiles SET pin_hash = $1 WHERE id = $2
	`, hash, id)
	return err
}
