package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, tenant_id, actor_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, e.ID, e.TenantID, e.ActorID, e.Action, e.Details)
	return err
}
