package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Ingest inserts the event and its jobs in one transaction. Duplicate
// event ids are detected by the insert's ON CONFLICT: no row inserted
// means the event was already processed and no jobs are enqueued.
// Either the event and all its jobs land, or nothing does.
func (r *Repository) Ingest(ctx context.Context, eventID string, payload json.RawMessage, jobs []Job) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO webhook_events (event_id, payload, received_at)
		VALUES ($1, $2, now())
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, payload)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	for _, job := range jobs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (id, kind, payload, status, attempts, created_at, updated_at)
			VALUES ($1, $2, $3, 'queued', 0, now(), now())
		`, job.ID, job.Kind, job.Payload); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ClaimJob picks the oldest queued job and marks it processing. SKIP
// LOCKED lets concurrent workers claim disjoint jobs.
func (r *Repository) ClaimJob(ctx context.Context) (*Job, bool, error) {
	var job Job
	err := r.db.GetContext(ctx, &job, `
		UPDATE jobs
		SET status = 'processing', attempts = attempts + 1, updated_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'queued'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, status, attempts, created_at, updated_at
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &job, true, nil
}

func (r *Repository) MarkJobDone(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'done', updated_at = now() WHERE id = $1
	`, id)
	return err
}

// MarkJobFailed requeues the job until attempts are exhausted, then
// parks it as failed.
func (r *Repository) MarkJobFailed(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = CASE WHEN attempts >= $2 THEN 'failed' ELSE 'queued' END,
		    updated_at = now()
		WHERE id = $1
	`, id, maxAttempts)
	return err
}
