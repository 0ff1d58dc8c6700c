package webhook

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one deduplicated provider delivery. Row existence means
// "already processed": the unique event_id makes replays no-ops.
type Event struct {
	EventID    string          `db:"event_id" json:"event_id"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	ReceivedAt time.Time       `db:"received_at" json:"received_at"`
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

const JobKindInboundMessage = "inbound_message"

// InboundMessagePayload is the body of an inbound_message job.
type InboundMessagePayload struct {
	TenantID uuid.UUID      `json:"tenant_id"`
	Message  InboundMessage `json:"message"`
}

// Job is one unit of asynchronous work enqueued by event intake.
type Job struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Kind      string          `db:"kind" json:"kind"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Status    JobStatus       `db:"status" json:"status"`
	Attempts  int             `db:"attempts" json:"attempts"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
