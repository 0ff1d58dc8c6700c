package webhook

// Envelope is the provider's delivery payload. EventID identifies the
// delivery; each message becomes one job. TenantID names the program
// whose channel number received the messages.
type Envelope struct {
	EventID  string           `json:"event_id"`
	TenantID string           `json:"tenant_id"`
	Messages []InboundMessage `json:"messages"`
}

// InboundMessage is one member message relayed by the provider.
type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// IngestResponse acknowledges a delivery. Duplicates report
// accepted=false but still succeed, so the provider stops retrying.
type IngestResponse struct {
	Accepted bool `json:"accepted"`
}
