package model

import "time"

// Trigger outcomes recorded for each inbound event.
const (
	TriggerSubmitted = "submitted"
	TriggerNoMatch   = "no_match"
	TriggerDisabled  = "disabled"
	TriggerFailed    = "failed"
)

// TriggerEvent records what one inbound event on a webhook led to.
type TriggerEvent struct {
	ID         int64     `json:"id"`
	WebhookID  int64     `json:"webhook_id"`
	PayloadID  int64     `json:"payload_id,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
