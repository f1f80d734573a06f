package model

import "time"

// Delivery statuses.
const (
	DeliveryDelivered = "delivered"
	DeliveryRetrying  = "retrying"
	DeliveryFailed    = "failed"
)

// DeliveryLog records one outbound post of rendered content and its retry state.
type DeliveryLog struct {
	ID             int64      `json:"id"`
	WebhookID      int64      `json:"webhook_id"`
	PayloadID      int64      `json:"payload_id"`
	URL            string     `json:"url"`
	RequestBody    string     `json:"request_body"`
	ResponseStatus int        `json:"response_status"`
	ResponseBody   string     `json:"response_body"`
	Status         string     `json:"status"`
	Attempt        int        `json:"attempt"`
	MaxAttempts    int        `json:"max_attempts"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	IdempotencyKey string     `json:"idempotency_key"`
}
