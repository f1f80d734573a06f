package model

// ContentType selects how a Payload or Template content is interpreted.
type ContentType string

const (
	ContentText   ContentType = "text"
	ContentBlocks ContentType = "blocks"
)

// Valid reports whether ct is a known content type.
func (ct ContentType) Valid() bool {
	return ct == ContentText || ct == ContentBlocks
}

// Payload is a templated message definition owned by a Webhook. Its Conditions
// must all hold for the payload to be eligible.
type Payload struct {
	ID          int64       `json:"id"`
	WebhookID   int64       `json:"webhook_id"`
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content"`
	Params      string      `json:"params"`
	Position    int         `json:"position"`
	Conditions  []Condition `json:"conditions"`
}
