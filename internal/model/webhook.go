package model

// WebhookStatus toggles whether inbound events are dispatched.
type WebhookStatus string

const (
	WebhookEnabled  WebhookStatus = "enabled"
	WebhookDisabled WebhookStatus = "disabled"
)

// Bot holds the credential used when posting rendered content.
type Bot struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	BotKey string `json:"bot_key"`
}

// Webhook is a user-configured trigger that owns an ordered list of Payloads.
type Webhook struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	BotID       int64         `json:"bot_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	TargetURL   string        `json:"target_url"`
	Token       string        `json:"token"`
	Filter      string        `json:"filter"` // expression; empty = always dispatch
	Status      WebhookStatus `json:"status"`
}

// Enabled reports whether inbound events should be dispatched.
func (w *Webhook) Enabled() bool {
	return w.Status != WebhookDisabled
}
