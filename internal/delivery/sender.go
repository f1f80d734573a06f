package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"webhook-bot/internal/model"
)

//go:generate mockgen -source=sender.go -destination=mock_sender.go -package=delivery

// maxResponseBody caps how much of a target's response is kept in the log.
const maxResponseBody = 64 * 1024

// Message is one rendered payload ready to be posted for a webhook's bot.
type Message struct {
	WebhookID      int64             `json:"webhook_id"`
	PayloadID      int64             `json:"payload_id"`
	URL            string            `json:"url"`
	BotKey         string            `json:"bot_key"`
	ContentType    model.ContentType `json:"content_type"`
	Content        string            `json:"content"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// Request is the HTTP call made for a Message.
type Request struct {
	URL            string
	BotKey         string
	IdempotencyKey string
	Body           []byte
}

// Result is the outcome of one HTTP attempt. Error is set for transport
// failures; StatusCode is zero in that case.
type Result struct {
	StatusCode   int
	ResponseBody string
	Error        string
}

// OK reports a 2xx response.
func (r *Result) OK() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// Failure describes a failed attempt for the delivery log.
func (r *Result) Failure() string {
	if r.Error != "" {
		return r.Error
	}
	if !r.OK() {
		return fmt.Sprintf("HTTP %d", r.StatusCode)
	}
	return ""
}

// BuildBody encodes rendered content as the outbound JSON body:
// {"text": ...} for text and {"blocks": ...} for blocks.
func BuildBody(contentType model.ContentType, content string) ([]byte, error) {
	switch contentType {
	case model.ContentBlocks:
		if !json.Valid([]byte(content)) {
			return nil, fmt.Errorf("blocks content is not valid JSON")
		}
		return json.Marshal(map[string]json.RawMessage{"blocks": json.RawMessage(content)})
	default:
		return json.Marshal(map[string]string{"text": content})
	}
}

// BuildRequest turns a Message into the HTTP request to send.
func BuildRequest(msg Message) (Request, error) {
	body, err := BuildBody(msg.ContentType, msg.Content)
	if err != nil {
		return Request{}, err
	}
	return Request{URL: msg.URL, BotKey: msg.BotKey, IdempotencyKey: msg.IdempotencyKey, Body: body}, nil
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, req Request) *Result
}

// HTTPSender posts requests with a shared client.
type HTTPSender struct {
	client *http.Client
}

func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSender{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSender) Send(ctx context.Context, r Request) *Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return &Result{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if r.BotKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.BotKey)
	}
	if r.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.IdempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &Result{Error: fmt.Sprintf("http call: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return &Result{StatusCode: resp.StatusCode, ResponseBody: string(respBody)}
}

var _ Sender = (*HTTPSender)(nil)
