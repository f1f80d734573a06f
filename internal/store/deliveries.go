package store

import (
	"context"
	"time"

	"webhook-bot/internal/model"
)

const deliveryColumns = `id, webhook_id, payload_id, url, request_body, response_status, response_body,
	status, attempt, max_attempts, next_retry_at, error, idempotency_key`

func deliveryFromRow(row map[string]any) model.DeliveryLog {
	return model.DeliveryLog{
		ID:             asInt64(row["id"]),
		WebhookID:      asInt64(row["webhook_id"]),
		PayloadID:      asInt64(row["payload_id"]),
		URL:            asString(row["url"]),
		RequestBody:    asString(row["request_body"]),
		ResponseStatus: asInt(row["response_status"]),
		ResponseBody:   asString(row["response_body"]),
		Status:         asString(row["status"]),
		Attempt:        asInt(row["attempt"]),
		MaxAttempts:    asInt(row["max_attempts"]),
		NextRetryAt:    unixTime(row["next_retry_at"]),
		Error:          asString(row["error"]),
		IdempotencyKey: asString(row["idempotency_key"]),
	}
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// CreateDeliveryLog records the first attempt of a delivery.
func (s *Store) CreateDeliveryLog(ctx context.Context, d *model.DeliveryLog) error {
	id, err := s.InsertID(ctx, s.DB,
		`INSERT INTO delivery_logs (webhook_id, payload_id, url, request_body, response_status, response_body,
			status, attempt, max_attempts, next_retry_at, error, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		d.WebhookID, d.PayloadID, d.URL, d.RequestBody, d.ResponseStatus, d.ResponseBody,
		d.Status, d.Attempt, d.MaxAttempts, nullableUnix(d.NextRetryAt), d.Error, d.IdempotencyKey)
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// UpdateDeliveryLog stores the outcome of a retry attempt.
func (s *Store) UpdateDeliveryLog(ctx context.Context, d *model.DeliveryLog) error {
	n, err := s.Exec(ctx, s.DB,
		`UPDATE delivery_logs SET response_status = $1, response_body = $2, status = $3, attempt = $4,
			next_retry_at = $5, error = $6
		 WHERE id = $7`,
		d.ResponseStatus, d.ResponseBody, d.Status, d.Attempt, nullableUnix(d.NextRetryAt), d.Error, d.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetDeliveryLog(ctx context.Context, id int64) (*model.DeliveryLog, error) {
	row, err := s.QueryRow(ctx, s.DB, "SELECT "+deliveryColumns+" FROM delivery_logs WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	d := deliveryFromRow(row)
	return &d, nil
}

// ListDeliveryLogs returns a webhook's most recent deliveries first.
func (s *Store) ListDeliveryLogs(ctx context.Context, webhookID int64, limit int) ([]model.DeliveryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.QueryRows(ctx, s.DB,
		"SELECT "+deliveryColumns+" FROM delivery_logs WHERE webhook_id = $1 ORDER BY id DESC LIMIT $2",
		webhookID, limit)
	if err != nil {
		return nil, err
	}
	logs := make([]model.DeliveryLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, deliveryFromRow(row))
	}
	return logs, nil
}

// DueRetries returns retrying deliveries whose next attempt is at or before now.
func (s *Store) DueRetries(ctx context.Context, now time.Time, limit int) ([]model.DeliveryLog, error) {
	rows, err := s.QueryRows(ctx, s.DB,
		"SELECT "+deliveryColumns+` FROM delivery_logs
		 WHERE status = $1 AND next_retry_at <= $2
		 ORDER BY next_retry_at LIMIT $3`,
		model.DeliveryRetrying, now.Unix(), limit)
	if err != nil {
		return nil, err
	}
	logs := make([]model.DeliveryLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, deliveryFromRow(row))
	}
	return logs, nil
}
