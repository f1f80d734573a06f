package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"webhook-bot/internal/model"
)

// TriggerEventFilter narrows ListTriggerEvents. Zero values mean no restriction.
type TriggerEventFilter struct {
	WebhookID int64
	Status    string
	Limit     int
}

// InsertTriggerEvents writes a batch of events in one statement.
func (s *Store) InsertTriggerEvents(ctx context.Context, events []model.TriggerEvent) error {
	if len(events) == 0 {
		return nil
	}
	pb := s.Dialect.NewParamBuilder()
	rows := make([]string, 0, len(events))
	for _, e := range events {
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		rows = append(rows, fmt.Sprintf("(%s, %s, %s, %s, %s, %s)",
			pb.Add(e.WebhookID), pb.Add(e.PayloadID), pb.Add(e.Status),
			pb.Add(e.Error), pb.Add(e.DurationMs), pb.Add(created.Unix())))
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := s.Exec(ctx, tx,
			"INSERT INTO trigger_events (webhook_id, payload_id, status, error, duration_ms, created_at) VALUES "+
				strings.Join(rows, ", "),
			pb.Params()...)
		return err
	})
}

// ListTriggerEvents returns matching events, newest first.
func (s *Store) ListTriggerEvents(ctx context.Context, f TriggerEventFilter) ([]model.TriggerEvent, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	pb := s.Dialect.NewParamBuilder()
	where := "1=1"
	if f.WebhookID != 0 {
		where += " AND webhook_id = " + pb.Add(f.WebhookID)
	}
	if f.Status != "" {
		where += " AND status = " + pb.Add(f.Status)
	}
	limit := pb.Add(f.Limit)

	rows, err := s.QueryRows(ctx, s.DB,
		"SELECT id, webhook_id, payload_id, status, error, duration_ms, created_at FROM trigger_events WHERE "+
			where+" ORDER BY id DESC LIMIT "+limit,
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	events := make([]model.TriggerEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, model.TriggerEvent{
			ID:         asInt64(row["id"]),
			WebhookID:  asInt64(row["webhook_id"]),
			PayloadID:  asInt64(row["payload_id"]),
			Status:     asString(row["status"]),
			Error:      asString(row["error"]),
			DurationMs: asFloat64(row["duration_ms"]),
			CreatedAt:  time.Unix(asInt64(row["created_at"]), 0).UTC(),
		})
	}
	return events, nil
}

// DeleteTriggerEventsBefore removes events created before cutoff.
func (s *Store) DeleteTriggerEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.Exec(ctx, s.DB, "DELETE FROM trigger_events WHERE created_at < $1", cutoff.Unix())
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		var out float64
		fmt.Sscan(n, &out)
		return out
	}
	return 0
}
