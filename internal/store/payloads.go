package store

import (
	"context"
	"database/sql"
	"fmt"

	"webhook-bot/internal/model"
)

const payloadColumns = "id, webhook_id, content_type, content, params, position"

func payloadFromRow(row map[string]any) model.Payload {
	return model.Payload{
		ID:          asInt64(row["id"]),
		WebhookID:   asInt64(row["webhook_id"]),
		ContentType: model.ContentType(asString(row["content_type"])),
		Content:     asString(row["content"]),
		Params:      asString(row["params"]),
		Position:    asInt(row["position"]),
		Conditions:  []model.Condition{},
	}
}

// ListPayloads returns a webhook's payloads in dispatch order, each with
// its conditions.
func (s *Store) ListPayloads(ctx context.Context, webhookID int64) ([]model.Payload, error) {
	rows, err := s.QueryRows(ctx, s.DB,
		"SELECT "+payloadColumns+" FROM payloads WHERE webhook_id = $1 ORDER BY position, id", webhookID)
	if err != nil {
		return nil, err
	}

	payloads := make([]model.Payload, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		p := payloadFromRow(row)
		payloads = append(payloads, p)
		ids = append(ids, p.ID)
	}

	conds, err := s.loadConditions(ctx, s.DB, ownerPayload, ids)
	if err != nil {
		return nil, err
	}
	for i := range payloads {
		if c, ok := conds[payloads[i].ID]; ok {
			payloads[i].Conditions = c
		}
	}
	return payloads, nil
}

func (s *Store) GetPayload(ctx context.Context, id int64) (*model.Payload, error) {
	return s.getPayload(ctx, s.DB, id)
}

func (s *Store) getPayload(ctx context.Context, q Querier, id int64) (*model.Payload, error) {
	row, err := s.QueryRow(ctx, q, "SELECT "+payloadColumns+" FROM payloads WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	p := payloadFromRow(row)
	conds, err := s.loadConditions(ctx, q, ownerPayload, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	if c, ok := conds[p.ID]; ok {
		p.Conditions = c
	}
	return &p, nil
}

// CreatePayload appends a payload to the end of its webhook's list and
// stores its conditions in the given order.
func (s *Store) CreatePayload(ctx context.Context, p *model.Payload) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		row, err := s.QueryRow(ctx, tx,
			"SELECT COALESCE(MAX(position), -1) + 1 AS next_pos FROM payloads WHERE webhook_id = $1", p.WebhookID)
		if err != nil {
			return err
		}
		p.Position = asInt(row["next_pos"])

		id, err := s.InsertID(ctx, tx,
			`INSERT INTO payloads (webhook_id, content_type, content, params, position)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			p.WebhookID, string(p.ContentType), p.Content, p.Params, p.Position)
		if err != nil {
			return err
		}
		p.ID = id

		conds, err := s.insertConditions(ctx, tx, ownerPayload, id, p.Conditions)
		if err != nil {
			return fmt.Errorf("insert conditions: %w", err)
		}
		p.Conditions = conds
		return nil
	})
}

// UpdatePayload rewrites the payload content and reconciles its
// conditions. Existing conditions whose ids are not in keepIDs and not
// submitted are deleted. The stored payload is reloaded into p.
func (s *Store) UpdatePayload(ctx context.Context, p *model.Payload, keepIDs []int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := s.Exec(ctx, tx,
			"UPDATE payloads SET content_type = $1, content = $2, params = $3 WHERE id = $4",
			string(p.ContentType), p.Content, p.Params, p.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := s.reconcileConditions(ctx, tx, ownerPayload, p.ID, p.Conditions, keepIDs); err != nil {
			return err
		}
		stored, err := s.getPayload(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		*p = *stored
		return nil
	})
}

// DeletePayload removes a payload; its conditions cascade.
func (s *Store) DeletePayload(ctx context.Context, id int64) error {
	n, err := s.Exec(ctx, s.DB, "DELETE FROM payloads WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
