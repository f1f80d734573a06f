package store

import (
	"context"
	"fmt"

	"webhook-bot/internal/model"
)

const webhookColumns = "id, user_id, bot_id, name, description, target_url, token, filter, status"

func webhookFromRow(row map[string]any) model.Webhook {
	return model.Webhook{
		ID:          asInt64(row["id"]),
		UserID:      asInt64(row["user_id"]),
		BotID:       asInt64(row["bot_id"]),
		Name:        asString(row["name"]),
		Description: asString(row["description"]),
		TargetURL:   asString(row["target_url"]),
		Token:       asString(row["token"]),
		Filter:      asString(row["filter"]),
		Status:      model.WebhookStatus(asString(row["status"])),
	}
}

func (s *Store) ListWebhooks(ctx context.Context, userID int64) ([]model.Webhook, error) {
	rows, err := s.QueryRows(ctx, s.DB,
		"SELECT "+webhookColumns+" FROM webhooks WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	hooks := make([]model.Webhook, 0, len(rows))
	for _, row := range rows {
		hooks = append(hooks, webhookFromRow(row))
	}
	return hooks, nil
}

func (s *Store) GetWebhook(ctx context.Context, id int64) (*model.Webhook, error) {
	row, err := s.QueryRow(ctx, s.DB, "SELECT "+webhookColumns+" FROM webhooks WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	wh := webhookFromRow(row)
	return &wh, nil
}

func (s *Store) GetWebhookByToken(ctx context.Context, token string) (*model.Webhook, error) {
	row, err := s.QueryRow(ctx, s.DB, "SELECT "+webhookColumns+" FROM webhooks WHERE token = $1", token)
	if err != nil {
		return nil, err
	}
	wh := webhookFromRow(row)
	return &wh, nil
}

func (s *Store) CreateWebhook(ctx context.Context, wh *model.Webhook) error {
	if wh.Status == "" {
		wh.Status = model.WebhookEnabled
	}
	id, err := s.InsertID(ctx, s.DB,
		`INSERT INTO webhooks (user_id, bot_id, name, description, target_url, token, filter, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		wh.UserID, wh.BotID, wh.Name, wh.Description, wh.TargetURL, wh.Token, wh.Filter, string(wh.Status))
	if err != nil {
		return err
	}
	wh.ID = id
	return nil
}

func (s *Store) UpdateWebhook(ctx context.Context, wh *model.Webhook) error {
	n, err := s.Exec(ctx, s.DB,
		`UPDATE webhooks SET bot_id = $1, name = $2, description = $3, target_url = $4, filter = $5, status = $6
		 WHERE id = $7`,
		wh.BotID, wh.Name, wh.Description, wh.TargetURL, wh.Filter, string(wh.Status), wh.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, id int64) error {
	n, err := s.Exec(ctx, s.DB, "DELETE FROM webhooks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadDispatchSet loads a webhook's bot and its payloads with conditions,
// everything the dispatcher needs to build a snapshot.
func (s *Store) LoadDispatchSet(ctx context.Context, wh *model.Webhook) (*model.Bot, []model.Payload, error) {
	bot, err := s.GetBot(ctx, wh.BotID)
	if err != nil {
		return nil, nil, fmt.Errorf("load bot %d: %w", wh.BotID, err)
	}
	payloads, err := s.ListPayloads(ctx, wh.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load payloads: %w", err)
	}
	return bot, payloads, nil
}
