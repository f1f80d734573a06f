package store

import (
	"context"

	"webhook-bot/internal/model"
)

const botColumns = "id, user_id, name, bot_key"

func botFromRow(row map[string]any) model.Bot {
	return model.Bot{
		ID:     asInt64(row["id"]),
		UserID: asInt64(row["user_id"]),
		Name:   asString(row["name"]),
		BotKey: asString(row["bot_key"]),
	}
}

func (s *Store) ListBots(ctx context.Context, userID int64) ([]model.Bot, error) {
	rows, err := s.QueryRows(ctx, s.DB,
		"SELECT "+botColumns+" FROM bots WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	bots := make([]model.Bot, 0, len(rows))
	for _, row := range rows {
		bots = append(bots, botFromRow(row))
	}
	return bots, nil
}

func (s *Store) GetBot(ctx context.Context, id int64) (*model.Bot, error) {
	row, err := s.QueryRow(ctx, s.DB, "SELECT "+botColumns+" FROM bots WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	b := botFromRow(row)
	return &b, nil
}

func (s *Store) CreateBot(ctx context.Context, b *model.Bot) error {
	id, err := s.InsertID(ctx, s.DB,
		"INSERT INTO bots (user_id, name, bot_key) VALUES ($1, $2, $3) RETURNING id",
		b.UserID, b.Name, b.BotKey)
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (s *Store) UpdateBot(ctx context.Context, b *model.Bot) error {
	n, err := s.Exec(ctx, s.DB,
		"UPDATE bots SET name = $1, bot_key = $2 WHERE id = $3",
		b.Name, b.BotKey, b.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBot(ctx context.Context, id int64) error {
	n, err := s.Exec(ctx, s.DB, "DELETE FROM bots WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BotInUse reports whether any webhook still posts through the bot.
func (s *Store) BotInUse(ctx context.Context, id int64) (bool, error) {
	rows, err := s.QueryRows(ctx, s.DB, "SELECT id FROM webhooks WHERE bot_id = $1 LIMIT 1", id)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
