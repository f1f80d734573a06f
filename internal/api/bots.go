package api

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
	"webhook-bot/internal/store"
)

const maxBotFieldLength = 50

type botBody struct {
	Name   string `json:"name"`
	BotKey string `json:"bot_key"`
}

func (b *botBody) validate() error {
	b.Name = strings.TrimSpace(b.Name)
	b.BotKey = strings.TrimSpace(b.BotKey)

	var details []engine.ErrorDetail
	if b.Name == "" {
		details = append(details, engine.ErrorDetail{Field: "name", Rule: "required", Message: "name is required"})
	} else if utf8.RuneCountInString(b.Name) > maxBotFieldLength {
		details = append(details, engine.ErrorDetail{Field: "name", Rule: "max", Message: "name must be at most 50 characters"})
	}
	if b.BotKey == "" {
		details = append(details, engine.ErrorDetail{Field: "bot_key", Rule: "required", Message: "bot_key is required"})
	} else if utf8.RuneCountInString(b.BotKey) > maxBotFieldLength {
		details = append(details, engine.ErrorDetail{Field: "bot_key", Rule: "max", Message: "bot_key must be at most 50 characters"})
	}
	if len(details) > 0 {
		return engine.ValidationError(details)
	}
	return nil
}

// ownedBot loads a bot and checks that it belongs to the user.
func (h *Handler) ownedBot(ctx context.Context, user *model.UserContext, id int64) (*model.Bot, error) {
	bot, err := h.store.GetBot(ctx, id)
	if err != nil {
		return nil, storeError(err, "bot", id)
	}
	if bot.UserID != user.ID {
		return nil, engine.ForbiddenError("Bot belongs to another user")
	}
	return bot, nil
}

// invalidateBot drops cached snapshots of every webhook using the bot.
func (h *Handler) invalidateBot(ctx context.Context, bot *model.Bot) error {
	webhooks, err := h.store.ListWebhooks(ctx, bot.UserID)
	if err != nil {
		return err
	}
	for _, wh := range webhooks {
		if wh.BotID == bot.ID {
			h.registry.Invalidate(wh.ID)
		}
	}
	return nil
}

var errBotInUse = engine.ConflictError("This bot has been added to some webhooks, please remove it first")

// ListBots handles GET /api/bots
func (h *Handler) ListBots(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	bots, err := h.store.ListBots(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	if bots == nil {
		bots = []model.Bot{}
	}
	return ok(c, bots)
}

// GetBot handles GET /api/bots/:id
func (h *Handler) GetBot(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "bot")
	if err != nil {
		return err
	}
	bot, err := h.ownedBot(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return ok(c, bot)
}

// CreateBot handles POST /api/bots
func (h *Handler) CreateBot(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var body botBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	if err := body.validate(); err != nil {
		return err
	}

	bot := &model.Bot{UserID: user.ID, Name: body.Name, BotKey: body.BotKey}
	if err := h.store.CreateBot(c.UserContext(), bot); err != nil {
		return storeError(err, "bot", body.Name)
	}
	return created(c, bot)
}

// UpdateBot handles PUT /api/bots/:id
func (h *Handler) UpdateBot(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "bot")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	bot, err := h.ownedBot(ctx, user, id)
	if err != nil {
		return err
	}

	var body botBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	if err := body.validate(); err != nil {
		return err
	}

	bot.Name = body.Name
	bot.BotKey = body.BotKey
	if err := h.store.UpdateBot(ctx, bot); err != nil {
		return storeError(err, "bot", id)
	}
	if err := h.invalidateBot(ctx, bot); err != nil {
		return err
	}
	return ok(c, bot)
}

// DeleteBot handles DELETE /api/bots/:id. A bot still used by a webhook
// cannot be deleted.
func (h *Handler) DeleteBot(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "bot")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.ownedBot(ctx, user, id); err != nil {
		return err
	}
	inUse, err := h.store.BotInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return errBotInUse
	}
	if err := h.store.DeleteBot(ctx, id); err != nil {
		if errors.Is(err, store.ErrForeignKeyViolation) {
			return errBotInUse
		}
		return storeError(err, "bot", id)
	}
	return ok(c, fiber.Map{"id": id})
}
