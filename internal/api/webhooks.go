package api

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
	"webhook-bot/internal/store"
)

type webhookBody struct {
	BotID       int64               `json:"bot_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	TargetURL   string              `json:"target_url"`
	Filter      string              `json:"filter"`
	Status      model.WebhookStatus `json:"status"`
}

func (b *webhookBody) validate() error {
	b.Name = strings.TrimSpace(b.Name)
	b.TargetURL = strings.TrimSpace(b.TargetURL)
	b.Filter = strings.TrimSpace(b.Filter)
	if b.Status == "" {
		b.Status = model.WebhookEnabled
	}

	var details []engine.ErrorDetail
	if b.Name == "" {
		details = append(details, engine.ErrorDetail{Field: "name", Rule: "required", Message: "name is required"})
	}
	if u, err := url.Parse(b.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		details = append(details, engine.ErrorDetail{Field: "target_url", Rule: "url", Message: "target_url must be an http(s) URL"})
	}
	if b.BotID <= 0 {
		details = append(details, engine.ErrorDetail{Field: "bot_id", Rule: "required", Message: "bot_id is required"})
	}
	if b.Status != model.WebhookEnabled && b.Status != model.WebhookDisabled {
		details = append(details, engine.ErrorDetail{Field: "status", Rule: "enum", Message: "status must be enabled or disabled"})
	}
	var appErr *engine.AppError
	if err := engine.ValidateFilter(b.Filter); errors.As(err, &appErr) {
		details = append(details, appErr.Details...)
	}
	if len(details) > 0 {
		return engine.ValidationError(details)
	}
	return nil
}

// ownedWebhook loads a webhook and checks that it belongs to the user.
func (h *Handler) ownedWebhook(ctx context.Context, user *model.UserContext, id int64) (*model.Webhook, error) {
	wh, err := h.store.GetWebhook(ctx, id)
	if err != nil {
		return nil, storeError(err, "webhook", id)
	}
	if wh.UserID != user.ID {
		return nil, engine.ForbiddenError("Webhook belongs to another user")
	}
	return wh, nil
}

// checkBot rejects a bot the user does not own as a validation failure.
func (h *Handler) checkBot(ctx context.Context, user *model.UserContext, botID int64) error {
	bot, err := h.store.GetBot(ctx, botID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && bot.UserID != user.ID) {
		return engine.ValidationError([]engine.ErrorDetail{{Field: "bot_id", Rule: "exists", Message: "bot not found"}})
	}
	return err
}

// ListWebhooks handles GET /api/webhooks
func (h *Handler) ListWebhooks(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	webhooks, err := h.store.ListWebhooks(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	if webhooks == nil {
		webhooks = []model.Webhook{}
	}
	return ok(c, webhooks)
}

// GetWebhook handles GET /api/webhooks/:id
func (h *Handler) GetWebhook(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "webhook")
	if err != nil {
		return err
	}
	wh, err := h.ownedWebhook(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return ok(c, wh)
}

// CreateWebhook handles POST /api/webhooks. The inbound token is generated.
func (h *Handler) CreateWebhook(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var body webhookBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	if err := body.validate(); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.checkBot(ctx, user, body.BotID); err != nil {
		return err
	}

	wh := &model.Webhook{
		UserID:      user.ID,
		BotID:       body.BotID,
		Name:        body.Name,
		Description: body.Description,
		TargetURL:   body.TargetURL,
		Token:       uuid.NewString(),
		Filter:      body.Filter,
		Status:      body.Status,
	}
	if err := h.store.CreateWebhook(ctx, wh); err != nil {
		return storeError(err, "webhook", body.Name)
	}
	return created(c, wh)
}

// UpdateWebhook handles PUT /api/webhooks/:id. The token is kept.
func (h *Handler) UpdateWebhook(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "webhook")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	wh, err := h.ownedWebhook(ctx, user, id)
	if err != nil {
		return err
	}

	var body webhookBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	if err := body.validate(); err != nil {
		return err
	}
	if err := h.checkBot(ctx, user, body.BotID); err != nil {
		return err
	}

	wh.BotID = body.BotID
	wh.Name = body.Name
	wh.Description = body.Description
	wh.TargetURL = body.TargetURL
	wh.Filter = body.Filter
	wh.Status = body.Status
	if err := h.store.UpdateWebhook(ctx, wh); err != nil {
		return storeError(err, "webhook", id)
	}
	h.registry.Invalidate(id)
	return ok(c, wh)
}

// DeleteWebhook handles DELETE /api/webhooks/:id
func (h *Handler) DeleteWebhook(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "webhook")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.ownedWebhook(ctx, user, id); err != nil {
		return err
	}
	if err := h.store.DeleteWebhook(ctx, id); err != nil {
		return storeError(err, "webhook", id)
	}
	h.registry.Invalidate(id)
	return ok(c, fiber.Map{"id": id})
}

// DryRun handles POST /api/webhooks/:id/dispatch. The request body is the
// event; the dispatch result is returned and nothing is delivered.
func (h *Handler) DryRun(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "webhook")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	wh, err := h.ownedWebhook(ctx, user, id)
	if err != nil {
		return err
	}
	event, err := eventValue(c.Body())
	if err != nil {
		return err
	}

	snap, err := h.snapshot(ctx, wh)
	if err != nil {
		return err
	}
	dctx, cancel := context.WithTimeout(ctx, h.dispatchTimeout)
	defer cancel()
	return ok(c, snap.Dispatch(dctx, event))
}

// ListDeliveries handles GET /api/webhooks/:id/deliveries?limit=N
func (h *Handler) ListDeliveries(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "webhook")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.ownedWebhook(ctx, user, id); err != nil {
		return err
	}
	logs, err := h.store.ListDeliveryLogs(ctx, id, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []model.DeliveryLog{}
	}
	return ok(c, logs)
}
