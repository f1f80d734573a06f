package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"webhook-bot/internal/delivery"
	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
	"webhook-bot/internal/store"
)

// snapshot returns the compiled dispatch view of a webhook, loading and
// caching it on a registry miss. The webhook row is reloaded after the
// registry generation is read so a concurrent write is never cached.
func (h *Handler) snapshot(ctx context.Context, wh *model.Webhook) (*engine.Snapshot, error) {
	snap, gen := h.registry.Get(wh.ID)
	if snap != nil {
		return snap, nil
	}
	fresh, err := h.store.GetWebhook(ctx, wh.ID)
	if err != nil {
		return nil, err
	}
	bot, payloads, err := h.store.LoadDispatchSet(ctx, fresh)
	if err != nil {
		return nil, err
	}
	snap, err = engine.NewSnapshot(*fresh, *bot, payloads)
	if err != nil {
		return nil, fmt.Errorf("compile webhook %d: %w", wh.ID, err)
	}
	h.registry.Put(snap, gen)
	return snap, nil
}

// triggerResponse reports what an inbound event caused.
type triggerResponse struct {
	Enabled   bool                   `json:"enabled"`
	Delivered bool                   `json:"delivered"`
	Result    *engine.DispatchResult `json:"result,omitempty"`
}

// Trigger handles POST /hooks/:token. The body is the event. When a payload
// matches and renders, exactly one message is handed to delivery. Every
// call on a known webhook is recorded as a trigger event.
func (h *Handler) Trigger(c *fiber.Ctx) error {
	token := c.Params("token")
	ctx := c.UserContext()

	wh, err := h.store.GetWebhookByToken(ctx, token)
	if err != nil {
		return storeError(err, "webhook", token)
	}

	start := time.Now()
	ev := model.TriggerEvent{WebhookID: wh.ID}
	defer func() {
		ev.DurationMs = float64(time.Since(start).Microseconds()) / 1000
		h.events.Record(ev)
	}()

	if !wh.Enabled() {
		ev.Status = model.TriggerDisabled
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": triggerResponse{}})
	}

	event, err := eventValue(c.Body())
	if err != nil {
		ev.Status, ev.Error = model.TriggerFailed, err.Error()
		return err
	}
	snap, err := h.snapshot(ctx, wh)
	if err != nil {
		ev.Status, ev.Error = model.TriggerFailed, err.Error()
		return err
	}

	dctx, cancel := context.WithTimeout(ctx, h.dispatchTimeout)
	defer cancel()
	result := snap.Dispatch(dctx, event)
	ev.PayloadID = result.PayloadID

	resp := triggerResponse{Enabled: true, Result: result}
	for _, ce := range result.ConditionErrors {
		log.Printf("WARN: webhook %d payload %d: %s", wh.ID, ce.PayloadID, ce.Message)
	}
	if result.Err != nil {
		log.Printf("WARN: webhook %d dispatch: %v", wh.ID, result.Err)
		ev.Status, ev.Error = model.TriggerFailed, result.Error
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": resp})
	}
	if !result.Matched {
		ev.Status = model.TriggerNoMatch
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": resp})
	}

	key := utils.CopyString(c.Get("Idempotency-Key"))
	if key == "" {
		key = uuid.NewString()
	}
	msg := delivery.Message{
		WebhookID:      wh.ID,
		PayloadID:      result.PayloadID,
		URL:            snap.Webhook.TargetURL,
		BotKey:         snap.Bot.BotKey,
		ContentType:    result.ContentType,
		Content:        result.Content,
		IdempotencyKey: key,
	}
	if err := h.delivery.Submit(ctx, msg); err != nil {
		ev.Status, ev.Error = model.TriggerFailed, err.Error()
		return err
	}
	ev.Status = model.TriggerSubmitted
	resp.Delivered = true
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": resp})
}

// ListEvents handles GET /api/webhooks/:id/events?status=&limit=
func (h *Handler) ListEvents(c *fiber.Ctx) error {
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
	events, err := h.store.ListTriggerEvents(ctx, store.TriggerEventFilter{
		WebhookID: id,
		Status:    c.Query("status"),
		Limit:     c.QueryInt("limit", 100),
	})
	if err != nil {
		return err
	}
	return ok(c, events)
}
