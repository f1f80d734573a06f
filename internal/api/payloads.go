package api

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
)

// contentBody is the authored part shared by payload and template bodies.
// Conditions come either as parallel form arrays (fields/operators/values)
// or as a conditions list.
type contentBody struct {
	ContentType model.ContentType `json:"content_type"`
	Content     string            `json:"content"`
	Params      json.RawMessage   `json:"params"`
	Fields      []string          `json:"fields"`
	Operators   []string          `json:"operators"`
	Values      []string          `json:"values"`
	Conditions  []model.Condition `json:"conditions"`
	// IDs lists existing conditions to keep unchanged on update.
	IDs []int64 `json:"ids"`
}

func (b *contentBody) input() engine.ContentInput {
	if b.ContentType == "" {
		b.ContentType = model.ContentText
	}
	return engine.ContentInput{
		ContentType: b.ContentType,
		Content:     b.Content,
		Params:      paramsText(b.Params),
		Conditions:  b.conditions(),
	}
}

// conditions returns the submitted conditions with each member trimmed.
// Form rows with an empty member are skipped; list entries are kept so
// validation can report them.
func (b *contentBody) conditions() []model.Condition {
	if len(b.Fields) > 0 || len(b.Operators) > 0 || len(b.Values) > 0 {
		return engine.NormalizeConditionRows(b.Fields, b.Operators, b.Values)
	}
	out := make([]model.Condition, 0, len(b.Conditions))
	for _, c := range b.Conditions {
		out = append(out, model.Condition{
			ID:       c.ID,
			Field:    strings.TrimSpace(c.Field),
			Operator: model.Operator(strings.TrimSpace(string(c.Operator))),
			Value:    strings.TrimSpace(c.Value),
		})
	}
	return out
}

// webhookPayload resolves the :webhook and :payload params. A payload of a
// different webhook is forbidden.
func (h *Handler) webhookPayload(c *fiber.Ctx, user *model.UserContext) (*model.Webhook, *model.Payload, error) {
	ctx := c.UserContext()
	wh, err := h.routeWebhook(c, user)
	if err != nil {
		return nil, nil, err
	}
	pid, err := parseID(c, "payload", "payload")
	if err != nil {
		return nil, nil, err
	}
	p, err := h.store.GetPayload(ctx, pid)
	if err != nil {
		return nil, nil, storeError(err, "payload", pid)
	}
	if p.WebhookID != wh.ID {
		return nil, nil, engine.ForbiddenError("Payload belongs to another webhook")
	}
	return wh, p, nil
}

func (h *Handler) routeWebhook(c *fiber.Ctx, user *model.UserContext) (*model.Webhook, error) {
	wid, err := parseID(c, "webhook", "webhook")
	if err != nil {
		return nil, err
	}
	return h.ownedWebhook(c.UserContext(), user, wid)
}

// ListPayloads handles GET /api/webhooks/:webhook/payloads
func (h *Handler) ListPayloads(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	wh, err := h.routeWebhook(c, user)
	if err != nil {
		return err
	}
	payloads, err := h.store.ListPayloads(c.UserContext(), wh.ID)
	if err != nil {
		return err
	}
	if payloads == nil {
		payloads = []model.Payload{}
	}
	return ok(c, payloads)
}

// GetPayload handles GET /api/webhooks/:webhook/payloads/:payload
func (h *Handler) GetPayload(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	_, p, err := h.webhookPayload(c, user)
	if err != nil {
		return err
	}
	return ok(c, p)
}

// CreatePayload handles POST /api/webhooks/:webhook/payloads. The payload
// is appended after the webhook's existing payloads.
func (h *Handler) CreatePayload(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	wh, err := h.routeWebhook(c, user)
	if err != nil {
		return err
	}

	var body contentBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	in := body.input()
	if err := engine.ValidatePayloadInput(in); err != nil {
		return err
	}

	p := &model.Payload{
		WebhookID:   wh.ID,
		ContentType: in.ContentType,
		Content:     in.Content,
		Params:      in.Params,
		Conditions:  in.Conditions,
	}
	if err := h.store.CreatePayload(c.UserContext(), p); err != nil {
		return storeError(err, "payload", 0)
	}
	h.registry.Invalidate(wh.ID)
	return created(c, p)
}

// UpdatePayload handles PUT /api/webhooks/:webhook/payloads/:payload. The
// stored condition list becomes the submitted conditions plus those listed
// in ids; everything else is deleted.
func (h *Handler) UpdatePayload(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	wh, p, err := h.webhookPayload(c, user)
	if err != nil {
		return err
	}

	var body contentBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	in := body.input()
	if err := engine.ValidatePayloadInput(in); err != nil {
		return err
	}

	p.ContentType = in.ContentType
	p.Content = in.Content
	p.Params = in.Params
	p.Conditions = in.Conditions
	if err := h.store.UpdatePayload(c.UserContext(), p, body.IDs); err != nil {
		return storeError(err, "payload", p.ID)
	}
	h.registry.Invalidate(wh.ID)
	return ok(c, p)
}

// DeletePayload handles DELETE /api/webhooks/:webhook/payloads/:payload
func (h *Handler) DeletePayload(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	wh, p, err := h.webhookPayload(c, user)
	if err != nil {
		return err
	}
	if err := h.store.DeletePayload(c.UserContext(), p.ID); err != nil {
		return storeError(err, "payload", p.ID)
	}
	h.registry.Invalidate(wh.ID)
	return ok(c, fiber.Map{"id": p.ID})
}
