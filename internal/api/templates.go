package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
	"webhook-bot/internal/store"
)

type templateBody struct {
	Name string `json:"name"`
	contentBody
}

// visibleTemplate loads a template the user may read.
func (h *Handler) visibleTemplate(ctx context.Context, user *model.UserContext, id int64) (*model.Template, error) {
	t, err := h.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, storeError(err, "template", id)
	}
	if !t.VisibleTo(user) {
		return nil, engine.ForbiddenError("Template is not visible to you")
	}
	return t, nil
}

// ownedTemplate loads a template the user may modify.
func (h *Handler) ownedTemplate(ctx context.Context, user *model.UserContext, id int64) (*model.Template, error) {
	t, err := h.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, storeError(err, "template", id)
	}
	if t.UserID != user.ID && !user.IsAdmin() {
		return nil, engine.ForbiddenError("Template belongs to another user")
	}
	return t, nil
}

func (h *Handler) checkTemplateName(ctx context.Context, userID int64, name string) error {
	exists, err := h.store.TemplateNameExists(ctx, userID, name)
	if err != nil {
		return err
	}
	if exists {
		return engine.ConflictError("A template named " + name + " already exists")
	}
	return nil
}

// ListTemplates handles GET /api/templates?status=. Returns the user's own
// templates plus public ones.
func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	f := store.TemplateFilter{VisibleTo: user.ID, Status: model.TemplateStatus(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		return engine.ValidationError([]engine.ErrorDetail{{Field: "status", Rule: "enum", Message: "unknown status"}})
	}
	templates, err := h.store.ListTemplates(c.UserContext(), f)
	if err != nil {
		return err
	}
	return ok(c, templates)
}

// GetTemplate handles GET /api/templates/:id
func (h *Handler) GetTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "template")
	if err != nil {
		return err
	}
	t, err := h.visibleTemplate(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return ok(c, t)
}

// CreateTemplate handles POST /api/templates. New templates are private.
func (h *Handler) CreateTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var body templateBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	body.Name = strings.TrimSpace(body.Name)
	in := body.input()
	if err := engine.ValidateTemplateInput(body.Name, in); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.checkTemplateName(ctx, user.ID, body.Name); err != nil {
		return err
	}

	t := &model.Template{
		UserID:      user.ID,
		Name:        body.Name,
		ContentType: in.ContentType,
		Content:     in.Content,
		Params:      in.Params,
		Status:      model.StatusPrivate,
		Conditions:  in.Conditions,
	}
	if err := h.store.CreateTemplate(ctx, t); err != nil {
		return storeError(err, "template", body.Name)
	}
	return created(c, t)
}

// UpdateTemplate handles PUT /api/templates/:id. Conditions reconcile the
// same way payload conditions do.
func (h *Handler) UpdateTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "template")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	t, err := h.ownedTemplate(ctx, user, id)
	if err != nil {
		return err
	}

	var body templateBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	body.Name = strings.TrimSpace(body.Name)
	in := body.input()
	if err := engine.ValidateTemplateInput(body.Name, in); err != nil {
		return err
	}
	if body.Name != t.Name {
		if err := h.checkTemplateName(ctx, t.UserID, body.Name); err != nil {
			return err
		}
	}

	t.Name = body.Name
	t.ContentType = in.ContentType
	t.Content = in.Content
	t.Params = in.Params
	t.Conditions = in.Conditions
	if err := h.store.UpdateTemplate(ctx, t, body.IDs); err != nil {
		return storeError(err, "template", id)
	}
	return ok(c, t)
}

// DeleteTemplate handles DELETE /api/templates/:id
func (h *Handler) DeleteTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "template")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.ownedTemplate(ctx, user, id); err != nil {
		return err
	}
	if err := h.store.DeleteTemplate(ctx, id); err != nil {
		return storeError(err, "template", id)
	}
	return ok(c, fiber.Map{"id": id})
}

type statusBody struct {
	Status model.TemplateStatus `json:"status"`
}

// SetTemplateStatus handles PATCH /api/templates/:id/status. Owners may
// submit a template for review or take it back to private; publishing is
// an admin action.
func (h *Handler) SetTemplateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "template")
	if err != nil {
		return err
	}
	var body statusBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	if !body.Status.Valid() {
		return engine.ValidationError([]engine.ErrorDetail{{Field: "status", Rule: "enum", Message: "status must be private, reviewing or public"}})
	}
	if body.Status == model.StatusPublic && !user.IsAdmin() {
		return engine.ForbiddenError("Only admins can publish templates")
	}

	ctx := c.UserContext()
	t, err := h.ownedTemplate(ctx, user, id)
	if err != nil {
		return err
	}
	if err := h.store.SetTemplateStatus(ctx, id, body.Status); err != nil {
		return storeError(err, "template", id)
	}
	t.Status = body.Status
	return ok(c, t)
}

type previewBody struct {
	Event json.RawMessage `json:"event"`
}

// TemplatePreview is a template rendered against an event together with
// whether its conditions hold for that event.
type TemplatePreview struct {
	engine.Rendered
	Matched        bool   `json:"matched"`
	ConditionError string `json:"condition_error,omitempty"`
}

// PreviewTemplate handles POST /api/templates/:id/preview. Without an event
// the template's params document is used as the sample event.
func (h *Handler) PreviewTemplate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "template")
	if err != nil {
		return err
	}
	t, err := h.visibleTemplate(c.UserContext(), user, id)
	if err != nil {
		return err
	}

	var body previewBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return invalidBody()
		}
	}
	event, err := sampleEvent(body.Event, t.Params)
	if err != nil {
		return err
	}

	rendered, err := engine.Render(t.ContentType, t.Content, t.Params, event)
	if err != nil {
		return renderError(err)
	}
	preview := TemplatePreview{Rendered: *rendered}
	matched, err := engine.Matches(event, engine.CompileConditions(t.Conditions))
	if err != nil {
		preview.ConditionError = err.Error()
	}
	preview.Matched = matched
	return ok(c, preview)
}

type renderBody struct {
	ContentType model.ContentType `json:"content_type"`
	Content     string            `json:"content"`
	Params      json.RawMessage   `json:"params"`
	Event       json.RawMessage   `json:"event"`
}

// Render handles POST /api/render: renders unsaved content for preview.
func (h *Handler) Render(c *fiber.Ctx) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	var body renderBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody()
	}
	if body.ContentType == "" {
		body.ContentType = model.ContentText
	}
	params := paramsText(body.Params)
	event, err := sampleEvent(body.Event, params)
	if err != nil {
		return err
	}
	rendered, err := engine.Render(body.ContentType, body.Content, params, event)
	if err != nil {
		return renderError(err)
	}
	return ok(c, rendered)
}

// sampleEvent decodes the request event, falling back to the params
// document. Params that are not JSON give a null event.
func sampleEvent(raw json.RawMessage, params string) (engine.Value, error) {
	if len(raw) > 0 && string(raw) != "null" {
		return eventValue(raw)
	}
	if strings.TrimSpace(params) == "" {
		return engine.Null(), nil
	}
	v, err := engine.ParseJSON([]byte(params))
	if err != nil {
		return engine.Null(), nil
	}
	return v, nil
}

func renderError(err error) error {
	var re *engine.RenderError
	if errors.As(err, &re) {
		return &engine.AppError{
			Code:    "RENDER_FAILED",
			Status:  fiber.StatusUnprocessableEntity,
			Message: re.Error(),
			Details: []engine.ErrorDetail{{Field: "content", Rule: string(re.Kind), Message: re.Error()}},
		}
	}
	return err
}
