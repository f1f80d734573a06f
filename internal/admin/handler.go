package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
	"webhook-bot/internal/store"
)

// Handler serves the template review queue for admins.
type Handler struct {
	store *store.Store
}

func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s}
}

// RegisterAdminRoutes mounts the admin endpoints and returns the group so
// other admin views can be added. The given middleware must authenticate
// the user and require the admin role.
func RegisterAdminRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) fiber.Router {
	handlers := append([]fiber.Handler{}, middleware...)
	admin := app.Group("/api/admin", handlers...)

	admin.Get("/templates", h.ListTemplates)
	admin.Get("/templates/:id", h.GetTemplate)
	admin.Patch("/templates/:id/status", h.SetTemplateStatus)
	return admin
}

// --- Template review ---

// ListTemplates handles GET /api/admin/templates?status=reviewing across
// all users.
func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	status := model.TemplateStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		return engine.ValidationError([]engine.ErrorDetail{{Field: "status", Rule: "enum", Message: "unknown status"}})
	}
	templates, err := h.store.ListTemplates(c.UserContext(), store.TemplateFilter{Status: status})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templates})
}

func (h *Handler) GetTemplate(c *fiber.Ctx) error {
	id, err := templateID(c)
	if err != nil {
		return err
	}
	t, err := h.store.GetTemplate(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("template", id)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": t})
}

// SetTemplateStatus handles PATCH /api/admin/templates/:id/status: approve
// to public or send back to private.
func (h *Handler) SetTemplateStatus(c *fiber.Ctx) error {
	id, err := templateID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status model.TemplateStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	if !body.Status.Valid() {
		return engine.ValidationError([]engine.ErrorDetail{{Field: "status", Rule: "enum", Message: "status must be private, reviewing or public"}})
	}

	ctx := c.UserContext()
	if err := h.store.SetTemplateStatus(ctx, id, body.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("template", id)
		}
		return err
	}
	t, err := h.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": t})
}

func templateID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, engine.NotFoundError("template", raw)
	}
	return id, nil
}
