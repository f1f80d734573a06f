package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"webhook-bot/internal/auth"
	"webhook-bot/internal/delivery"
	"webhook-bot/internal/engine"
	"webhook-bot/internal/instrument"
	"webhook-bot/internal/model"
	"webhook-bot/internal/store"
)

// Submitter hands a rendered message to the delivery layer.
type Submitter interface {
	Submit(ctx context.Context, msg delivery.Message) error
}

type Handler struct {
	store           *store.Store
	registry        *engine.Registry
	delivery        Submitter
	events          instrument.Recorder
	dispatchTimeout time.Duration
}

// NewHandler wires the API. A nil recorder disables trigger events.
func NewHandler(s *store.Store, reg *engine.Registry, sub Submitter, rec instrument.Recorder, dispatchTimeout time.Duration) *Handler {
	if dispatchTimeout <= 0 {
		dispatchTimeout = 2 * time.Second
	}
	if rec == nil {
		rec = instrument.NoopRecorder{}
	}
	return &Handler{store: s, registry: reg, delivery: sub, events: rec, dispatchTimeout: dispatchTimeout}
}

// RegisterRoutes mounts the authenticated API under /api and the public
// inbound trigger under /hooks.
func RegisterRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	app.Post("/hooks/:token", h.Trigger)

	handlers := append([]fiber.Handler{}, middleware...)
	api := app.Group("/api", handlers...)

	api.Get("/bots", h.ListBots)
	api.Post("/bots", h.CreateBot)
	api.Get("/bots/:id", h.GetBot)
	api.Put("/bots/:id", h.UpdateBot)
	api.Delete("/bots/:id", h.DeleteBot)

	api.Get("/webhooks", h.ListWebhooks)
	api.Post("/webhooks", h.CreateWebhook)
	api.Get("/webhooks/:id", h.GetWebhook)
	api.Put("/webhooks/:id", h.UpdateWebhook)
	api.Delete("/webhooks/:id", h.DeleteWebhook)
	api.Post("/webhooks/:id/dispatch", h.DryRun)
	api.Get("/webhooks/:id/deliveries", h.ListDeliveries)
	api.Get("/webhooks/:id/events", h.ListEvents)

	api.Get("/webhooks/:webhook/payloads", h.ListPayloads)
	api.Post("/webhooks/:webhook/payloads", h.CreatePayload)
	api.Get("/webhooks/:webhook/payloads/:payload", h.GetPayload)
	api.Put("/webhooks/:webhook/payloads/:payload", h.UpdatePayload)
	api.Delete("/webhooks/:webhook/payloads/:payload", h.DeletePayload)

	api.Get("/templates", h.ListTemplates)
	api.Post("/templates", h.CreateTemplate)
	api.Get("/templates/:id", h.GetTemplate)
	api.Put("/templates/:id", h.UpdateTemplate)
	api.Delete("/templates/:id", h.DeleteTemplate)
	api.Patch("/templates/:id/status", h.SetTemplateStatus)
	api.Post("/templates/:id/preview", h.PreviewTemplate)

	api.Post("/render", h.Render)
}

// ErrorHandler renders AppErrors in the standard envelope. Anything else
// is logged and reported as a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
		return c.Status(fiberErr.Code).JSON(engine.ErrorResponse{
			Error: &engine.AppError{Code: "HTTP_ERROR", Message: fiberErr.Message},
		})
	}

	log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(engine.ErrorResponse{
		Error: &engine.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}

func invalidBody() *engine.AppError {
	return engine.NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, "Invalid request body")
}

// parseID reads a positive integer route parameter.
func parseID(c *fiber.Ctx, name, entity string) (int64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, engine.NotFoundError(entity, raw)
	}
	return id, nil
}

// storeError maps store sentinels onto API errors.
func storeError(err error, entity string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return engine.NotFoundError(entity, id)
	case errors.Is(err, store.ErrUniqueViolation):
		return engine.ConflictError(fmt.Sprintf("%s already exists", entity))
	default:
		return err
	}
}

func currentUser(c *fiber.Ctx) (*model.UserContext, error) {
	user := auth.GetUser(c)
	if user == nil {
		return nil, engine.UnauthorizedError("Missing auth token")
	}
	return user, nil
}

// paramsText accepts params either as a JSON string or as an inline JSON
// document and returns the stored text form.
func paramsText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// eventValue decodes a request body as the event; an empty body is null.
func eventValue(body []byte) (engine.Value, error) {
	if len(body) == 0 {
		return engine.Null(), nil
	}
	v, err := engine.ParseJSON(body)
	if err != nil {
		return engine.Value{}, engine.NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, "Event must be valid JSON")
	}
	return v, nil
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}
