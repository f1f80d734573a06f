package instrument

import (
	"github.com/gofiber/fiber/v2"

	"webhook-bot/internal/store"
)

// EventHandler exposes trigger events to admins.
type EventHandler struct {
	store *store.Store
}

func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// List handles GET /api/admin/events?webhook_id=&status=&limit=
func (h *EventHandler) List(c *fiber.Ctx) error {
	events, err := h.store.ListTriggerEvents(c.UserContext(), store.TriggerEventFilter{
		WebhookID: int64(c.QueryInt("webhook_id")),
		Status:    c.Query("status"),
		Limit:     c.QueryInt("limit", 100),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": events})
}
