package instrument

import "webhook-bot/internal/model"

// NoopRecorder discards all events. Used when event recording is disabled.
type NoopRecorder struct{}

func (NoopRecorder) Record(model.TriggerEvent) {}
