package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// TypeDeliverySend is the asynq task type for queued deliveries.
const TypeDeliverySend = "delivery:send"

// AsynqEnqueuer publishes messages as asynq tasks.
type AsynqEnqueuer struct {
	client *asynq.Client
	queue  string
}

func NewAsynqEnqueuer(client *asynq.Client, queue string) *AsynqEnqueuer {
	if queue == "" {
		queue = "default"
	}
	return &AsynqEnqueuer{client: client, queue: queue}
}

// NewTask encodes msg as a delivery task. The idempotency key doubles as
// the task id so a message is queued at most once.
func NewTask(msg Message) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal message: %w", err)
	}
	opts := []asynq.Option{
		// Failed sends are retried from the delivery log, not by asynq.
		asynq.MaxRetry(0),
		asynq.Retention(24 * time.Hour),
	}
	if msg.IdempotencyKey != "" {
		opts = append(opts, asynq.TaskID(msg.IdempotencyKey))
	}
	return asynq.NewTask(TypeDeliverySend, payload), opts, nil
}

func (e *AsynqEnqueuer) Enqueue(ctx context.Context, msg Message) error {
	task, opts, err := NewTask(msg)
	if err != nil {
		return err
	}
	opts = append(opts, asynq.Queue(e.queue))

	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not schedule task: %w", err)
	}
	log.Printf("enqueued delivery: id=%s queue=%s", info.ID, info.Queue)
	return nil
}

var _ Enqueuer = (*AsynqEnqueuer)(nil)

// NewTaskHandler returns the worker handler for delivery tasks. Payloads
// that cannot be decoded are dropped without retry.
func NewTaskHandler(svc *Service) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var msg Message
		if err := json.Unmarshal(task.Payload(), &msg); err != nil {
			return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
		}
		if msg.URL == "" {
			return fmt.Errorf("message for webhook %d has no url: %w", msg.WebhookID, asynq.SkipRetry)
		}
		if _, err := svc.Deliver(ctx, msg); err != nil {
			return fmt.Errorf("deliver: %w", err)
		}
		return nil
	}
}

// LoggingMiddleware logs each processed task with its duration.
func LoggingMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := h.ProcessTask(ctx, t)
		if err != nil {
			log.Printf("ERROR: task %s failed after %s: %v", t.Type(), time.Since(start), err)
			return err
		}
		log.Printf("task %s processed in %s", t.Type(), time.Since(start))
		return nil
	})
}

// NewServeMux wires the delivery handler into an asynq mux.
func NewServeMux(svc *Service) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(LoggingMiddleware)
	mux.Handle(TypeDeliverySend, NewTaskHandler(svc))
	return mux
}
