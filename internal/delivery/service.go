package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"webhook-bot/internal/model"
)

//go:generate mockgen -source=service.go -destination=mock_service.go -package=delivery

// LogStore persists delivery attempts. *store.Store implements it.
type LogStore interface {
	CreateDeliveryLog(ctx context.Context, d *model.DeliveryLog) error
	UpdateDeliveryLog(ctx context.Context, d *model.DeliveryLog) error
	DueRetries(ctx context.Context, now time.Time, limit int) ([]model.DeliveryLog, error)
	GetWebhook(ctx context.Context, id int64) (*model.Webhook, error)
	GetBot(ctx context.Context, id int64) (*model.Bot, error)
}

// Enqueuer hands a message to a background queue instead of sending inline.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg Message) error
}

type Options struct {
	MaxAttempts   int
	RetryInterval time.Duration
	// Enqueuer switches the service to queue mode when set.
	Enqueuer Enqueuer
}

// Service sends rendered messages and records every attempt.
type Service struct {
	store         LogStore
	sender        Sender
	enqueuer      Enqueuer
	maxAttempts   int
	retryInterval time.Duration
	now           func() time.Time
	wg            sync.WaitGroup
}

func NewService(store LogStore, sender Sender, opts Options) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 30 * time.Second
	}
	return &Service{
		store:         store,
		sender:        sender,
		enqueuer:      opts.Enqueuer,
		maxAttempts:   opts.MaxAttempts,
		retryInterval: opts.RetryInterval,
		now:           time.Now,
	}
}

// Submit schedules a message for delivery. In queue mode it is enqueued;
// otherwise it is sent from a background goroutine.
func (s *Service) Submit(ctx context.Context, msg Message) error {
	if s.enqueuer != nil {
		if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
			return fmt.Errorf("enqueue delivery: %w", err)
		}
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Deliver(context.Background(), msg); err != nil {
			log.Printf("ERROR: delivery for webhook %d: %v", msg.WebhookID, err)
		}
	}()
	return nil
}

// Wait blocks until inline deliveries started by Submit have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Deliver makes the first attempt for msg and logs it. A failed attempt is
// logged as retrying (or failed when no attempts remain); only logging
// errors are returned.
func (s *Service) Deliver(ctx context.Context, msg Message) (*model.DeliveryLog, error) {
	req, err := BuildRequest(msg)
	if err != nil {
		return nil, err
	}
	result := s.sender.Send(ctx, req)

	entry := &model.DeliveryLog{
		WebhookID:      msg.WebhookID,
		PayloadID:      msg.PayloadID,
		URL:            msg.URL,
		RequestBody:    string(req.Body),
		MaxAttempts:    s.maxAttempts,
		IdempotencyKey: msg.IdempotencyKey,
	}
	s.applyResult(entry, 1, result)

	if err := s.store.CreateDeliveryLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("log delivery: %w", err)
	}
	if entry.Status == model.DeliveryFailed {
		log.Printf("WARN: delivery to %s failed: %s", msg.URL, entry.Error)
	}
	return entry, nil
}

// Retry makes the next attempt for a logged delivery.
func (s *Service) Retry(ctx context.Context, entry model.DeliveryLog) (*model.DeliveryLog, error) {
	wh, err := s.store.GetWebhook(ctx, entry.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("load webhook %d: %w", entry.WebhookID, err)
	}
	bot, err := s.store.GetBot(ctx, wh.BotID)
	if err != nil {
		return nil, fmt.Errorf("load bot %d: %w", wh.BotID, err)
	}

	result := s.sender.Send(ctx, Request{
		URL:            entry.URL,
		BotKey:         bot.BotKey,
		IdempotencyKey: entry.IdempotencyKey,
		Body:           []byte(entry.RequestBody),
	})
	s.applyResult(&entry, entry.Attempt+1, result)

	if err := s.store.UpdateDeliveryLog(ctx, &entry); err != nil {
		return nil, fmt.Errorf("update delivery %d: %w", entry.ID, err)
	}
	switch entry.Status {
	case model.DeliveryDelivered:
		log.Printf("Delivery retry succeeded: log=%d attempt=%d", entry.ID, entry.Attempt)
	case model.DeliveryFailed:
		log.Printf("Delivery retries exhausted: log=%d attempt=%d/%d", entry.ID, entry.Attempt, entry.MaxAttempts)
	}
	return &entry, nil
}

// ProcessRetries retries every delivery that is due.
func (s *Service) ProcessRetries(ctx context.Context) error {
	due, err := s.store.DueRetries(ctx, s.now(), 50)
	if err != nil {
		return fmt.Errorf("load due retries: %w", err)
	}
	var errs []error
	for _, entry := range due {
		if _, err := s.Retry(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// applyResult sets status, attempt and next retry time from an attempt
// result. Backoff is retryInterval * 2^attempt.
func (s *Service) applyResult(entry *model.DeliveryLog, attempt int, result *Result) {
	entry.Attempt = attempt
	entry.ResponseStatus = result.StatusCode
	entry.ResponseBody = result.ResponseBody
	entry.Error = result.Failure()
	entry.NextRetryAt = nil

	switch {
	case result.OK():
		entry.Status = model.DeliveryDelivered
	case attempt >= entry.MaxAttempts:
		entry.Status = model.DeliveryFailed
	default:
		entry.Status = model.DeliveryRetrying
		backoff := time.Duration(math.Pow(2, float64(attempt))) * s.retryInterval
		next := s.now().Add(backoff)
		entry.NextRetryAt = &next
	}
}
