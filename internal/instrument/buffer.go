package instrument

import (
	"context"
	"log"
	"sync"
	"time"

	"webhook-bot/internal/model"
)

// Recorder receives one event per inbound webhook call.
type Recorder interface {
	Record(e model.TriggerEvent)
}

// EventWriter persists a batch of events. *store.Store implements it.
type EventWriter interface {
	InsertTriggerEvents(ctx context.Context, events []model.TriggerEvent) error
}

// EventBuffer collects events in memory and periodically flushes them
// to the trigger_events table in a batch insert.
type EventBuffer struct {
	mu      sync.Mutex
	events  []model.TriggerEvent
	writer  EventWriter
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	flushes sync.WaitGroup
}

// NewEventBuffer creates a buffer that flushes on a timer or when full.
func NewEventBuffer(w EventWriter, maxSize int, flushInterval time.Duration) *EventBuffer {
	if maxSize <= 0 {
		maxSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	eb := &EventBuffer{
		writer:  w,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	eb.ticker = time.NewTicker(flushInterval)
	go eb.run()
	return eb
}

func (eb *EventBuffer) run() {
	for {
		select {
		case <-eb.done:
			return
		case <-eb.ticker.C:
			eb.Flush()
		}
	}
}

// Record adds an event to the buffer. If the buffer is full, a flush
// is triggered asynchronously.
func (eb *EventBuffer) Record(e model.TriggerEvent) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	eb.mu.Lock()
	eb.events = append(eb.events, e)
	shouldFlush := len(eb.events) >= eb.maxSize
	eb.mu.Unlock()
	if shouldFlush {
		eb.flushes.Add(1)
		go func() {
			defer eb.flushes.Done()
			eb.Flush()
		}()
	}
}

// Flush writes all buffered events in a single batch insert.
func (eb *EventBuffer) Flush() {
	eb.mu.Lock()
	if len(eb.events) == 0 {
		eb.mu.Unlock()
		return
	}
	batch := eb.events
	eb.events = nil
	eb.mu.Unlock()

	if err := eb.writer.InsertTriggerEvents(context.Background(), batch); err != nil {
		log.Printf("ERROR: event buffer insert (%d events dropped): %v", len(batch), err)
	}
}

// Stop halts the background ticker and flushes remaining events.
func (eb *EventBuffer) Stop() {
	if eb.ticker != nil {
		eb.ticker.Stop()
	}
	close(eb.done)
	eb.flushes.Wait()
	eb.Flush()
}

var _ Recorder = (*EventBuffer)(nil)
