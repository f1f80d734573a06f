package delivery

import (
	"context"
	"log"
	"time"
)

// Scheduler retries failed deliveries on a background interval.
type Scheduler struct {
	service  *Service
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

func NewScheduler(svc *Service, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{service: svc, interval: interval}
}

// Start begins the background ticker for retrying deliveries.
func (ds *Scheduler) Start() {
	ds.ticker = time.NewTicker(ds.interval)
	ds.done = make(chan struct{})
	go ds.run()
	log.Printf("Delivery scheduler started (%s interval)", ds.interval)
}

// Stop halts the background ticker.
func (ds *Scheduler) Stop() {
	if ds.ticker != nil {
		ds.ticker.Stop()
	}
	if ds.done != nil {
		close(ds.done)
	}
}

func (ds *Scheduler) run() {
	for {
		select {
		case <-ds.done:
			return
		case <-ds.ticker.C:
			if err := ds.service.ProcessRetries(context.Background()); err != nil {
				log.Printf("ERROR: delivery scheduler: %v", err)
			}
		}
	}
}
