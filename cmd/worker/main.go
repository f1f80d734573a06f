package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"webhook-bot/internal/config"
	"webhook-bot/internal/delivery"
	"webhook-bot/internal/store"
)

// The worker consumes delivery tasks enqueued by the server when
// delivery.mode is "queue".
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap tables: %v", err)
	}

	svc := delivery.NewService(db, delivery.NewHTTPSender(cfg.Delivery.Timeout()), delivery.Options{
		MaxAttempts:   cfg.Delivery.MaxAttempts,
		RetryInterval: cfg.Delivery.RetryInterval(),
	})

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Queue.RedisAddr},
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				cfg.Queue.Name: 1,
			},
		},
	)

	log.Printf("Worker listening on queue %q (redis %s)", cfg.Queue.Name, cfg.Queue.RedisAddr)
	if err := srv.Run(delivery.NewServeMux(svc)); err != nil {
		log.Fatalf("could not run worker: %v", err)
	}
}
