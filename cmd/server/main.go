package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"webhook-bot/internal/admin"
	"webhook-bot/internal/api"
	"webhook-bot/internal/auth"
	"webhook-bot/internal/config"
	"webhook-bot/internal/delivery"
	"webhook-bot/internal/engine"
	"webhook-bot/internal/instrument"
	"webhook-bot/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db: %s/%s, delivery: %s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name, cfg.Delivery.Mode)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap tables and seed data
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap tables: %v", err)
	}
	if cfg.Seed.TemplatesFile != "" {
		n, err := db.SeedTemplates(ctx, cfg.Seed.TemplatesFile)
		if err != nil {
			log.Printf("WARN: Failed to seed templates: %v", err)
		} else if n > 0 {
			log.Printf("Seeded %d starter templates", n)
		}
	}

	// 4. Delivery service, inline or through the asynq queue
	opts := delivery.Options{
		MaxAttempts:   cfg.Delivery.MaxAttempts,
		RetryInterval: cfg.Delivery.RetryInterval(),
	}
	if cfg.Delivery.Mode == config.DeliveryQueue {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Queue.RedisAddr})
		defer client.Close()
		opts.Enqueuer = delivery.NewAsynqEnqueuer(client, cfg.Queue.Name)
	}
	deliveries := delivery.NewService(db, delivery.NewHTTPSender(cfg.Delivery.Timeout()), opts)

	// 5. Trigger event log
	var recorder instrument.Recorder
	if cfg.Events.Enabled {
		buf := instrument.NewEventBuffer(db, cfg.Events.BufferSize, cfg.Events.FlushInterval())
		defer buf.Stop()
		recorder = buf
		instrument.CleanupOldEvents(ctx, db, cfg.Events.RetentionDays)
	}

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (no auth required)
	auth.RegisterAuthRoutes(app, auth.NewAuthHandler(db, cfg.JWTSecret))

	authMW := auth.AuthMiddleware(cfg.JWTSecret)

	// 9. Admin review routes (auth + admin required)
	adminGroup := admin.RegisterAdminRoutes(app, admin.NewHandler(db), authMW, auth.RequireAdmin())
	adminGroup.Get("/events", instrument.NewEventHandler(db).List)

	// 10. API routes (auth required) and the public inbound trigger
	handler := api.NewHandler(db, engine.NewRegistry(), deliveries, recorder, cfg.Dispatch.Timeout())
	api.RegisterRoutes(app, handler, authMW)

	// 11. Start delivery retry scheduler
	scheduler := delivery.NewScheduler(deliveries, cfg.Delivery.RetryInterval())
	scheduler.Start()
	defer scheduler.Stop()

	// 12. Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	if err := app.Shutdown(); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
	deliveries.Wait()
}
