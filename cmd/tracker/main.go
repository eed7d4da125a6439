package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/camino-tours/camino/internal/adapters/nats"
	"github.com/camino-tours/camino/internal/adapters/postgres"
	"github.com/camino-tours/camino/internal/adapters/valkey"
	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/pkg/config"
	"github.com/camino-tours/camino/internal/pkg/logging"
	"github.com/camino-tours/camino/internal/pkg/metrics"
)

// The tracker drains walk telemetry off JetStream into Postgres so that
// tour stats survive API restarts, and invalidates cached tours when a
// publish lands.
func main() {
	cfg, err := config.Load("camino-tracker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	eventRepo := postgres.NewWalkEventRepo(db)

	// Cache (optional; used only for invalidation)
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, cache invalidation disabled", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "tracker")
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeWalkEvents(ctx, func(ctx context.Context, event *domain.WalkEvent) error {
		if err := eventRepo.Insert(ctx, event); err != nil {
			return fmt.Errorf("store walk event: %w", err)
		}
		metrics.WalkEventsIngested.WithLabelValues(string(event.Type)).Inc()
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe walk events: %v", err)
	}

	err = sub.SubscribeTourPublished(ctx, func(ctx context.Context, tourID string) error {
		if cache == nil {
			return nil
		}
		if err := cache.Delete(ctx, "tours:id:"+tourID); err != nil {
			slog.Warn("cache invalidation failed", "tour_id", tourID, "error", err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe tour published: %v", err)
	}

	// Metrics endpoint
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("tracker metrics listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener", "error", err)
		}
	}()

	slog.Info("walk event tracker started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down tracker", "signal", sig.String())
	cancel()
	_ = app.Shutdown()
}
