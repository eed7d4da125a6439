package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/camino-tours/camino/internal/adapters/nats"
	"github.com/camino-tours/camino/internal/adapters/postgres"
	"github.com/camino-tours/camino/internal/pkg/config"
	"github.com/camino-tours/camino/internal/pkg/logging"
	"github.com/camino-tours/camino/internal/workflows"
)

// The publisher runs the post-publish pipeline: it hosts the Temporal worker
// for the publish workflow and kicks off a workflow run for every
// tour.published event coming off JetStream.
func main() {
	cfg, err := config.Load("camino-publisher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database for the activities
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	tourRepo := postgres.NewTourRepo(db)
	stopRepo := postgres.NewStopRepo(db)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.PublishWorkflow)
	w.RegisterActivity(&workflows.PublishActivities{
		Tours: tourRepo,
		Stops: stopRepo,
		// Geocoder, Directions and Notifier fall back to built-in
		// behavior until real providers are configured.
	})

	// Every tour.published event starts a workflow run. The tour ID doubles
	// as the workflow ID so repeated publishes of the same tour dedupe.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "publisher")
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeTourPublished(ctx, func(ctx context.Context, tourID string) error {
		tour, err := tourRepo.GetByID(ctx, tourID)
		if err != nil {
			slog.Error("load published tour", "tour_id", tourID, "error", err)
			return err
		}
		opts := client.StartWorkflowOptions{
			ID:        "publish-" + tourID,
			TaskQueue: cfg.Temporal.TaskQueue,
		}
		run, err := c.ExecuteWorkflow(ctx, opts, workflows.PublishWorkflow, workflows.PublishInput{
			TourID:   tourID,
			AuthorID: tour.AuthorID,
		})
		if err != nil {
			slog.Error("start publish workflow", "tour_id", tourID, "error", err)
			return err
		}
		slog.Info("publish workflow started", "tour_id", tourID, "run_id", run.GetRunID())
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe tour published: %v", err)
	}

	log.Println("publisher worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
