package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"mfpreport/internal/amqp"
	"mfpreport/internal/cli"
	"mfpreport/internal/core"
	mflog "mfpreport/internal/log"
	"mfpreport/internal/render"
	"mfpreport/internal/report"
	"mfpreport/internal/services"
	"mfpreport/internal/worker"
)

func main() {
	rt, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	logger := rt.Logger
	cfg := rt.Config
	logger.Info("Starting mfpreport-worker", "backend", cfg.RecordBackend, "interval", cfg.SyncInterval)

	var start *core.Date
	if cfg.SyncStart != "" {
		d, err := core.ParseDate(cfg.SyncStart)
		if err != nil {
			logger.Error("Invalid SYNC_START", "error", err)
			os.Exit(1)
		}
		start = &d
	}

	store, err := rt.Factory.CreateStore(context.Background(), rt.Backend)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		os.Exit(1)
	}
	if store.Cleanup != nil {
		defer store.Cleanup()
	}
	src, err := rt.Factory.CreateSource(context.Background(), rt.Backend)
	if err != nil {
		logger.Error("Failed to create event source", "error", err)
		os.Exit(1)
	}

	renderer, err := render.New()
	if err != nil {
		logger.Error("Failed to load report templates", "error", err)
		os.Exit(1)
	}

	opts := []services.SyncOption{
		services.WithLogger(logger.WithComponent(mflog.ComponentSync).Slog()),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(mflog.ComponentAMQP).Slog())
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		opts = append(opts, services.WithPublisher(client))
	} else {
		logger.Info("AMQP disabled, day synced messages will not be published")
	}

	engine := services.NewSyncEngine(store.Store, src, services.SyncEngineConfig{Alcohol: rt.Settings.Alcohol}, opts...)
	writer := report.NewWriter(renderer, rt.Layout, cfg.OutputDir, logger.WithComponent(mflog.ComponentReport).Slog())
	syncWorker := worker.NewSyncWorker(store.Store, writer, logger.WithComponent(mflog.ComponentWorker).Slog())

	processor := services.NewSyncProcessor(engine, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		Start:        start,
	}, syncWorker.HandleSynced, logger.WithComponent(mflog.ComponentWorker).Slog())

	// the processor only renders after a run that committed days
	if _, err := syncWorker.RenderLatest(context.Background()); err != nil {
		logger.Error("Startup render failed", "error", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		processor.Stop(shutdownCtx)
	})
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped")
}
