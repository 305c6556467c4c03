package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"mfpreport/internal/amqp"
	"mfpreport/internal/cli"
	apphttp "mfpreport/internal/http"
	mflog "mfpreport/internal/log"
	"mfpreport/internal/render"
	"mfpreport/internal/watch"
)

func main() {
	rt, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	logger := rt.Logger
	cfg := rt.Config

	store, err := rt.Factory.CreateStore(context.Background(), rt.Backend)
	if err != nil {
		logger.Error("Failed to open record store", "error", err, "backend", cfg.RecordBackend)
		os.Exit(1)
	}
	if store.Cleanup != nil {
		defer store.Cleanup()
	}

	renderer, err := render.New()
	if err != nil {
		logger.Error("Failed to load report templates", "error", err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(apphttp.ServerConfig{
		Addr:   ":" + cfg.Port,
		Days:   cfg.ReportDays,
		Layout: rt.Layout,
		Logger: logger,
	}, store.Store, renderer)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	// a CSV log is rewritten in place by the sync command
	if store.WatchPath != "" {
		w, err := watch.New(store.WatchPath, func(reason string) { srv.Invalidate(reason) },
			logger.WithComponent(mflog.ComponentCache).Slog())
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			logger.Warn("Record log watcher disabled", "error", err, "path", store.WatchPath)
		}
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(mflog.ComponentAMQP).Slog())
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		go func() {
			err := client.ConsumeWithReconnect(ctx, func(msg *amqp.DaySyncedMessage) error {
				srv.Invalidate("day synced " + msg.Date.String())
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	logger.Info("Starting mfpreport server", "port", cfg.Port, "backend", cfg.RecordBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
