// Package cli holds the mfpreport commands and the start-up helpers shared
// by the server and worker binaries.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mfpreport/internal/backend"
	"mfpreport/internal/config"
	"mfpreport/internal/layout"
	mflog "mfpreport/internal/log"
)

// SetupLogger builds the application logger and makes it the slog default.
func SetupLogger(level, format string, out io.Writer) (*mflog.Logger, error) {
	lvl, err := mflog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	logger := mflog.New(mflog.Config{
		Level:     lvl,
		Format:    format,
		Component: mflog.ComponentApp,
		Output:    out,
	})
	mflog.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with at most timeout to finish; done is closed
// once it returns.
func GracefulShutdown(logger *mflog.Logger, timeout time.Duration, cleanup func(context.Context)) (ctx context.Context, done <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(finished)
	}()

	return ctx, finished
}

// Runtime is what the long-running binaries build at start-up.
type Runtime struct {
	Config   *config.Config
	Settings config.Settings
	Layout   layout.Config
	Logger   *mflog.Logger
	Backend  backend.Config
	Factory  backend.Factory
}

// Bootstrap loads .env, the runtime config and the report settings, and
// sets up logging to stdout.
func Bootstrap() (*Runtime, error) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger, err := SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	lcfg, err := layout.ConfigFromSettings(settings)
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Config:   cfg,
		Settings: settings,
		Layout:   lcfg,
		Logger:   logger,
		Backend:  bcfg,
		Factory:  backend.NewFactory(logger.WithComponent(mflog.ComponentBackend).Slog()),
	}, nil
}
