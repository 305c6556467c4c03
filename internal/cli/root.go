package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mfpreport/internal/backend"
	"mfpreport/internal/config"
	"mfpreport/internal/core"
	"mfpreport/internal/layout"
	mflog "mfpreport/internal/log"
	"mfpreport/internal/records"
	"mfpreport/internal/render"
	"mfpreport/internal/report"
	"mfpreport/internal/services"
)

// App is the state shared by every command of one invocation.
type App struct {
	settingsPath string
	logLevel     string

	cfg      *config.Config
	settings config.Settings
	logger   *mflog.Logger
	factory  backend.Factory

	now       func() time.Time
	logOutput io.Writer
}

type Option func(*App)

// WithClock overrides time.Now for "today".
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithLogOutput sends log records to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) { a.logOutput = w }
}

// NewRootCmd builds the mfpreport command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	app := &App{now: time.Now, logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}

	root := &cobra.Command{
		Use:   "mfpreport",
		Short: "Keep a local log of MyFitnessPal diaries and build nutrition reports",
		Long: `mfpreport appends each missing diary day to a record log (CSV, SQLite or
Google Sheets) and builds HTML reports and a per-day pivot of totals from it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}
	root.PersistentFlags().StringVar(&app.settingsPath, "settings", "", "report settings YAML file (default $SETTINGS_FILE)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")

	root.AddCommand(
		app.csvCmd(),
		app.htmlCmd(),
		app.reportCmd(),
		app.pivotCmd(),
		app.configCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	LoadEnvFile()
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger, err := SetupLogger(level, cfg.LogFormat, a.logOutput)
	if err != nil {
		return err
	}

	path := a.settingsPath
	if path == "" {
		path = cfg.SettingsFile
	}
	settings, err := config.LoadSettings(path)
	if err != nil {
		return err
	}

	a.cfg, a.settings, a.logger = cfg, settings, logger
	if a.factory == nil {
		a.factory = backend.NewFactory(logger.WithComponent(mflog.ComponentBackend).Slog())
	}
	return nil
}

func (a *App) today() core.Date {
	return core.DateOf(a.now())
}

// withStore opens the configured record store for the duration of fn.
func (a *App) withStore(ctx context.Context, fn func(records.Store) error) error {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	res, err := a.factory.CreateStore(ctx, bcfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				a.logger.Warn("Failed to close record store", "error", err)
			}
		}()
	}
	return fn(res.Store)
}

// synchronize appends every missing day to store.
func (a *App) synchronize(ctx context.Context, store records.Store, start *core.Date) (services.SyncResult, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return services.SyncResult{}, err
	}
	src, err := a.factory.CreateSource(ctx, bcfg)
	if err != nil {
		return services.SyncResult{}, err
	}
	engine := services.NewSyncEngine(store, src,
		services.SyncEngineConfig{Alcohol: a.settings.Alcohol},
		services.WithClock(a.now),
		services.WithLogger(a.logger.WithComponent(mflog.ComponentSync).Slog()))
	return engine.Synchronize(ctx, start)
}

// reportWriter renders into OUTPUT_DIR with the loaded settings.
func (a *App) reportWriter() (*report.Writer, error) {
	lcfg, err := layout.ConfigFromSettings(a.settings)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New()
	if err != nil {
		return nil, err
	}
	return report.NewWriter(renderer, lcfg, a.cfg.OutputDir, a.logger.WithComponent(mflog.ComponentReport).Slog()), nil
}
