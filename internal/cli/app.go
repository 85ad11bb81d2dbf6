package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ildang/internal/backend"
	"ildang/internal/config"
	"ildang/internal/export"
	"ildang/internal/export/pdf"
	"ildang/internal/log"
	"ildang/internal/services"
)

// App holds everything a command needs once the store is open.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Service  *services.WorkLogService
	Renderer export.Renderer

	relay   *services.ChangeRelay
	cleanup func() error
}

// Opener opens the application for one command.
type Opener func(ctx context.Context, verbose bool) (*App, error)

// OpenApp opens the configured backend and, when AMQP is reachable, starts
// publishing change notifications for the export worker.
func OpenApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Service: services.NewWorkLogService(res.Store,
			services.WithLogger(logger),
			services.WithRestoreChunkSize(cfg.RestoreChunkSize)),
		cleanup: res.Cleanup,
	}
	if cfg.PDFFontPath != "" {
		app.Renderer = pdf.New(cfg.PDFFontPath)
	}

	if res.Publisher != nil {
		app.relay = services.NewChangeRelay(res.Store, res.Publisher, services.DefaultChangeRelayConfig())
		// The relay outlives the command context so Close can drain it.
		if err := app.relay.Start(context.WithoutCancel(ctx)); err != nil {
			_ = res.Cleanup()
			return nil, fmt.Errorf("start change relay: %w", err)
		}
	}
	return app, nil
}

// Close flushes pending change notifications and releases the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.relay != nil {
		errs = append(errs, a.relay.Stop(ctx))
	}
	if a.cleanup != nil {
		errs = append(errs, a.cleanup())
	}
	return errors.Join(errs...)
}

// defaultOpener loads the environment configuration. Command output goes to
// stdout, so logs are written to stderr and kept to warnings unless verbose.
func defaultOpener(ctx context.Context, verbose bool) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return OpenApp(ctx, cfg, cliLogger(cfg, verbose, os.Stderr))
}

func cliLogger(cfg *config.Config, verbose bool, out io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = log.ComponentCLI
	lc.Output = out
	lc.Level = slog.LevelWarn
	if cfg.LogFormat != "" {
		lc.Format = cfg.LogFormat
	}
	if verbose {
		lc.Level = slog.LevelInfo
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}
