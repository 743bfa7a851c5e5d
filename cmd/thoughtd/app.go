package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/config"
	"github.com/fyrsmithlabs/thoughtd/internal/logging"
	"github.com/fyrsmithlabs/thoughtd/internal/store"
	"github.com/fyrsmithlabs/thoughtd/internal/telemetry"
)

const (
	storeScope = "github.com/fyrsmithlabs/thoughtd/internal/store"
	mcpScope   = "github.com/fyrsmithlabs/thoughtd/internal/mcp"
	httpScope  = "github.com/fyrsmithlabs/thoughtd/internal/http"
)

// app holds the dependencies every subcommand shares.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	store  *store.Store
}

// newApp loads configuration and builds telemetry, the logger and the
// store. Flags override the config file and environment.
func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.LoadWithFile(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.storageDir != "" {
		cfg.Storage.Dir = flags.storageDir
	}
	if flags.project != "" {
		cfg.Storage.ProjectID = flags.project
	}
	if version != "dev" {
		cfg.Server.Version = version
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, cfg.Server.Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.NewConfig(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logCfg.Output.OTEL = cfg.Telemetry.Enabled
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded, continuing without export",
			zap.String("endpoint", cfg.Telemetry.Endpoint))
	}

	st, err := store.New(&store.Config{
		Dir:            cfg.Storage.Dir,
		DefaultProject: cfg.Storage.ProjectID,
		CorruptPolicy:  store.CorruptPolicy(cfg.Storage.CorruptPolicy),
		LockTimeout:    cfg.Storage.LockTimeout.Duration(),
	}, logger.Underlying(),
		store.WithMeter(tel.Meter(storeScope)),
		store.WithTracer(tel.Tracer(storeScope)),
	)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &app{cfg: cfg, logger: logger, tel: tel, store: st}, nil
}

// close flushes telemetry and the logger.
func (a *app) close(ctx context.Context) {
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync() // Best-effort sync on shutdown
}
