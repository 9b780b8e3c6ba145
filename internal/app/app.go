// Package app wires the sharpline dependencies together and runs the
// configured mode.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alanyoungcy/sharpline/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	stdout  io.Writer
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		stdout: os.Stdout,
	}
}

// Run wires all dependencies, selects the operating mode and blocks until
// it finishes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.stdout, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	engine, err := NewEngine(a.cfg.Scan, deps, a.logger)
	if err != nil {
		return fmt.Errorf("app: scan engine: %w", err)
	}
	runner := NewScanRunner(engine, NewEmitter(a.cfg, deps, a.logger), deps.Lock,
		a.cfg.Scan.LockTTL.Duration, a.cfg.Scan.Timeout.Duration, a.logger)

	switch a.cfg.Mode {
	case config.ModeScan:
		return a.ScanMode(ctx, runner)
	case config.ModeDaemon:
		return a.DaemonMode(ctx, runner)
	case config.ModeServer:
		return a.ServerMode(ctx, deps, runner)
	case config.ModeDryRun:
		return a.DryRunMode(ctx, runner)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
