package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/server"
	"github.com/alanyoungcy/sharpline/internal/server/handler"
	"github.com/alanyoungcy/sharpline/internal/server/ws"
)

// ScanMode runs a single scan. A held lock is not an error.
func (a *App) ScanMode(ctx context.Context, runner *ScanRunner) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	run, err := runner.TriggerScan(ctx, "")
	if errors.Is(err, domain.ErrLockHeld) {
		a.logger.InfoContext(ctx, "scan skipped: another scan holds the lock")
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}
	a.logger.InfoContext(ctx, "scan finished",
		slog.String("scan_id", run.ID),
		slog.Int("events", run.EventsScanned),
		slog.Int("value_bets", run.ValueBets),
		slog.Int("arbs", run.Arbs),
	)
	return nil
}

// DaemonMode scans on the configured interval until ctx is cancelled.
func (a *App) DaemonMode(ctx context.Context, runner *ScanRunner) error {
	a.logger.InfoContext(ctx, "starting daemon mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
	)
	return runner.loop(ctx, a.cfg.Scan.Interval.Duration)
}

// ServerMode runs the HTTP API and WebSocket hub next to the daemon loop.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies, runner *ScanRunner) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runner.loop(ctx, a.cfg.Scan.Interval.Duration)
	})

	a.startHTTPServer(ctx, g, deps, runner)

	return g.Wait()
}

// DryRunMode scans the fixture once and prints the report to stdout.
func (a *App) DryRunMode(ctx context.Context, runner *ScanRunner) error {
	a.logger.InfoContext(ctx, "starting dry run", slog.String("fixture", a.cfg.DryRun.Fixture))

	run, err := runner.TriggerScan(ctx, "")
	if err != nil {
		return fmt.Errorf("dryrun: %w", err)
	}
	fmt.Fprintf(a.stdout, "scan %s: %d events, %d variants, %d skipped, %d value bets, %d arbs\n",
		run.ID, run.EventsScanned, run.VariantsScanned, run.UnitsSkipped, run.ValueBets, run.Arbs)
	return nil
}

// startHTTPServer adds the server, its shutdown watcher and the WebSocket
// hub to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, runner *ScanRunner) {
	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(deps.Pingers, a.logger),
		Scans:       handler.NewScanHandler(runner, a.logger),
		Fingerprint: handler.NewFingerprintHandler(deps.Index, a.logger),
	}
	if deps.Reports != nil {
		handlers.Reports = handler.NewReportHandler(deps.Reports, a.logger)
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		handlers.Stream = handler.NewStreamHandler(deps.Bus, a.logger)
		hub = ws.NewHub(deps.Bus, a.cfg.Mode, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.Limiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
