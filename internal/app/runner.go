package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/sharpline/internal/cache/redis"
	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/report"
	"github.com/alanyoungcy/sharpline/internal/scan"
)

// ScanRunner performs one locked scan and emits its report. It backs the
// daemon loop and POST /api/scans.
type ScanRunner struct {
	engine  *scan.Engine
	emitter *report.Emitter
	lock    domain.LockManager
	lockTTL time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewScanRunner creates a ScanRunner. lock may be nil, in which case scans
// are only serialised within this process. A zero timeout means none.
func NewScanRunner(engine *scan.Engine, emitter *report.Emitter, lock domain.LockManager, lockTTL, timeout time.Duration, logger *slog.Logger) *ScanRunner {
	return &ScanRunner{
		engine:  engine,
		emitter: emitter,
		lock:    lock,
		lockTTL: lockTTL,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "scan_runner")),
	}
}

// TriggerScan runs a scan under the cross-process lock. A non-empty eventID
// scans only that event. It returns a wrapped domain.ErrLockHeld when
// another scan holds the lock.
func (r *ScanRunner) TriggerScan(ctx context.Context, eventID string) (*domain.ScanRun, error) {
	if r.lock != nil {
		unlock, err := r.lock.Acquire(ctx, redis.ScanLockKey, r.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("app: scan lock: %w", err)
		}
		defer unlock()
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var rep *domain.ScanReport
	var err error
	if eventID != "" {
		rep, err = r.engine.RunEvent(runCtx, eventID)
	} else {
		rep, err = r.engine.Run(runCtx)
	}
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, domain.ErrNotFound) {
			if ferr := r.emitter.EmitFailure(ctx, err); ferr != nil {
				r.logger.WarnContext(ctx, "failure notification failed", slog.String("error", ferr.Error()))
			}
		}
		return nil, err
	}

	// Sink failures are logged by the emitter and never fail the scan.
	_ = r.emitter.Emit(ctx, rep)

	run := rep.Summary()
	return &run, nil
}

// loop runs a scan immediately and then every interval until ctx ends.
func (r *ScanRunner) loop(ctx context.Context, interval time.Duration) error {
	runOnce := func() {
		run, err := r.TriggerScan(ctx, "")
		switch {
		case err == nil:
			r.logger.InfoContext(ctx, "scan finished",
				slog.String("scan_id", run.ID),
				slog.Int("value_bets", run.ValueBets),
				slog.Int("arbs", run.Arbs),
			)
		case errors.Is(err, domain.ErrLockHeld):
			r.logger.InfoContext(ctx, "scan skipped: another scan holds the lock")
		case ctx.Err() != nil:
			// shutting down
		default:
			r.logger.ErrorContext(ctx, "scan failed", slog.String("error", err.Error()))
		}
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}
