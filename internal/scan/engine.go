package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/variant"
)

// Engine runs one full scan per Run call: rebuild the outcome index, then
// fan out over upcoming events and scan every variant of every bet type.
// Nothing is retained between runs.
type Engine struct {
	store    domain.MarketStore
	index    domain.OutcomeIndex
	enum     *variant.Enumerator
	scanners []Scanner
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	// mu serialises runs so a rebuild never lands under an in-flight scan.
	mu sync.Mutex
}

// NewEngine creates an Engine. scanners run in order for every unit.
func NewEngine(store domain.MarketStore, index domain.OutcomeIndex, scanners []Scanner, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.BetTypes) == 0 {
		cfg.BetTypes = domain.AllBetTypes
	}
	return &Engine{
		store:    store,
		index:    index,
		enum:     variant.NewEnumerator(store),
		scanners: scanners,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scan_engine")),
		now:      time.Now,
	}
}

type counters struct {
	variants atomic.Int64
	skipped  atomic.Int64
}

// Run performs a scan. It fails only when the market store is unavailable
// or ctx ends; malformed or missing data skips the affected unit.
func (e *Engine) Run(ctx context.Context) (*domain.ScanReport, error) {
	return e.RunEvent(ctx, e.cfg.EventID)
}

// RunEvent scans only eventID, or every upcoming event when eventID is
// empty. An unknown event id is a wrapped domain.ErrNotFound.
func (e *Engine) RunEvent(ctx context.Context, eventID string) (*domain.ScanReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &domain.ScanReport{
		ID:        uuid.NewString(),
		StartedAt: e.now().UTC(),
	}
	log := e.logger.With(slog.String("scan_id", report.ID))

	if err := e.index.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("scan: rebuild index: %w", err)
	}

	events, err := e.events(ctx, eventID, report.StartedAt)
	if err != nil {
		return nil, err
	}

	var c counters
	results := make([]domain.EventResult, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, ev := range events {
		g.Go(func() error {
			res, err := e.scanEvent(gctx, log, ev, &c)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	for _, res := range results {
		if !res.Empty() {
			report.Results = append(report.Results, res)
		}
	}
	report.EventsScanned = len(events)
	report.VariantsScanned = int(c.variants.Load())
	report.UnitsSkipped = int(c.skipped.Load())
	report.FinishedAt = e.now().UTC()

	log.InfoContext(ctx, "scan complete",
		slog.Int("events", report.EventsScanned),
		slog.Int("variants", report.VariantsScanned),
		slog.Int("skipped", report.UnitsSkipped),
		slog.Int("value_bets", report.ValueBetCount()),
		slog.Int("arbs", report.ArbCount()),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (e *Engine) events(ctx context.Context, eventID string, now time.Time) ([]domain.Event, error) {
	if eventID != "" {
		ev, err := e.store.GetEventByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("scan: invalid event id %q: %w", eventID, err)
			}
			return nil, fmt.Errorf("scan: get event: %w", err)
		}
		return []domain.Event{ev}, nil
	}
	events, err := e.store.GetEvents(ctx, e.cfg.CategoryID, now.Add(-e.cfg.Lookback))
	if err != nil {
		return nil, fmt.Errorf("scan: list events: %w", err)
	}
	return events, nil
}

func (e *Engine) scanEvent(ctx context.Context, log *slog.Logger, ev domain.Event, c *counters) (domain.EventResult, error) {
	ev.StartTime = ev.StartTime.UTC()
	res := domain.EventResult{Event: ev}
	log = log.With(slog.String("event_id", ev.ID))

	for _, bt := range e.cfg.BetTypes {
		variants, err := e.enum.Enumerate(ctx, ev.ID, bt)
		if err != nil {
			if fatal := e.skip(ctx, log, err, &res, c, slog.String("bet_type", string(bt))); fatal != nil {
				return res, fatal
			}
			continue
		}

		for _, v := range variants {
			c.variants.Add(1)
			attrs := []slog.Attr{slog.String("bet_type", string(bt)), slog.String("variant", v.String())}

			names, err := e.store.GetMarketOutcomeNames(ctx, ev.ID, bt, v.Description)
			if err == nil && len(names) == 0 {
				err = fmt.Errorf("no outcome names: %w", domain.ErrDataAbsent)
			}
			if err != nil {
				if fatal := e.skip(ctx, log, err, &res, c, attrs...); fatal != nil {
					return res, fatal
				}
				continue
			}

			u := Unit{Event: ev, BetType: bt, Variant: v, Names: names}
			for _, s := range e.scanners {
				f, err := s.Scan(ctx, u)
				if err != nil {
					if fatal := e.skip(ctx, log, err, &res, c, append(attrs, slog.String("scanner", s.Name()))...); fatal != nil {
						return res, fatal
					}
					continue
				}
				res.ValueBets = append(res.ValueBets, f.ValueBets...)
				res.Arbs = append(res.Arbs, f.Arbs...)
			}
		}
	}
	return res, nil
}

// skip logs a unit failure at the level its class calls for and returns a
// non-nil error only when the whole scan must stop.
func (e *Engine) skip(ctx context.Context, log *slog.Logger, err error, res *domain.EventResult, c *counters, attrs ...slog.Attr) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	res.Skipped++
	c.skipped.Add(1)
	attrs = append(attrs, slog.String("error", err.Error()))
	switch {
	case domain.IsAbsent(err):
		log.LogAttrs(ctx, slog.LevelDebug, "unit skipped: data absent", attrs...)
	case errors.Is(err, domain.ErrDataMalformed):
		log.LogAttrs(ctx, slog.LevelError, "unit skipped: malformed data", attrs...)
	default:
		log.LogAttrs(ctx, slog.LevelWarn, "unit skipped", attrs...)
	}
	return nil
}
