package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/oddsmath"
)

// FairOdds devigs a reference bookmaker's prices for one variant.
type FairOdds struct {
	store  domain.MarketStore
	cfg    Config
	logger *slog.Logger
}

// NewFairOdds creates a calculator reading reference prices from store.
func NewFairOdds(store domain.MarketStore, cfg Config, logger *slog.Logger) *FairOdds {
	return &FairOdds{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "fair_odds")),
	}
}

// Compute returns one fair price per name, aligned with names. Any name the
// bookmaker does not quote for the variant makes the whole vector
// unavailable (domain.ErrDataAbsent); a partial vector is never returned.
func (f *FairOdds) Compute(ctx context.Context, eventID, bookmaker string, betType domain.BetType, v domain.Variant, names []string) ([]float64, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("fair odds: %w: no outcome names", domain.ErrDataAbsent)
	}

	prices := make([]float64, len(names))
	for i, name := range names {
		o, err := f.store.GetBookmakerOutcome(ctx, eventID, bookmaker, betType, name, f.cfg.legPoint(betType, name, v), v.Description)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("fair odds: %s lacks %q at %s: %w", bookmaker, name, v, domain.ErrDataAbsent)
			}
			return nil, fmt.Errorf("fair odds: %s %q: %w", bookmaker, name, err)
		}
		prices[i] = o.Price
	}

	total, err := oddsmath.Overround(prices)
	if err != nil {
		return nil, fmt.Errorf("fair odds: %s at %s: %w", bookmaker, v, err)
	}
	f.logger.DebugContext(ctx, "reference margin",
		slog.String("event_id", eventID),
		slog.String("bet_type", string(betType)),
		slog.String("variant", v.String()),
		slog.Float64("overround", total),
	)

	fair := make([]float64, len(prices))
	for i, p := range prices {
		fair[i] = p * total
	}
	return fair, nil
}
