package scan

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/oddsmath"
)

// ArbitrageScanner checks whether the best price per outcome, taken from
// whichever bookmaker offers it, covers every outcome for less than one unit.
type ArbitrageScanner struct {
	index domain.OutcomeIndex
	cfg   Config
}

// NewArbitrageScanner creates an ArbitrageScanner over index.
func NewArbitrageScanner(index domain.OutcomeIndex, cfg Config) *ArbitrageScanner {
	return &ArbitrageScanner{index: index, cfg: cfg}
}

// Name implements Scanner.
func (s *ArbitrageScanner) Name() string { return "arbitrage" }

// Scan implements Scanner. Variants with any unquoted outcome are skipped;
// partial combinations are never reported.
func (s *ArbitrageScanner) Scan(ctx context.Context, u Unit) (Findings, error) {
	if len(u.Names) < 2 {
		return Findings{}, fmt.Errorf("arbitrage: %w: %d outcome(s) at %s", domain.ErrDataAbsent, len(u.Names), u.Variant)
	}

	best, err := lookupAll(ctx, s.index, s.cfg, u)
	if err != nil {
		return Findings{}, fmt.Errorf("arbitrage: %w", err)
	}

	prices := make([]float64, len(best))
	for i, bq := range best {
		prices[i] = bq.Outcome.Price
	}
	total, err := oddsmath.ArbitrageSum(prices)
	if err != nil {
		return Findings{}, fmt.Errorf("arbitrage: %w", err)
	}
	if !oddsmath.IsArbitrage(total) {
		return Findings{}, nil
	}

	stakes := oddsmath.ArbitrageStakes(prices, total)
	legs := make([]domain.ArbLeg, len(best))
	for i, bq := range best {
		legs[i] = domain.ArbLeg{
			Outcome:   u.Names[i],
			Point:     s.cfg.legPoint(u.BetType, u.Names[i], u.Variant),
			Bookmaker: bq.Bookmaker,
			Price:     prices[i],
			Stake:     stakes[i],
		}
	}
	return Findings{Arbs: []domain.ArbitrageCombination{{
		EventID:     u.Event.ID,
		BetType:     u.BetType,
		Description: u.Variant.Description,
		Point:       u.Variant.Point,
		Legs:        legs,
		ImpliedSum:  total,
	}}}, nil
}
