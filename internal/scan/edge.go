package scan

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/oddsmath"
)

// EdgeScanner compares the market-wide best price of every outcome against
// the reference book's fair price.
type EdgeScanner struct {
	fair  *FairOdds
	index domain.OutcomeIndex
	cfg   Config
}

// NewEdgeScanner creates an EdgeScanner using cfg.SharpBook as reference.
func NewEdgeScanner(fair *FairOdds, index domain.OutcomeIndex, cfg Config) *EdgeScanner {
	return &EdgeScanner{fair: fair, index: index, cfg: cfg}
}

// Name implements Scanner.
func (s *EdgeScanner) Name() string { return "edge" }

// Scan implements Scanner. The whole variant is skipped when the reference
// book or the index is missing any outcome.
func (s *EdgeScanner) Scan(ctx context.Context, u Unit) (Findings, error) {
	if len(u.Names) < 2 {
		return Findings{}, fmt.Errorf("edge: %w: %d outcome(s) at %s", domain.ErrDataAbsent, len(u.Names), u.Variant)
	}
	fair, err := s.fair.Compute(ctx, u.Event.ID, s.cfg.SharpBook, u.BetType, u.Variant, u.Names)
	if err != nil {
		return Findings{}, err
	}

	best, err := lookupAll(ctx, s.index, s.cfg, u)
	if err != nil {
		return Findings{}, fmt.Errorf("edge: %w", err)
	}

	var out Findings
	for i, name := range u.Names {
		price := best[i].Outcome.Price
		edge := oddsmath.Edge(price, fair[i])
		stake := oddsmath.KellyStake(fair[i], price, s.cfg.KellyFraction)
		if !s.cfg.qualifies(edge, stake) {
			continue
		}
		out.ValueBets = append(out.ValueBets, domain.PositiveEVBet{
			EventID:     u.Event.ID,
			BetType:     u.BetType,
			Description: u.Variant.Description,
			Point:       s.cfg.legPoint(u.BetType, name, u.Variant),
			Outcome:     name,
			Bookmaker:   best[i].Bookmaker,
			Price:       price,
			FairPrice:   fair[i],
			Edge:        edge,
			Stake:       stake,
		})
	}
	return out, nil
}

// lookupAll fetches the best quote for every name of u, failing on the
// first one the index does not hold.
func lookupAll(ctx context.Context, index domain.OutcomeIndex, cfg Config, u Unit) ([]domain.BestQuote, error) {
	out := make([]domain.BestQuote, len(u.Names))
	for i, name := range u.Names {
		fp := domain.Fingerprint(name, u.Variant.Description, cfg.legPoint(u.BetType, name, u.Variant), u.BetType, u.Event.ID)
		bq, err := index.Lookup(ctx, fp)
		if err != nil {
			if domain.IsAbsent(err) {
				return nil, fmt.Errorf("no best price for %q at %s: %w", name, u.Variant, domain.ErrDataAbsent)
			}
			return nil, fmt.Errorf("lookup %q: %w", name, err)
		}
		out[i] = bq
	}
	return out, nil
}
