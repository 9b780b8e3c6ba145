// Package variant enumerates the market lines on file for an event and bet
// type.
package variant

import (
	"context"
	"fmt"
	"math"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// Enumerator derives variants from what the market store currently holds.
// Results are never cached; lines change between scans.
type Enumerator struct {
	store domain.MarketStore
}

// NewEnumerator creates an Enumerator reading from store.
func NewEnumerator(store domain.MarketStore) *Enumerator {
	return &Enumerator{store: store}
}

// Enumerate returns the variants to scan for ev and betType.
//
// Point-parameterised types produce the cross product of quoted points and
// descriptions. Head-to-head produces a single variant with neither.
// Outrights and misc produce one point-less variant per description.
// A non-finite point fails the whole (event, bet type) with
// domain.ErrDataMalformed.
func (e *Enumerator) Enumerate(ctx context.Context, eventID string, betType domain.BetType) ([]domain.Variant, error) {
	if !betType.Valid() {
		return nil, fmt.Errorf("variant: %w: %q", domain.ErrInvalidBetType, betType)
	}

	if betType == domain.BetTypeH2H {
		return []domain.Variant{{}}, nil
	}

	descs, err := e.store.GetMarketVariantDescriptions(ctx, eventID, betType)
	if err != nil {
		return nil, fmt.Errorf("variant: descriptions %s/%s: %w", eventID, betType, err)
	}

	if !betType.HasPoints() {
		out := make([]domain.Variant, 0, len(descs))
		for _, d := range descs {
			out = append(out, domain.Variant{Description: d})
		}
		return out, nil
	}

	var name *string
	if rep := betType.RepresentativeOutcome(); rep != "" {
		name = &rep
	}
	points, err := e.store.GetMarketPoints(ctx, eventID, betType, name, nil)
	if err != nil {
		return nil, fmt.Errorf("variant: points %s/%s: %w", eventID, betType, err)
	}
	for _, p := range points {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("variant: %s/%s: %w: point %v", eventID, betType, domain.ErrDataMalformed, p)
		}
	}

	if len(descs) == 0 {
		descs = []*string{nil}
	}
	out := make([]domain.Variant, 0, len(points)*len(descs))
	for _, d := range descs {
		for _, p := range points {
			out = append(out, domain.Variant{Description: d, Point: domain.FloatPtr(p)})
		}
	}
	return out, nil
}
