// Package oddsmath holds the pricing arithmetic used by the scanners: implied
// probabilities, margin removal, edge, fractional Kelly staking and
// arbitrage sums. All prices are decimal odds.
package oddsmath

import (
	"fmt"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// ImpliedProbability converts decimal odds to a probability.
func ImpliedProbability(price float64) float64 {
	return 1 / price
}

// Overround returns the sum of implied probabilities of prices. A real book
// is above 1; the excess is the margin.
func Overround(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, fmt.Errorf("oddsmath: overround: %w: no prices", domain.ErrDataAbsent)
	}
	total := 0.0
	for i, p := range prices {
		if !domain.ValidPrice(p) {
			return 0, fmt.Errorf("oddsmath: overround: %w: price[%d]=%v", domain.ErrDataMalformed, i, p)
		}
		total += ImpliedProbability(p)
	}
	return total, nil
}

// Devig removes the margin multiplicatively. Each fair price is the quoted
// price scaled by the overround, so the fair implied probabilities sum to 1
// and keep the ordering of the input.
func Devig(prices []float64) ([]float64, error) {
	total, err := Overround(prices)
	if err != nil {
		return nil, err
	}
	fair := make([]float64, len(prices))
	for i, p := range prices {
		fair[i] = p * total
	}
	return fair, nil
}

// Edge is the ratio of an available price to its fair price.
func Edge(price, fair float64) float64 {
	return price / fair
}
