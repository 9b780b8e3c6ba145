package oddsmath

import "strconv"

// DefaultKellyFraction is quarter-Kelly.
const DefaultKellyFraction = 0.25

// KellyStake returns the bankroll fraction to stake on a bet paying price
// whose true odds are fair, scaled by fraction. Negative results mean the bet
// has no edge.
//
//	p = 1/fair, q = 1-p, stake = (p - q/price) * fraction
func KellyStake(fair, price, fraction float64) float64 {
	p := ImpliedProbability(fair)
	q := 1 - p
	return (p - q/price) * fraction
}

// RoundStake rounds a stake fraction to three decimals. Rounding works on
// the exact binary value, so 0.0055 (stored just below) becomes 0.005.
func RoundStake(stake float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(stake, 'f', 3, 64), 64)
	return r
}
