package oddsmath

// ArbitrageSum returns the implied probability total of the best prices for
// every outcome of a market. Below 1 means a guaranteed profit.
func ArbitrageSum(prices []float64) (float64, error) {
	return Overround(prices)
}

// IsArbitrage reports whether total leaves a riskless profit.
func IsArbitrage(total float64) bool {
	return total < 1.0
}

// ArbitrageStakes splits one unit across prices so every outcome pays the
// same amount.
func ArbitrageStakes(prices []float64, total float64) []float64 {
	stakes := make([]float64, len(prices))
	for i, p := range prices {
		stakes[i] = ImpliedProbability(p) / total
	}
	return stakes
}
