package oddsmath_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/oddsmath"
)

func TestDevig(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
	}{
		{name: "two way 1.91/2.05", prices: []float64{1.91, 2.05}},
		{name: "evens with margin", prices: []float64{1.909, 1.909}},
		{name: "three way", prices: []float64{2.40, 3.30, 3.10}},
		{name: "heavy favourite", prices: []float64{1.15, 5.50}},
		{name: "underround book", prices: []float64{2.10, 2.20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fair, err := oddsmath.Devig(tt.prices)
			if err != nil {
				t.Fatalf("Devig: %v", err)
			}
			if len(fair) != len(tt.prices) {
				t.Fatalf("got %d fair prices, want %d", len(fair), len(tt.prices))
			}

			sum := 0.0
			for _, f := range fair {
				sum += 1 / f
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("sum of fair implied probabilities = %.12f, want 1", sum)
			}

			for i := range tt.prices {
				for j := range tt.prices {
					if tt.prices[i] < tt.prices[j] && !(fair[i] < fair[j]) {
						t.Errorf("ordering not preserved: price %v<%v but fair %v>=%v",
							tt.prices[i], tt.prices[j], fair[i], fair[j])
					}
				}
			}
		})
	}
}

func TestDevigScenario(t *testing.T) {
	fair, err := oddsmath.Devig([]float64{1.91, 2.05})
	if err != nil {
		t.Fatalf("Devig: %v", err)
	}
	if math.Abs(fair[0]-1.9314) > 1e-3 {
		t.Errorf("fair home = %.5f, want ~1.9314", fair[0])
	}
	if fair[0] <= 1.91 || fair[1] <= 2.05 {
		t.Errorf("fair prices %v should exceed quoted prices when the book carries margin", fair)
	}
}

func TestDevigRejects(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   error
	}{
		{name: "empty", prices: nil, want: domain.ErrDataAbsent},
		{name: "zero price", prices: []float64{1.9, 0}, want: domain.ErrDataMalformed},
		{name: "even money floor", prices: []float64{1.0, 2.0}, want: domain.ErrDataMalformed},
		{name: "nan", prices: []float64{math.NaN(), 2.0}, want: domain.ErrDataMalformed},
		{name: "inf", prices: []float64{math.Inf(1), 2.0}, want: domain.ErrDataMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := oddsmath.Devig(tt.prices)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestKellyStake(t *testing.T) {
	tests := []struct {
		name     string
		fair     float64
		price    float64
		fraction float64
		want     float64
	}{
		{name: "scenario quarter kelly", fair: 1.931707, price: 2.05, fraction: 0.25, want: 0.0706},
		{name: "price equals fair", fair: 2.0, price: 2.0, fraction: 0.25, want: (0.5 - 0.5/2.0) * 0.25},
		{name: "full kelly coin flip at 2.2", fair: 2.0, price: 2.2, fraction: 1, want: 0.5 - 0.5/2.2},
		{name: "price below fair", fair: 2.0, price: 1.8, fraction: 0.25, want: (0.5 - 0.5/1.8) * 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := oddsmath.KellyStake(tt.fair, tt.price, tt.fraction)
			if math.Abs(got-tt.want) > 1e-4 {
				t.Errorf("KellyStake(%v, %v, %v) = %.6f, want %.6f", tt.fair, tt.price, tt.fraction, got, tt.want)
			}
		})
	}
}

func TestRoundStake(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.0706, 0.071},
		{0.0054, 0.005},
		{0.0055, 0.005}, // stored as 0.00549999...
		{0.0056, 0.006},
		{0.0049, 0.005},
		{-0.0123, -0.012},
	}
	for _, tt := range tests {
		if got := oddsmath.RoundStake(tt.in); got != tt.want {
			t.Errorf("RoundStake(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestArbitrage(t *testing.T) {
	total, err := oddsmath.ArbitrageSum([]float64{2.10, 2.20})
	if err != nil {
		t.Fatalf("ArbitrageSum: %v", err)
	}
	if math.Abs(total-0.9307) > 1e-4 {
		t.Errorf("total = %.6f, want ~0.9307", total)
	}
	if !oddsmath.IsArbitrage(total) {
		t.Error("expected arbitrage")
	}

	stakes := oddsmath.ArbitrageStakes([]float64{2.10, 2.20}, total)
	sum := stakes[0] + stakes[1]
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("stakes sum to %v, want 1", sum)
	}
	if payout0, payout1 := stakes[0]*2.10, stakes[1]*2.20; math.Abs(payout0-payout1) > 1e-9 {
		t.Errorf("unequal payouts %v vs %v", payout0, payout1)
	}

	if oddsmath.IsArbitrage(1.0) {
		t.Error("implied sum of exactly 1 must not be arbitrage")
	}
	if !oddsmath.IsArbitrage(0.999999) {
		t.Error("implied sum of 0.999999 must be arbitrage")
	}
}
