// Package scan finds positive expected value bets and arbitrage combinations
// across every market variant of upcoming events.
package scan

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/oddsmath"
)

// PointSign selects how away points of spread-family markets are stored.
type PointSign string

const (
	// PointSignShared: both sides carry the line as quoted for home.
	PointSignShared PointSign = "shared"
	// PointSignMirrored: the away side carries the negated home line.
	PointSignMirrored PointSign = "mirrored"
)

// ParsePointSign validates a configured point-sign convention.
func ParsePointSign(s string) (PointSign, error) {
	switch PointSign(s) {
	case PointSignShared, PointSignMirrored:
		return PointSign(s), nil
	case "":
		return PointSignShared, nil
	}
	return "", fmt.Errorf("scan: unknown point sign %q", s)
}

// Config tunes a scan.
type Config struct {
	SharpBook     string
	KellyFraction float64
	MinEdge       float64
	MinStake      float64
	PointSign     PointSign
	Concurrency   int
	BetTypes      []domain.BetType
	CategoryID    *string
	// EventID restricts Run to one event, regardless of start time.
	EventID string
	// Lookback widens the event window to events that started this long ago.
	Lookback time.Duration
}

// DefaultConfig returns quarter-Kelly with the standard noise thresholds.
func DefaultConfig() Config {
	return Config{
		KellyFraction: oddsmath.DefaultKellyFraction,
		MinEdge:       1.01,
		MinStake:      0.005,
		PointSign:     PointSignShared,
		Concurrency:   8,
		BetTypes:      domain.AllBetTypes,
		Lookback:      time.Hour,
	}
}

// qualifies applies the positive-EV inclusion rule. Both bounds are strict
// and the stake is compared after rounding to three decimals.
func (c Config) qualifies(edge, stake float64) bool {
	return edge > c.MinEdge && oddsmath.RoundStake(stake) > c.MinStake
}

// legPoint is the point an outcome carries within variant v.
func (c Config) legPoint(betType domain.BetType, name string, v domain.Variant) *float64 {
	if v.Point == nil {
		return nil
	}
	p := *v.Point
	if c.PointSign == PointSignMirrored && betType.SpreadFamily() && name == domain.OutcomeAway {
		p = -p
	}
	return domain.FloatPtr(p)
}
