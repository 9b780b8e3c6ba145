package domain

import "time"

// PositiveEVBet is an outcome priced above its devigged fair value.
type PositiveEVBet struct {
	EventID     string   `json:"event_id"`
	BetType     BetType  `json:"bet_type"`
	Description *string  `json:"description,omitempty"`
	Point       *float64 `json:"point,omitempty"`
	Outcome     string   `json:"outcome"`
	Bookmaker   string   `json:"bookmaker"`
	Price       float64  `json:"price"`
	FairPrice   float64  `json:"fair_price"`
	Edge        float64  `json:"edge"`
	Stake       float64  `json:"stake"`
}

// ArbLeg is one side of an arbitrage combination.
type ArbLeg struct {
	Outcome   string   `json:"outcome"`
	Point     *float64 `json:"point,omitempty"`
	Bookmaker string   `json:"bookmaker"`
	Price     float64  `json:"price"`
	Stake     float64  `json:"stake"`
}

// ArbitrageCombination is a set of best prices whose implied probabilities
// sum below one.
type ArbitrageCombination struct {
	EventID     string   `json:"event_id"`
	BetType     BetType  `json:"bet_type"`
	Description *string  `json:"description,omitempty"`
	Point       *float64 `json:"point,omitempty"`
	Legs        []ArbLeg `json:"legs"`
	ImpliedSum  float64  `json:"implied_sum"`
}

// Profit is the guaranteed return per unit staked.
func (a ArbitrageCombination) Profit() float64 {
	if a.ImpliedSum <= 0 {
		return 0
	}
	return 1/a.ImpliedSum - 1
}

// EventResult holds everything one scan found for one event.
type EventResult struct {
	Event     Event                  `json:"event"`
	ValueBets []PositiveEVBet        `json:"value_bets"`
	Arbs      []ArbitrageCombination `json:"arbs"`
	Skipped   int                    `json:"skipped"`
}

// Empty reports whether the event produced no findings.
func (r EventResult) Empty() bool {
	return len(r.ValueBets) == 0 && len(r.Arbs) == 0
}

// ScanReport is the output of one scan invocation.
type ScanReport struct {
	ID              string        `json:"id"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	EventsScanned   int           `json:"events_scanned"`
	VariantsScanned int           `json:"variants_scanned"`
	UnitsSkipped    int           `json:"units_skipped"`
	Results         []EventResult `json:"results"`
}

// ValueBetCount totals positive-EV findings across events.
func (r *ScanReport) ValueBetCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.ValueBets)
	}
	return n
}

// ArbCount totals arbitrage findings across events.
func (r *ScanReport) ArbCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Arbs)
	}
	return n
}

// ScanRun is the persisted summary of a ScanReport.
type ScanRun struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	EventsScanned   int       `json:"events_scanned"`
	VariantsScanned int       `json:"variants_scanned"`
	UnitsSkipped    int       `json:"units_skipped"`
	ValueBets       int       `json:"value_bets"`
	Arbs            int       `json:"arbs"`
}

// Summary derives the ScanRun row for r.
func (r *ScanReport) Summary() ScanRun {
	return ScanRun{
		ID:              r.ID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		EventsScanned:   r.EventsScanned,
		VariantsScanned: r.VariantsScanned,
		UnitsSkipped:    r.UnitsSkipped,
		ValueBets:       r.ValueBetCount(),
		Arbs:            r.ArbCount(),
	}
}
