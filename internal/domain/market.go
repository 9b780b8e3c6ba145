package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// BetType is the closed set of market kinds a bookmaker can quote.
type BetType string

const (
	BetTypeH2H          BetType = "h2h"
	BetTypeSpreads      BetType = "spreads"
	BetTypeTotals       BetType = "totals"
	BetTypeOutrights    BetType = "outrights"
	BetTypeAsianSpreads BetType = "asian_spreads"
	BetTypeMisc         BetType = "misc"
)

// AllBetTypes lists every BetType in scan order.
var AllBetTypes = []BetType{
	BetTypeH2H,
	BetTypeSpreads,
	BetTypeTotals,
	BetTypeAsianSpreads,
	BetTypeOutrights,
	BetTypeMisc,
}

// ParseBetType converts a config or query string into a BetType.
func ParseBetType(s string) (BetType, error) {
	bt := BetType(strings.ToLower(strings.TrimSpace(s)))
	if !bt.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBetType, s)
	}
	return bt, nil
}

// Valid reports whether bt is one of the known bet types.
func (bt BetType) Valid() bool {
	switch bt {
	case BetTypeH2H, BetTypeSpreads, BetTypeTotals, BetTypeOutrights, BetTypeAsianSpreads, BetTypeMisc:
		return true
	}
	return false
}

// HasPoints reports whether markets of this type are parameterised by a line.
func (bt BetType) HasPoints() bool {
	switch bt {
	case BetTypeSpreads, BetTypeTotals, BetTypeAsianSpreads:
		return true
	}
	return false
}

// SpreadFamily reports whether the home and away sides quote opposing handicaps.
func (bt BetType) SpreadFamily() bool {
	return bt == BetTypeSpreads || bt == BetTypeAsianSpreads
}

// RepresentativeOutcome is the outcome name whose points define the lines
// on file for this bet type. Empty means any outcome.
func (bt BetType) RepresentativeOutcome() string {
	if bt.SpreadFamily() {
		return OutcomeHome
	}
	return ""
}

// Canonical outcome names.
const (
	OutcomeHome  = "home"
	OutcomeAway  = "away"
	OutcomeDraw  = "draw"
	OutcomeOver  = "over"
	OutcomeUnder = "under"
)

// Event is a real-world fixture that bookmakers quote markets on.
type Event struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	StartTime  time.Time `json:"start_time"`
	HomeTeamID string    `json:"home_team_id"`
	AwayTeamID string    `json:"away_team_id"`
}

// Market is one bookmaker's line for an event. It is unique on
// (EventID, Bookmaker, BetType, Description).
type Market struct {
	EventID     string    `json:"event_id"`
	Bookmaker   string    `json:"bookmaker"`
	BetType     BetType   `json:"bet_type"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Outcome is a single priced selection inside a market.
type Outcome struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
	ExternalID  *string  `json:"external_id,omitempty"`
}

// Quote is an Outcome flattened together with the market it belongs to.
type Quote struct {
	EventID     string
	Bookmaker   string
	BetType     BetType
	Description *string
	Outcome     Outcome
}

// Fingerprint returns the cross-bookmaker identity of the quoted bet.
func (q Quote) Fingerprint() string {
	return Fingerprint(q.Outcome.Name, q.Description, q.Outcome.Point, q.BetType, q.EventID)
}

// BestQuote is the highest price on file for one fingerprint.
type BestQuote struct {
	Fingerprint string  `json:"fingerprint"`
	Bookmaker   string  `json:"bookmaker"`
	Outcome     Outcome `json:"outcome"`
}

// Variant identifies one line of a bet type: an optional market description
// and an optional point.
type Variant struct {
	Description *string  `json:"description,omitempty"`
	Point       *float64 `json:"point,omitempty"`
}

// String renders the variant for logs.
func (v Variant) String() string {
	desc := "-"
	if v.Description != nil {
		desc = *v.Description
	}
	point := "-"
	if v.Point != nil {
		point = FormatPoint(*v.Point)
	}
	return desc + "@" + point
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }

// SameString is SQL "IS NOT DISTINCT FROM" for optional strings.
func SameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SamePoint is SQL "IS NOT DISTINCT FROM" for optional points.
func SamePoint(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Quotes flattens the market into one Quote per outcome.
func (m Market) Quotes() []Quote {
	out := make([]Quote, 0, len(m.Outcomes))
	for _, o := range m.Outcomes {
		out = append(out, Quote{
			EventID:     m.EventID,
			Bookmaker:   m.Bookmaker,
			BetType:     m.BetType,
			Description: m.Description,
			Outcome:     o,
		})
	}
	return out
}

var outcomeRank = map[string]int{
	OutcomeHome:  0,
	OutcomeAway:  1,
	OutcomeDraw:  2,
	OutcomeOver:  3,
	OutcomeUnder: 4,
}

// SortOutcomeNames orders names canonically: home, away, draw, over, under,
// then any free labels alphabetically.
func SortOutcomeNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := outcomeRank[names[i]]
		rj, jok := outcomeRank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})
}
