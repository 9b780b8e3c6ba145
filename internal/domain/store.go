package domain

import (
	"context"
	"time"
)

// MarketStore is the read side of the quote database the engine scans.
// Optional arguments are nil when unconstrained; nil descriptions and points
// match only nil ("is not distinct from").
type MarketStore interface {
	GetEvents(ctx context.Context, categoryID *string, after time.Time) ([]Event, error)
	GetEventByID(ctx context.Context, id string) (Event, error)
	GetMarketOutcomeNames(ctx context.Context, eventID string, betType BetType, description *string) ([]string, error)
	GetMarketVariantDescriptions(ctx context.Context, eventID string, betType BetType) ([]*string, error)
	GetMarketPoints(ctx context.Context, eventID string, betType BetType, name *string, description *string) ([]float64, error)
	GetBookmakerOutcome(ctx context.Context, eventID, bookmaker string, betType BetType, name string, point *float64, description *string) (Outcome, error)
}

// MarketWriter is the write side used by scrapers and fixture loaders. The
// scan engine never calls it.
type MarketWriter interface {
	UpsertEvent(ctx context.Context, ev Event) error
	UpsertMarket(ctx context.Context, m Market) error
}

// QuoteSource lists every current quote for an index rebuild.
type QuoteSource interface {
	ListQuotes(ctx context.Context) ([]Quote, error)
}

// OutcomeIndex maps fingerprints to the best price on file. Lookup never
// rebuilds; it returns ErrNotFound when no bookmaker quotes the fingerprint.
type OutcomeIndex interface {
	Rebuild(ctx context.Context) error
	Lookup(ctx context.Context, fingerprint string) (BestQuote, error)
}

// LabelResolver turns identifiers into display names.
type LabelResolver interface {
	TeamName(ctx context.Context, id string) (string, error)
	CategoryName(ctx context.Context, id string) (string, error)
}

// StoredValueBet is a PositiveEVBet as recorded by a report sink.
type StoredValueBet struct {
	ScanID     string    `json:"scan_id"`
	DetectedAt time.Time `json:"detected_at"`
	PositiveEVBet
}

// StoredArb is an ArbitrageCombination as recorded by a report sink.
type StoredArb struct {
	ScanID     string    `json:"scan_id"`
	DetectedAt time.Time `json:"detected_at"`
	ArbitrageCombination
}

// ReportStore persists scan reports for the read API.
type ReportStore interface {
	SaveReport(ctx context.Context, report *ScanReport) error
	ListRuns(ctx context.Context, limit int) ([]ScanRun, error)
	ListValueBets(ctx context.Context, limit int) ([]StoredValueBet, error)
	ListArbs(ctx context.Context, limit int) ([]StoredArb, error)
}
