// Package index provides the in-memory universal outcome index: for every
// fingerprint, the highest price any bookmaker currently quotes.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

type snapshot struct {
	best map[string]domain.BestQuote
}

// Memory is a domain.OutcomeIndex rebuilt from a QuoteSource. Rebuild swaps
// the whole snapshot atomically; Lookup never blocks on a rebuild.
type Memory struct {
	source    domain.QuoteSource
	snap      atomic.Pointer[snapshot]
	staleOnce sync.Once
	logger    *slog.Logger
}

// NewMemory creates an empty index over source.
func NewMemory(source domain.QuoteSource, logger *slog.Logger) *Memory {
	return &Memory{
		source: source,
		logger: logger.With(slog.String("component", "outcome_index")),
	}
}

// Rebuild groups every current quote by fingerprint and keeps the best
// price. Equal prices resolve to the lexicographically smallest bookmaker.
// Quotes with unusable prices are left out.
func (m *Memory) Rebuild(ctx context.Context) error {
	quotes, err := m.source.ListQuotes(ctx)
	if err != nil {
		return fmt.Errorf("index: list quotes: %w", err)
	}

	best := make(map[string]domain.BestQuote, len(quotes))
	dropped := 0
	for _, q := range quotes {
		if !domain.ValidPrice(q.Outcome.Price) {
			dropped++
			continue
		}
		fp := q.Fingerprint()
		cur, ok := best[fp]
		if ok && !better(q, cur) {
			continue
		}
		best[fp] = domain.BestQuote{
			Fingerprint: fp,
			Bookmaker:   q.Bookmaker,
			Outcome:     q.Outcome,
		}
	}

	m.snap.Store(&snapshot{best: best})
	m.logger.InfoContext(ctx, "outcome index rebuilt",
		slog.Int("quotes", len(quotes)),
		slog.Int("fingerprints", len(best)),
		slog.Int("dropped", dropped),
	)
	return nil
}

func better(q domain.Quote, cur domain.BestQuote) bool {
	if q.Outcome.Price != cur.Outcome.Price {
		return q.Outcome.Price > cur.Outcome.Price
	}
	return q.Bookmaker < cur.Bookmaker
}

// Lookup returns the best quote for fingerprint, or domain.ErrNotFound. A
// lookup before the first rebuild is also reported as not found and logs a
// single warning.
func (m *Memory) Lookup(ctx context.Context, fingerprint string) (domain.BestQuote, error) {
	s := m.snap.Load()
	if s == nil {
		m.staleOnce.Do(func() {
			m.logger.WarnContext(ctx, "outcome index read before first rebuild")
		})
		return domain.BestQuote{}, fmt.Errorf("%w: %w", domain.ErrNotFound, domain.ErrIndexStale)
	}
	bq, ok := s.best[fingerprint]
	if !ok {
		return domain.BestQuote{}, domain.ErrNotFound
	}
	return bq, nil
}

// Compile-time interface check.
var _ domain.OutcomeIndex = (*Memory)(nil)
