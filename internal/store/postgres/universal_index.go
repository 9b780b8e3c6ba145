package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// UniversalIndex is a domain.OutcomeIndex over the flat_outcomes and
// universal_outcomes materialized views. Rebuild refreshes both views in
// order; Lookup reads universal_outcomes by fingerprint.
type UniversalIndex struct {
	pool      *pgxpool.Pool
	refreshed atomic.Bool
	staleOnce sync.Once
	logger    *slog.Logger
}

// NewUniversalIndex creates an index backed by pool.
func NewUniversalIndex(pool *pgxpool.Pool, logger *slog.Logger) *UniversalIndex {
	return &UniversalIndex{
		pool:   pool,
		logger: logger.With(slog.String("component", "universal_index")),
	}
}

// Rebuild refreshes flat_outcomes, then universal_outcomes. The second
// refresh runs concurrently so readers keep the previous snapshot until it
// completes.
func (u *UniversalIndex) Rebuild(ctx context.Context) error {
	if _, err := u.pool.Exec(ctx, `REFRESH MATERIALIZED VIEW flat_outcomes`); err != nil {
		return wrapErr("refresh flat_outcomes", err)
	}
	if _, err := u.pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY universal_outcomes`); err != nil {
		return wrapErr("refresh universal_outcomes", err)
	}
	u.refreshed.Store(true)

	var n int64
	if err := u.pool.QueryRow(ctx, `SELECT COUNT(*) FROM universal_outcomes`).Scan(&n); err == nil {
		u.logger.InfoContext(ctx, "outcome index rebuilt", slog.Int64("fingerprints", n))
	}
	return nil
}

// Lookup returns the best quote for fingerprint, or domain.ErrNotFound.
// Until this process has refreshed the views every lookup is not found,
// wrapping domain.ErrIndexStale, and the first one logs a warning.
func (u *UniversalIndex) Lookup(ctx context.Context, fingerprint string) (domain.BestQuote, error) {
	if !u.refreshed.Load() {
		u.staleOnce.Do(func() {
			u.logger.WarnContext(ctx, "outcome index read before first rebuild")
		})
		return domain.BestQuote{}, fmt.Errorf("%w: %w", domain.ErrNotFound, domain.ErrIndexStale)
	}

	const query = `
		SELECT bookmaker, name, description, price, point, external_id
		FROM universal_outcomes
		WHERE fingerprint = $1`

	bq := domain.BestQuote{Fingerprint: fingerprint}
	o := &bq.Outcome
	err := u.pool.QueryRow(ctx, query, fingerprint).
		Scan(&bq.Bookmaker, &o.Name, &o.Description, &o.Price, &o.Point, &o.ExternalID)
	if err != nil {
		return domain.BestQuote{}, wrapErr(fmt.Sprintf("lookup %s", fingerprint), err)
	}
	return bq, nil
}

// Compile-time interface check.
var _ domain.OutcomeIndex = (*UniversalIndex)(nil)
