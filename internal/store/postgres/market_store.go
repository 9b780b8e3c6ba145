package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// MarketStore implements domain.MarketStore, domain.MarketWriter,
// domain.QuoteSource and domain.LabelResolver using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// UpsertEvent inserts or updates an event.
func (s *MarketStore) UpsertEvent(ctx context.Context, ev domain.Event) error {
	const query = `
		INSERT INTO events (id, category_id, start_time, home_team_id, away_team_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			category_id  = EXCLUDED.category_id,
			start_time   = EXCLUDED.start_time,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id`

	if _, err := s.pool.Exec(ctx, query,
		ev.ID, ev.CategoryID, ev.StartTime.UTC(), ev.HomeTeamID, ev.AwayTeamID,
	); err != nil {
		return wrapErr("upsert event "+ev.ID, err)
	}
	return nil
}

// UpsertMarket replaces a market's outcomes in one transaction, computing
// each outcome's fingerprint on the way in.
func (s *MarketStore) UpsertMarket(ctx context.Context, m domain.Market) error {
	if !m.BetType.Valid() {
		return fmt.Errorf("postgres: upsert market: %w: %q", domain.ErrInvalidBetType, m.BetType)
	}
	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	const upsertMarket = `
		INSERT INTO markets (event_id, bookmaker, bet_type, description, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, bookmaker, bet_type, description) DO UPDATE SET
			updated_at = EXCLUDED.updated_at
		RETURNING id`
	const insertOutcome = `
		INSERT INTO outcomes (market_id, name, description, price, point, external_id, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var marketID int64
		if err := tx.QueryRow(ctx, upsertMarket,
			m.EventID, m.Bookmaker, string(m.BetType), m.Description, updatedAt.UTC(),
		).Scan(&marketID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM outcomes WHERE market_id = $1`, marketID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, q := range m.Quotes() {
			batch.Queue(insertOutcome,
				marketID, q.Outcome.Name, q.Outcome.Description, q.Outcome.Price,
				q.Outcome.Point, q.Outcome.ExternalID, q.Fingerprint(),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return wrapErr(fmt.Sprintf("upsert market %s/%s/%s", m.EventID, m.Bookmaker, m.BetType), err)
	}
	return nil
}

const eventCols = `id, category_id, start_time, home_team_id, away_team_id`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var ev domain.Event
	if err := row.Scan(&ev.ID, &ev.CategoryID, &ev.StartTime, &ev.HomeTeamID, &ev.AwayTeamID); err != nil {
		return domain.Event{}, err
	}
	ev.StartTime = ev.StartTime.UTC()
	return ev, nil
}

// GetEvents lists events starting after the given time, optionally within a
// category.
func (s *MarketStore) GetEvents(ctx context.Context, categoryID *string, after time.Time) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events
		WHERE start_time > $1 AND ($2::text IS NULL OR category_id = $2)
		ORDER BY start_time, id`

	rows, err := s.pool.Query(ctx, query, after.UTC(), categoryID)
	if err != nil {
		return nil, wrapErr("list events", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, wrapErr("scan event", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list events rows", err)
	}
	return events, nil
}

// GetEventByID returns domain.ErrNotFound when no such event exists.
func (s *MarketStore) GetEventByID(ctx context.Context, id string) (domain.Event, error) {
	ev, err := scanEvent(s.pool.QueryRow(ctx, `SELECT `+eventCols+` FROM events WHERE id = $1`, id))
	if err != nil {
		return domain.Event{}, wrapErr("get event "+id, err)
	}
	return ev, nil
}

// GetMarketOutcomeNames lists distinct outcome names for markets whose
// description is not distinct from description.
func (s *MarketStore) GetMarketOutcomeNames(ctx context.Context, eventID string, betType domain.BetType, description *string) ([]string, error) {
	const query = `
		SELECT DISTINCT o.name
		FROM outcomes o
		JOIN markets m ON m.id = o.market_id
		WHERE m.event_id = $1 AND m.bet_type = $2
		  AND m.description IS NOT DISTINCT FROM $3::text`

	rows, err := s.pool.Query(ctx, query, eventID, string(betType), description)
	if err != nil {
		return nil, wrapErr("outcome names", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("collect outcome names", err)
	}
	domain.SortOutcomeNames(names)
	return names, nil
}

// GetMarketVariantDescriptions lists distinct descriptions, nil first.
func (s *MarketStore) GetMarketVariantDescriptions(ctx context.Context, eventID string, betType domain.BetType) ([]*string, error) {
	const query = `
		SELECT DISTINCT description
		FROM markets
		WHERE event_id = $1 AND bet_type = $2
		ORDER BY description NULLS FIRST`

	rows, err := s.pool.Query(ctx, query, eventID, string(betType))
	if err != nil {
		return nil, wrapErr("variant descriptions", err)
	}
	descs, err := pgx.CollectRows(rows, pgx.RowTo[*string])
	if err != nil {
		return nil, wrapErr("collect variant descriptions", err)
	}
	return descs, nil
}

// GetMarketPoints lists distinct points in ascending order. Nil name or
// description leaves that filter off. NaN points sort last.
func (s *MarketStore) GetMarketPoints(ctx context.Context, eventID string, betType domain.BetType, name *string, description *string) ([]float64, error) {
	const query = `
		SELECT DISTINCT o.point
		FROM outcomes o
		JOIN markets m ON m.id = o.market_id
		WHERE m.event_id = $1 AND m.bet_type = $2
		  AND o.point IS NOT NULL
		  AND ($3::text IS NULL OR o.name = $3)
		  AND ($4::text IS NULL OR m.description = $4)
		ORDER BY o.point`

	rows, err := s.pool.Query(ctx, query, eventID, string(betType), name, description)
	if err != nil {
		return nil, wrapErr("market points", err)
	}
	points, err := pgx.CollectRows(rows, pgx.RowTo[float64])
	if err != nil {
		return nil, wrapErr("collect market points", err)
	}
	return points, nil
}

// GetBookmakerOutcome returns one bookmaker's outcome with "is not distinct
// from" matching on point and description.
func (s *MarketStore) GetBookmakerOutcome(ctx context.Context, eventID, bookmaker string, betType domain.BetType, name string, point *float64, description *string) (domain.Outcome, error) {
	const query = `
		SELECT o.name, o.description, o.price, o.point, o.external_id
		FROM outcomes o
		JOIN markets m ON m.id = o.market_id
		WHERE m.event_id = $1 AND m.bookmaker = $2 AND m.bet_type = $3
		  AND o.name = $4
		  AND o.point IS NOT DISTINCT FROM $5::float8
		  AND m.description IS NOT DISTINCT FROM $6::text
		LIMIT 1`

	var o domain.Outcome
	err := s.pool.QueryRow(ctx, query, eventID, bookmaker, string(betType), name, point, description).
		Scan(&o.Name, &o.Description, &o.Price, &o.Point, &o.ExternalID)
	if err != nil {
		return domain.Outcome{}, wrapErr("bookmaker outcome", err)
	}
	return o, nil
}

// ListQuotes flattens every stored outcome for an in-memory index rebuild.
func (s *MarketStore) ListQuotes(ctx context.Context) ([]domain.Quote, error) {
	const query = `
		SELECT m.event_id, m.bookmaker, m.bet_type, m.description,
		       o.name, o.description, o.price, o.point, o.external_id
		FROM outcomes o
		JOIN markets m ON m.id = o.market_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapErr("list quotes", err)
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		var q domain.Quote
		var betType string
		if err := rows.Scan(
			&q.EventID, &q.Bookmaker, &betType, &q.Description,
			&q.Outcome.Name, &q.Outcome.Description, &q.Outcome.Price, &q.Outcome.Point, &q.Outcome.ExternalID,
		); err != nil {
			return nil, wrapErr("scan quote", err)
		}
		q.BetType = domain.BetType(betType)
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list quotes rows", err)
	}
	return quotes, nil
}

// TeamName resolves a team id.
func (s *MarketStore) TeamName(ctx context.Context, id string) (string, error) {
	var name string
	if err := s.pool.QueryRow(ctx, `SELECT name FROM teams WHERE id = $1`, id).Scan(&name); err != nil {
		return "", wrapErr("team name "+id, err)
	}
	return name, nil
}

// CategoryName resolves a category id.
func (s *MarketStore) CategoryName(ctx context.Context, id string) (string, error) {
	var name string
	if err := s.pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, id).Scan(&name); err != nil {
		return "", wrapErr("category name "+id, err)
	}
	return name, nil
}

// Compile-time interface checks.
var (
	_ domain.MarketStore   = (*MarketStore)(nil)
	_ domain.MarketWriter  = (*MarketStore)(nil)
	_ domain.QuoteSource   = (*MarketStore)(nil)
	_ domain.LabelResolver = (*MarketStore)(nil)
)
