package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// ReportStore implements domain.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore creates a new ReportStore backed by the given connection pool.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// SaveReport writes the run summary and every finding in one transaction.
// Value bets go through COPY; arbitrage legs are stored as JSONB.
func (s *ReportStore) SaveReport(ctx context.Context, report *domain.ScanReport) error {
	run := report.Summary()
	detectedAt := report.FinishedAt.UTC()

	const insertRun = `
		INSERT INTO scan_runs (
			id, started_at, finished_at, events_scanned, variants_scanned,
			units_skipped, value_bets, arbs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	const insertArb = `
		INSERT INTO arbitrage_combinations (
			scan_id, detected_at, event_id, bet_type, description, point, implied_sum, legs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var bets []domain.PositiveEVBet
	var arbs []domain.ArbitrageCombination
	for _, res := range report.Results {
		bets = append(bets, res.ValueBets...)
		arbs = append(arbs, res.Arbs...)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertRun,
			run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.EventsScanned,
			run.VariantsScanned, run.UnitsSkipped, run.ValueBets, run.Arbs,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if len(bets) > 0 {
			_, err := tx.CopyFrom(ctx,
				pgx.Identifier{"positive_ev_bets"},
				[]string{"scan_id", "detected_at", "event_id", "bet_type", "description", "point",
					"outcome", "bookmaker", "price", "fair_price", "edge", "stake"},
				pgx.CopyFromSlice(len(bets), func(i int) ([]any, error) {
					b := bets[i]
					return []any{run.ID, detectedAt, b.EventID, string(b.BetType), b.Description, b.Point,
						b.Outcome, b.Bookmaker, b.Price, b.FairPrice, b.Edge, b.Stake}, nil
				}),
			)
			if err != nil {
				return fmt.Errorf("copy value bets: %w", err)
			}
		}

		if len(arbs) > 0 {
			batch := &pgx.Batch{}
			for _, a := range arbs {
				legs, err := json.Marshal(a.Legs)
				if err != nil {
					return fmt.Errorf("encode legs: %w", err)
				}
				batch.Queue(insertArb, run.ID, detectedAt, a.EventID, string(a.BetType),
					a.Description, a.Point, a.ImpliedSum, legs)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert arbs: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return wrapErr("save report "+report.ID, err)
	}
	return nil
}

// ListRuns returns the most recent scan runs, newest first.
func (s *ReportStore) ListRuns(ctx context.Context, limit int) ([]domain.ScanRun, error) {
	query := `SELECT id, started_at, finished_at, events_scanned, variants_scanned,
			units_skipped, value_bets, arbs
		FROM scan_runs ORDER BY started_at DESC`
	query, args := withLimit(query, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list runs", err)
	}
	defer rows.Close()

	var runs []domain.ScanRun
	for rows.Next() {
		var r domain.ScanRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.EventsScanned,
			&r.VariantsScanned, &r.UnitsSkipped, &r.ValueBets, &r.Arbs); err != nil {
			return nil, wrapErr("scan run", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list runs rows", err)
	}
	return runs, nil
}

// ListValueBets returns the most recently detected value bets.
func (s *ReportStore) ListValueBets(ctx context.Context, limit int) ([]domain.StoredValueBet, error) {
	query := `SELECT scan_id, detected_at, event_id, bet_type, description, point,
			outcome, bookmaker, price, fair_price, edge, stake
		FROM positive_ev_bets ORDER BY detected_at DESC, edge DESC`
	query, args := withLimit(query, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list value bets", err)
	}
	defer rows.Close()

	var out []domain.StoredValueBet
	for rows.Next() {
		var b domain.StoredValueBet
		var betType string
		if err := rows.Scan(&b.ScanID, &b.DetectedAt, &b.EventID, &betType, &b.Description, &b.Point,
			&b.Outcome, &b.Bookmaker, &b.Price, &b.FairPrice, &b.Edge, &b.Stake); err != nil {
			return nil, wrapErr("scan value bet", err)
		}
		b.BetType = domain.BetType(betType)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list value bets rows", err)
	}
	return out, nil
}

// ListArbs returns the most recently detected arbitrage combinations.
func (s *ReportStore) ListArbs(ctx context.Context, limit int) ([]domain.StoredArb, error) {
	query := `SELECT scan_id, detected_at, event_id, bet_type, description, point, implied_sum, legs
		FROM arbitrage_combinations ORDER BY detected_at DESC, implied_sum ASC`
	query, args := withLimit(query, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list arbs", err)
	}
	defer rows.Close()

	var out []domain.StoredArb
	for rows.Next() {
		var a domain.StoredArb
		var betType string
		var legs []byte
		if err := rows.Scan(&a.ScanID, &a.DetectedAt, &a.EventID, &betType, &a.Description,
			&a.Point, &a.ImpliedSum, &legs); err != nil {
			return nil, wrapErr("scan arb", err)
		}
		if err := json.Unmarshal(legs, &a.Legs); err != nil {
			return nil, fmt.Errorf("postgres: decode legs for scan %s: %w: %v", a.ScanID, domain.ErrDataMalformed, err)
		}
		a.BetType = domain.BetType(betType)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list arbs rows", err)
	}
	return out, nil
}

func withLimit(query string, limit int) (string, []any) {
	if limit <= 0 {
		return query, nil
	}
	return query + " LIMIT $1", []any{limit}
}

// Compile-time interface check.
var _ domain.ReportStore = (*ReportStore)(nil)
