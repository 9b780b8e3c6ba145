// Package memory implements the domain store interfaces in process memory.
// It backs dry runs over JSON fixtures and the engine tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

type marketKey struct {
	eventID   string
	bookmaker string
	betType   domain.BetType
	desc      string
	hasDesc   bool
}

func keyOf(m domain.Market) marketKey {
	k := marketKey{eventID: m.EventID, bookmaker: m.Bookmaker, betType: m.BetType}
	if m.Description != nil {
		k.desc, k.hasDesc = *m.Description, true
	}
	return k
}

// Store is a concurrency-safe in-memory quote database.
type Store struct {
	mu         sync.RWMutex
	events     map[string]domain.Event
	markets    map[marketKey]domain.Market
	teams      map[string]string
	categories map[string]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events:     make(map[string]domain.Event),
		markets:    make(map[marketKey]domain.Market),
		teams:      make(map[string]string),
		categories: make(map[string]string),
	}
}

// Fixture is the on-disk shape accepted by LoadFixture.
type Fixture struct {
	Categories map[string]string `json:"categories"`
	Teams      map[string]string `json:"teams"`
	Events     []domain.Event    `json:"events"`
	Markets    []domain.Market   `json:"markets"`
}

// LoadFixture reads a JSON fixture file into a new Store.
func LoadFixture(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("memory: decode fixture %s: %w", path, err)
	}

	s := NewStore()
	ctx := context.Background()
	for id, name := range fx.Categories {
		s.SetCategory(id, name)
	}
	for id, name := range fx.Teams {
		s.SetTeam(id, name)
	}
	for _, ev := range fx.Events {
		if err := s.UpsertEvent(ctx, ev); err != nil {
			return nil, err
		}
	}
	for _, m := range fx.Markets {
		if err := s.UpsertMarket(ctx, m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetTeam registers a display name for a team id.
func (s *Store) SetTeam(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[id] = name
}

// SetCategory registers a display name for a category id.
func (s *Store) SetCategory(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[id] = name
}

// UpsertEvent inserts or replaces an event. Start time is stored in UTC.
func (s *Store) UpsertEvent(_ context.Context, ev domain.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("memory: upsert event: %w: empty id", domain.ErrDataMalformed)
	}
	ev.StartTime = ev.StartTime.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
	return nil
}

// UpsertMarket inserts or replaces a market and all of its outcomes.
func (s *Store) UpsertMarket(_ context.Context, m domain.Market) error {
	if !m.BetType.Valid() {
		return fmt.Errorf("memory: upsert market: %w: %q", domain.ErrInvalidBetType, m.BetType)
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	m.Outcomes = append([]domain.Outcome(nil), m.Outcomes...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[keyOf(m)] = m
	return nil
}

// GetEvents returns events starting after the given time, optionally within
// one category, ordered by start time.
func (s *Store) GetEvents(_ context.Context, categoryID *string, after time.Time) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Event
	for _, ev := range s.events {
		if categoryID != nil && ev.CategoryID != *categoryID {
			continue
		}
		if !ev.StartTime.After(after) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// GetEventByID returns domain.ErrNotFound when the event is unknown.
func (s *Store) GetEventByID(_ context.Context, id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return ev, nil
}

// GetMarketOutcomeNames lists distinct outcome names across bookmakers for
// markets whose description is not distinct from description.
func (s *Store) GetMarketOutcomeNames(_ context.Context, eventID string, betType domain.BetType, description *string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, m := range s.markets {
		if m.EventID != eventID || m.BetType != betType || !domain.SameString(m.Description, description) {
			continue
		}
		for _, o := range m.Outcomes {
			if !seen[o.Name] {
				seen[o.Name] = true
				names = append(names, o.Name)
			}
		}
	}
	domain.SortOutcomeNames(names)
	return names, nil
}

// GetMarketVariantDescriptions lists distinct market descriptions, with nil
// standing for markets quoted without one. Nil sorts first.
func (s *Store) GetMarketVariantDescriptions(_ context.Context, eventID string, betType domain.BetType) ([]*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hasNil := false
	seen := make(map[string]bool)
	var descs []string
	for _, m := range s.markets {
		if m.EventID != eventID || m.BetType != betType {
			continue
		}
		if m.Description == nil {
			hasNil = true
			continue
		}
		if !seen[*m.Description] {
			seen[*m.Description] = true
			descs = append(descs, *m.Description)
		}
	}
	sort.Strings(descs)

	out := make([]*string, 0, len(descs)+1)
	if hasNil {
		out = append(out, nil)
	}
	for _, d := range descs {
		out = append(out, domain.StrPtr(d))
	}
	return out, nil
}

// GetMarketPoints lists distinct, ascending points quoted for the event and
// bet type. Nil name or description leaves that filter off.
func (s *Store) GetMarketPoints(_ context.Context, eventID string, betType domain.BetType, name *string, description *string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[float64]bool)
	hasNaN := false
	var points []float64
	for _, m := range s.markets {
		if m.EventID != eventID || m.BetType != betType {
			continue
		}
		if description != nil && !domain.SameString(m.Description, description) {
			continue
		}
		for _, o := range m.Outcomes {
			if o.Point == nil || (name != nil && o.Name != *name) {
				continue
			}
			p := *o.Point
			if math.IsNaN(p) {
				hasNaN = true
				continue
			}
			if !seen[p] {
				seen[p] = true
				points = append(points, p)
			}
		}
	}
	sort.Float64s(points)
	if hasNaN {
		points = append(points, math.NaN())
	}
	return points, nil
}

// GetBookmakerOutcome returns one bookmaker's outcome, matching point and
// description with "is not distinct from" semantics.
func (s *Store) GetBookmakerOutcome(_ context.Context, eventID, bookmaker string, betType domain.BetType, name string, point *float64, description *string) (domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := marketKey{eventID: eventID, bookmaker: bookmaker, betType: betType}
	if description != nil {
		k.desc, k.hasDesc = *description, true
	}
	m, ok := s.markets[k]
	if !ok {
		return domain.Outcome{}, domain.ErrNotFound
	}
	for _, o := range m.Outcomes {
		if o.Name == name && domain.SamePoint(o.Point, point) {
			return o, nil
		}
	}
	return domain.Outcome{}, domain.ErrNotFound
}

// ListQuotes flattens every stored outcome.
func (s *Store) ListQuotes(_ context.Context) ([]domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Quote
	for _, m := range s.markets {
		out = append(out, m.Quotes()...)
	}
	return out, nil
}

// TeamName resolves a team id, or returns domain.ErrNotFound.
func (s *Store) TeamName(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.teams[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return name, nil
}

// CategoryName resolves a category id, or returns domain.ErrNotFound.
func (s *Store) CategoryName(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.categories[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return name, nil
}

// Compile-time interface checks.
var (
	_ domain.MarketStore   = (*Store)(nil)
	_ domain.MarketWriter  = (*Store)(nil)
	_ domain.QuoteSource   = (*Store)(nil)
	_ domain.LabelResolver = (*Store)(nil)
)
