package scan

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// Unit is one market variant of one event, with the outcome names quoted
// for it.
type Unit struct {
	Event   domain.Event
	BetType domain.BetType
	Variant domain.Variant
	Names   []string
}

// Findings is what a scanner produced for a unit.
type Findings struct {
	ValueBets []domain.PositiveEVBet
	Arbs      []domain.ArbitrageCombination
}

// Scanner inspects one unit. A unit with missing data returns an error
// wrapping domain.ErrDataAbsent; the engine skips it.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, u Unit) (Findings, error)
}

// Registry holds named scanners for selection by config.
type Registry struct {
	scanners map[string]Scanner
	mu       sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: make(map[string]Scanner)}
}

// Register adds s under its own name.
func (r *Registry) Register(s Scanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanners[s.Name()] = s
}

// Get returns the scanner by name.
func (r *Registry) Get(name string) (Scanner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scanners[name]
	if !ok {
		return nil, fmt.Errorf("scan: scanner %q not registered", name)
	}
	return s, nil
}

// Select resolves names in order.
func (r *Registry) Select(names []string) ([]Scanner, error) {
	out := make([]Scanner, 0, len(names))
	for _, n := range names {
		s, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// List returns all registered scanner names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scanners))
	for n := range r.scanners {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
