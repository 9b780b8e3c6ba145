package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/notify"
	"github.com/alanyoungcy/sharpline/internal/store/memory"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleReport() *domain.ScanReport {
	return &domain.ScanReport{
		ID:         "scan-1",
		StartedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 5, 1, 12, 0, 3, 0, time.UTC),
		Results: []domain.EventResult{{
			Event: domain.Event{ID: "e1", CategoryID: "nba", HomeTeamID: "t1", AwayTeamID: "t2"},
			ValueBets: []domain.PositiveEVBet{{
				EventID: "e1", BetType: domain.BetTypeH2H, Outcome: domain.OutcomeHome,
				Bookmaker: "bookb", Price: 2.05, FairPrice: 1.9314, Edge: 1.0614, Stake: 0.0705,
			}},
			Arbs: []domain.ArbitrageCombination{{
				EventID: "e1", BetType: domain.BetTypeSpreads, Point: domain.FloatPtr(-1.5),
				ImpliedSum: 0.9307,
				Legs: []domain.ArbLeg{
					{Outcome: domain.OutcomeHome, Point: domain.FloatPtr(-1.5), Bookmaker: "a", Price: 2.10, Stake: 0.5117},
					{Outcome: domain.OutcomeAway, Point: domain.FloatPtr(-1.5), Bookmaker: "b", Price: 2.20, Stake: 0.4883},
				},
			}},
		}},
	}
}

func labelStore() *memory.Store {
	s := memory.NewStore()
	s.SetCategory("nba", "NBA")
	s.SetTeam("t1", "Lakers")
	return s
}

func TestRenderResolvesLabels(t *testing.T) {
	e := NewEmitter(labelStore(), nil, discard)
	r := e.Render(context.Background(), sampleReport())
	if len(r.Events) != 1 {
		t.Fatalf("events = %d", len(r.Events))
	}
	ev := r.Events[0]
	if ev.Labels.League != "NBA" || ev.Labels.Home != "Lakers" {
		t.Errorf("labels = %+v", ev.Labels)
	}
	// Unknown team falls back to its id.
	if ev.Labels.Away != "t2" {
		t.Errorf("away label = %q, want t2", ev.Labels.Away)
	}
	for _, want := range []string{"NBA: Lakers vs t2", "Moneyline", "bookb", "2.05", "1.931", "6.14%", "7.05%"} {
		if !strings.Contains(ev.ValueBetText, want) {
			t.Errorf("value bet text missing %q:\n%s", want, ev.ValueBetText)
		}
	}
	for _, want := range []string{"Spread", "-1.5", "sum 0.9307", "Lakers", "t2"} {
		if !strings.Contains(ev.ArbText, want) {
			t.Errorf("arb text missing %q:\n%s", want, ev.ArbText)
		}
	}
}

func TestBetTypeLabel(t *testing.T) {
	tests := []struct {
		name string
		bt   domain.BetType
		desc *string
		want string
	}{
		{"plain", domain.BetTypeTotals, nil, "Total"},
		{"described", domain.BetTypeTotals, domain.StrPtr("1st Half"), "Total (1st Half)"},
		{"empty description", domain.BetTypeH2H, domain.StrPtr(""), "Moneyline"},
		{"unknown", domain.BetType("props"), nil, "props"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BetTypeLabel(tt.bt, tt.desc); got != tt.want {
				t.Errorf("BetTypeLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

type fakeSink struct {
	name string
	err  error
	got  []*Rendered
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Deliver(_ context.Context, r *Rendered) error {
	f.got = append(f.got, r)
	return f.err
}

func TestEmitContinuesPastFailingSink(t *testing.T) {
	boom := errors.New("boom")
	bad := &fakeSink{name: "bad", err: boom}
	good := &fakeSink{name: "good"}
	e := NewEmitter(nil, []Sink{bad, good}, discard)

	err := e.Emit(context.Background(), sampleReport())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping boom", err)
	}
	if len(good.got) != 1 {
		t.Errorf("good sink deliveries = %d, want 1", len(good.got))
	}
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

func TestNotifySink(t *testing.T) {
	n := &fakeNotifier{}
	e := NewEmitter(nil, []Sink{NewNotifySink(n), &fakeSink{name: "plain"}}, discard)
	ctx := context.Background()

	if err := e.Emit(ctx, sampleReport()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := e.EmitFailure(ctx, errors.New("store down")); err != nil {
		t.Fatalf("EmitFailure: %v", err)
	}
	want := []string{notify.EventPositiveEV, notify.EventArbitrage, notify.EventScanFailed}
	if strings.Join(n.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", n.events, want)
	}
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: map[string][][]byte{}, streamed: map[string][][]byte{}}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed[stream] = append(b.streamed[stream], payload)
	return nil
}

func (b *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestBusSinkPublishesFindings(t *testing.T) {
	bus := newFakeBus()
	e := NewEmitter(nil, []Sink{NewBusSink(bus)}, discard)
	if err := e.Emit(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if n := len(bus.published[domain.ChannelValueBets]); n != 1 {
		t.Fatalf("value bet messages = %d, want 1", n)
	}
	var vb domain.StoredValueBet
	if err := json.Unmarshal(bus.published[domain.ChannelValueBets][0], &vb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vb.ScanID != "scan-1" || vb.Bookmaker != "bookb" {
		t.Errorf("value bet = %+v", vb)
	}
	if n := len(bus.published[domain.ChannelArbs]); n != 1 {
		t.Errorf("arb messages = %d, want 1", n)
	}
	if n := len(bus.streamed[domain.StreamScans]); n != 1 {
		t.Errorf("stream entries = %d, want 1", n)
	}
	var run domain.ScanRun
	if err := json.Unmarshal(bus.streamed[domain.StreamScans][0], &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.ValueBets != 1 || run.Arbs != 1 {
		t.Errorf("run = %+v", run)
	}
}

type fakeArchiver struct{ calls int }

func (f *fakeArchiver) ArchiveReport(_ context.Context, r *domain.ScanReport) (string, error) {
	f.calls++
	return "reports/" + r.ID + ".jsonl", nil
}

func TestArchiveSink(t *testing.T) {
	a := &fakeArchiver{}
	e := NewEmitter(nil, []Sink{NewArchiveSink(a, discard)}, discard)
	if err := e.Emit(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if a.calls != 1 {
		t.Errorf("archive calls = %d, want 1", a.calls)
	}
}
