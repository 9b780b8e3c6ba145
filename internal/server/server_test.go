package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/index"
	"github.com/alanyoungcy/sharpline/internal/server/handler"
	"github.com/alanyoungcy/sharpline/internal/store/memory"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeReports struct {
	runs []domain.ScanRun
	bets []domain.StoredValueBet
	err  error
	last int
}

func (f *fakeReports) SaveReport(context.Context, *domain.ScanReport) error { return nil }

func (f *fakeReports) ListRuns(_ context.Context, limit int) ([]domain.ScanRun, error) {
	f.last = limit
	return f.runs, f.err
}

func (f *fakeReports) ListValueBets(_ context.Context, limit int) ([]domain.StoredValueBet, error) {
	f.last = limit
	return f.bets, f.err
}

func (f *fakeReports) ListArbs(_ context.Context, limit int) ([]domain.StoredArb, error) {
	f.last = limit
	return nil, f.err
}

type fakeTrigger struct {
	err error
}

func (f fakeTrigger) TriggerScan(_ context.Context, eventID string) (*domain.ScanRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch eventID {
	case "":
		return &domain.ScanRun{ID: "run-1", EventsScanned: 3}, nil
	case "e1":
		return &domain.ScanRun{ID: "run-2", EventsScanned: 1}, nil
	}
	return nil, fmt.Errorf("scan: invalid event id %q: %w", eventID, domain.ErrNotFound)
}

type fakeStream struct {
	msgs  []domain.StreamMessage
	err   error
	after string
	count int
}

func (f *fakeStream) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	if stream != domain.StreamScans {
		return nil, fmt.Errorf("unexpected stream %q", stream)
	}
	f.after, f.count = lastID, count
	return f.msgs, f.err
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type fakeLimiter struct{ allowed int }

func (f *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	if f.allowed <= 0 {
		return false, nil
	}
	f.allowed--
	return true, nil
}

func newIndex(t *testing.T) *index.Memory {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	if err := store.UpsertEvent(ctx, domain.Event{ID: "e1", StartTime: time.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertMarket(ctx, domain.Market{
		EventID: "e1", Bookmaker: "b1", BetType: domain.BetTypeTotals,
		Outcomes: []domain.Outcome{{Name: "over", Price: 1.95, Point: domain.FloatPtr(2.5)}},
	}); err != nil {
		t.Fatal(err)
	}
	idx := index.NewMemory(store, discard)
	if err := idx.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	return idx
}

func newTestHandler(t *testing.T, cfg Config, reports *fakeReports, trigger fakeTrigger, limiter domain.RateLimiter, deps map[string]handler.Pinger) http.Handler {
	t.Helper()
	return NewHandler(cfg, Handlers{
		Health:      handler.NewHealthHandler(deps, discard),
		Reports:     handler.NewReportHandler(reports, discard),
		Scans:       handler.NewScanHandler(trigger, discard),
		Fingerprint: handler.NewFingerprintHandler(newIndex(t), discard),
	}, nil, limiter, discard)
}

func do(h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		deps map[string]handler.Pinger
		want int
	}{
		{"no deps", nil, http.StatusOK},
		{"healthy", map[string]handler.Pinger{"postgres": pinger{}}, http.StatusOK},
		{"degraded", map[string]handler.Pinger{"postgres": pinger{}, "redis": pinger{errors.New("down")}}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, Config{}, &fakeReports{}, fakeTrigger{}, nil, tt.deps)
			rec := do(h, http.MethodGet, "/api/health", nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestReportsEndpoints(t *testing.T) {
	reports := &fakeReports{
		runs: []domain.ScanRun{{ID: "r1"}},
		bets: []domain.StoredValueBet{{ScanID: "r1", PositiveEVBet: domain.PositiveEVBet{Outcome: "home"}}},
	}
	h := newTestHandler(t, Config{}, reports, fakeTrigger{}, nil, nil)

	rec := do(h, http.MethodGet, "/api/reports/ev?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ev status = %d", rec.Code)
	}
	if reports.last != 5 {
		t.Errorf("limit = %d, want 5", reports.last)
	}
	var bets []domain.StoredValueBet
	if err := json.Unmarshal(rec.Body.Bytes(), &bets); err != nil || len(bets) != 1 {
		t.Fatalf("bets = %v, err = %v", bets, err)
	}

	rec = do(h, http.MethodGet, "/api/reports/arb?limit=100000", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Errorf("arb: status = %d body = %s", rec.Code, rec.Body.String())
	}
	if reports.last != 500 {
		t.Errorf("limit = %d, want capped 500", reports.last)
	}

	rec = do(h, http.MethodGet, "/api/scans", nil)
	if rec.Code != http.StatusOK || reports.last != 50 {
		t.Errorf("scans: status = %d limit = %d", rec.Code, reports.last)
	}
}

func TestReportsStoreUnavailable(t *testing.T) {
	reports := &fakeReports{err: fmt.Errorf("postgres: list: %w", domain.ErrStoreUnavailable)}
	h := newTestHandler(t, Config{}, reports, fakeTrigger{}, nil, nil)
	if rec := do(h, http.MethodGet, "/api/scans", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestTriggerScan(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"ok", "/api/scans", nil, http.StatusOK},
		{"single event", "/api/scans?event_id=e1", nil, http.StatusOK},
		{"unknown event", "/api/scans?event_id=nope", nil, http.StatusNotFound},
		{"lock held", "/api/scans", fmt.Errorf("redis: acquire lock scan: %w", domain.ErrLockHeld), http.StatusConflict},
		{"store down", "/api/scans", domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"other", "/api/scans", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, Config{}, &fakeReports{}, fakeTrigger{err: tt.err}, nil, nil)
			if rec := do(h, http.MethodPost, tt.target, nil); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestFingerprintLookup(t *testing.T) {
	h := newTestHandler(t, Config{}, &fakeReports{}, fakeTrigger{}, nil, nil)
	want := domain.Fingerprint("over", nil, domain.FloatPtr(2.5), domain.BetTypeTotals, "e1")

	tests := []struct {
		name   string
		query  url.Values
		status int
	}{
		{"found", url.Values{"name": {"Over"}, "bet_type": {"totals"}, "event_id": {"e1"}, "point": {"2.50"}}, http.StatusOK},
		{"other point", url.Values{"name": {"over"}, "bet_type": {"totals"}, "event_id": {"e1"}, "point": {"3"}}, http.StatusNotFound},
		{"empty description differs", url.Values{"name": {"over"}, "bet_type": {"totals"}, "event_id": {"e1"}, "point": {"2.5"}, "description": {""}}, http.StatusNotFound},
		{"bad bet type", url.Values{"name": {"over"}, "bet_type": {"props"}, "event_id": {"e1"}}, http.StatusBadRequest},
		{"bad point", url.Values{"name": {"over"}, "bet_type": {"totals"}, "event_id": {"e1"}, "point": {"x"}}, http.StatusBadRequest},
		{"missing name", url.Values{"bet_type": {"totals"}, "event_id": {"e1"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/api/fingerprint?"+tt.query.Encode(), nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp struct {
				Fingerprint string            `json:"fingerprint"`
				Best        *domain.BestQuote `json:"best"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Fingerprint != want || resp.Best == nil || resp.Best.Bookmaker != "b1" {
				t.Errorf("resp = %+v, want fingerprint %s from b1", resp, want)
			}
		})
	}
}

func TestAuth(t *testing.T) {
	h := newTestHandler(t, Config{APIKey: "secret"}, &fakeReports{}, fakeTrigger{}, nil, nil)

	tests := []struct {
		name   string
		target string
		hdr    map[string]string
		want   int
	}{
		{"health is public", "/api/health", nil, http.StatusOK},
		{"missing token", "/api/scans", nil, http.StatusUnauthorized},
		{"wrong token", "/api/scans", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"bearer", "/api/scans", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"header key", "/api/scans", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"query key", "/api/scans?api_key=secret", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, http.MethodGet, tt.target, tt.hdr); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: 1}
	h := newTestHandler(t, Config{RateLimit: 1, RateLimitWindow: 10 * time.Second}, &fakeReports{}, fakeTrigger{}, limiter, nil)

	if rec := do(h, http.MethodGet, "/api/scans", nil); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/scans", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "10" {
		t.Errorf("Retry-After = %q, want 10", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, Config{CORSOrigins: []string{"https://dash.example"}}, &fakeReports{}, fakeTrigger{}, nil, nil)

	rec := do(h, http.MethodOptions, "/api/scans", map[string]string{"Origin": "https://dash.example"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Errorf("allow origin = %q", got)
	}

	rec = do(h, http.MethodGet, "/api/scans", map[string]string{"Origin": "https://evil.example"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow origin for unknown = %q, want empty", got)
	}
}

func TestScanStream(t *testing.T) {
	tests := []struct {
		name      string
		stream    *fakeStream
		target    string
		want      int
		wantAfter string
		wantCount int
		wantIDs   []string
		wantLast  string
	}{
		{
			name: "from start",
			stream: &fakeStream{msgs: []domain.StreamMessage{
				{ID: "1-0", Payload: []byte(`{"id":"run-1","value_bets":2}`)},
				{ID: "2-0", Payload: []byte(`{"id":"run-2","value_bets":0}`)},
			}},
			target: "/api/scans/stream", want: http.StatusOK,
			wantAfter: "0", wantCount: 50, wantIDs: []string{"1-0", "2-0"}, wantLast: "2-0",
		},
		{
			name:   "after cursor skips malformed",
			stream: &fakeStream{msgs: []domain.StreamMessage{{ID: "3-0", Payload: []byte("not json")}}},
			target: "/api/scans/stream?after=2-0&limit=5", want: http.StatusOK,
			wantAfter: "2-0", wantCount: 5, wantIDs: []string{}, wantLast: "3-0",
		},
		{
			name:   "empty keeps cursor",
			stream: &fakeStream{},
			target: "/api/scans/stream?after=9-0", want: http.StatusOK,
			wantAfter: "9-0", wantCount: 50, wantIDs: []string{}, wantLast: "9-0",
		},
		{
			name:   "bus down",
			stream: &fakeStream{err: errors.New("redis: connection refused")},
			target: "/api/scans/stream", want: http.StatusServiceUnavailable,
			wantAfter: "0", wantCount: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Config{}, Handlers{Stream: handler.NewStreamHandler(tt.stream, discard)}, nil, nil, discard)
			rec := do(h, http.MethodGet, tt.target, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if tt.stream.after != tt.wantAfter || tt.stream.count != tt.wantCount {
				t.Errorf("read after=%q count=%d, want %q %d", tt.stream.after, tt.stream.count, tt.wantAfter, tt.wantCount)
			}
			if tt.want != http.StatusOK {
				return
			}
			var page struct {
				Entries []struct {
					ID  string          `json:"id"`
					Run json.RawMessage `json:"run"`
				} `json:"entries"`
				LastID string `json:"last_id"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
				t.Fatal(err)
			}
			if len(page.Entries) != len(tt.wantIDs) {
				t.Fatalf("entries = %d, want %d", len(page.Entries), len(tt.wantIDs))
			}
			for i, e := range page.Entries {
				if e.ID != tt.wantIDs[i] {
					t.Errorf("entry %d id = %s, want %s", i, e.ID, tt.wantIDs[i])
				}
			}
			if page.LastID != tt.wantLast {
				t.Errorf("last_id = %s, want %s", page.LastID, tt.wantLast)
			}
		})
	}
}

func TestScanStreamRouteCoexistsWithRuns(t *testing.T) {
	reports := &fakeReports{runs: []domain.ScanRun{{ID: "run-1"}}}
	stream := &fakeStream{}
	h := NewHandler(Config{}, Handlers{
		Reports: handler.NewReportHandler(reports, discard),
		Stream:  handler.NewStreamHandler(stream, discard),
	}, nil, nil, discard)

	if rec := do(h, http.MethodGet, "/api/scans", nil); rec.Code != http.StatusOK || stream.count != 0 {
		t.Fatalf("GET /api/scans: status %d, stream read %d", rec.Code, stream.count)
	}
	if rec := do(h, http.MethodGet, "/api/scans/stream", nil); rec.Code != http.StatusOK || stream.count == 0 {
		t.Fatalf("GET /api/scans/stream: status %d, stream read %d", rec.Code, stream.count)
	}
}
