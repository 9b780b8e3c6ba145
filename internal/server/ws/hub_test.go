package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

type chanBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
	wg   sync.WaitGroup
}

func newChanBus() *chanBus {
	b := &chanBus{subs: make(map[string]chan []byte)}
	b.wg.Add(len(Channels))
	return b
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	ch := b.subs[channel]
	b.mu.Unlock()
	if ch != nil {
		ch <- payload
	}
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs[channel] = ch
	b.mu.Unlock()
	b.wg.Done()
	return ch, nil
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *chanBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestIsSubscribed(t *testing.T) {
	c := &client{subs: map[string]bool{"ch:report:*": true, "other": true}}
	tests := []struct {
		channel string
		want    bool
	}{
		{domain.ChannelValueBets, true},
		{domain.ChannelArbs, true},
		{"other", true},
		{"ch:book:1", false},
	}
	for _, tt := range tests {
		if got := c.isSubscribed(tt.channel); got != tt.want {
			t.Errorf("isSubscribed(%q) = %v, want %v", tt.channel, got, tt.want)
		}
	}
}

func TestHubForwardsBusMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newChanBus()
	hub := NewHub(bus, "server", slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = hub.Run(ctx) }()
	bus.wg.Wait()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var status Envelope
	if err := conn.ReadJSON(&status); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status.Channel != "status" {
		t.Fatalf("first frame channel = %q, want status", status.Channel)
	}

	// Registration happens before the status frame is queued, so the client
	// is known to the hub by now.
	if err := bus.Publish(ctx, domain.ChannelArbs, []byte(`{"event_id":"e1"}`)); err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Channel != domain.ChannelArbs {
		t.Errorf("channel = %q", env.Channel)
	}
	var payload map[string]string
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload["event_id"] != "e1" {
		t.Errorf("payload = %s (err %v)", env.Payload, err)
	}
}
