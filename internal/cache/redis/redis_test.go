package redis

import (
	"crypto/tls"
	"testing"
)

func TestKeyNamespaces(t *testing.T) {
	if got := lockKey(ScanLockKey); got != "lock:scan" {
		t.Errorf("lockKey = %q, want lock:scan", got)
	}
	if got := rateLimitKey("10.0.0.1"); got != "ratelimit:10.0.0.1" {
		t.Errorf("rateLimitKey = %q", got)
	}
}

func TestHasPattern(t *testing.T) {
	tests := []struct {
		channel string
		want    bool
	}{
		{"ch:report:ev", false},
		{"ch:report:*", true},
		{"ch:report:?v", true},
		{"ch:report:[ae]*", true},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			if got := hasPattern(tt.channel); got != tt.want {
				t.Errorf("hasPattern(%q) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestSignalBusOptions(t *testing.T) {
	sb := NewSignalBus(NewFromClient(nil), WithStreamMaxLen(500))
	if sb.maxLen != 500 {
		t.Errorf("maxLen = %d, want 500", sb.maxLen)
	}
	sb = NewSignalBus(NewFromClient(nil), WithStreamMaxLen(0))
	if sb.maxLen != defaultStreamMaxLen {
		t.Errorf("maxLen = %d, want default %d", sb.maxLen, defaultStreamMaxLen)
	}
}

func TestSlidingWindowScriptEmbedded(t *testing.T) {
	if slidingWindowLua == "" {
		t.Fatal("sliding window script not embedded")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := ClientConfig{Addr: "cache:6379", DB: 2, PoolSize: 20, MaxRetries: 3}
	opts := cfg.options()
	if opts.Addr != "cache:6379" || opts.DB != 2 || opts.PoolSize != 20 || opts.MaxRetries != 3 {
		t.Fatalf("options = %+v", opts)
	}
	if opts.TLSConfig != nil {
		t.Fatal("TLS set without TLSEnabled")
	}

	cfg.TLSEnabled = true
	if tc := cfg.options().TLSConfig; tc == nil || tc.MinVersion != tls.VersionTLS12 {
		t.Fatalf("TLS config = %+v, want TLS 1.2 minimum", tc)
	}
}
