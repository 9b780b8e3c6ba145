package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggingLevelAndBytes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLevel string
		wantBytes string
	}{
		{"implicit ok", 0, "hello", "level=INFO", "bytes=5"},
		{"not found", http.StatusNotFound, "", "level=INFO", "bytes=0"},
		{"server error", http.StatusServiceUnavailable, "down", "level=ERROR", "bytes=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/scans", nil))

			line := buf.String()
			if !strings.Contains(line, tt.wantLevel) || !strings.Contains(line, tt.wantBytes) {
				t.Fatalf("log line %q missing %s or %s", line, tt.wantLevel, tt.wantBytes)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"any origin when unset", nil, http.MethodGet, "https://a.example", "https://a.example", http.StatusTeapot},
		{"wildcard", []string{"*"}, http.MethodGet, "https://b.example", "https://b.example", http.StatusTeapot},
		{"case insensitive", []string{"https://Dash.example"}, http.MethodGet, "https://dash.example", "https://dash.example", http.StatusTeapot},
		{"rejected", []string{"https://dash.example"}, http.MethodGet, "https://evil.example", "", http.StatusTeapot},
		{"preflight", []string{"https://dash.example"}, http.MethodOptions, "https://dash.example", "https://dash.example", http.StatusNoContent},
		{"no origin", []string{"https://dash.example"}, http.MethodGet, "", "", http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/reports/ev", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.origin != "" && rec.Header().Get("Vary") != "Origin" {
				t.Errorf("Vary = %q, want Origin", rec.Header().Get("Vary"))
			}
		})
	}
}
