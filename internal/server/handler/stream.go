package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// StreamReader reads entries from a durable stream.
type StreamReader interface {
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error)
}

// StreamHandler pages through the scan summary stream.
type StreamHandler struct {
	reader StreamReader
	logger *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(reader StreamReader, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{reader: reader, logger: logHandler(logger, "stream")}
}

type streamEntry struct {
	ID  string          `json:"id"`
	Run json.RawMessage `json:"run"`
}

type streamPage struct {
	Entries []streamEntry `json:"entries"`
	LastID  string        `json:"last_id"`
}

// ListScans returns scan summaries appended after ?after= (default "0", the
// start of the stream). last_id echoes after when the page is empty, so it
// can always be passed back.
// GET /api/scans/stream?after=&limit=
func (h *StreamHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}
	msgs, err := h.reader.StreamRead(r.Context(), domain.StreamScans, after, parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "read scan stream failed",
			slog.String("after", after),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "scan stream unavailable")
		return
	}

	page := streamPage{Entries: make([]streamEntry, 0, len(msgs)), LastID: after}
	for _, m := range msgs {
		page.LastID = m.ID
		if !json.Valid(m.Payload) {
			h.logger.WarnContext(r.Context(), "skipping malformed stream entry", slog.String("id", m.ID))
			continue
		}
		page.Entries = append(page.Entries, streamEntry{ID: m.ID, Run: m.Payload})
	}
	writeJSON(w, http.StatusOK, page)
}
