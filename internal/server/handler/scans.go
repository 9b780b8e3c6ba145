package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// ScanTrigger runs one scan and delivers its report.
type ScanTrigger interface {
	TriggerScan(ctx context.Context, eventID string) (*domain.ScanRun, error)
}

// ScanHandler serves the manual scan trigger.
type ScanHandler struct {
	trigger ScanTrigger
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler.
func NewScanHandler(trigger ScanTrigger, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{trigger: trigger, logger: logHandler(logger, "scans")}
}

// TriggerScan runs a scan synchronously and returns its summary. A scan
// already running elsewhere yields 409, an unknown event_id 404.
// POST /api/scans?event_id=
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	h.logger.InfoContext(r.Context(), "scan trigger requested", slog.String("event_id", eventID))
	run, err := h.trigger.TriggerScan(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			writeError(w, http.StatusConflict, "scan already running")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid event id: "+eventID)
			return
		}
		h.logger.ErrorContext(r.Context(), "triggered scan failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
