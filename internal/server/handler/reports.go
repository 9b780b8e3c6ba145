package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// ReportHandler serves stored scan results.
type ReportHandler struct {
	store  domain.ReportStore
	logger *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(store domain.ReportStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{store: store, logger: logHandler(logger, "reports")}
}

// ListValueBets returns recent positive-EV bets, newest first.
// GET /api/reports/ev?limit=
func (h *ReportHandler) ListValueBets(w http.ResponseWriter, r *http.Request) {
	bets, err := h.store.ListValueBets(r.Context(), parseLimit(r))
	if err != nil {
		h.fail(w, r, "list value bets", err)
		return
	}
	if bets == nil {
		bets = []domain.StoredValueBet{}
	}
	writeJSON(w, http.StatusOK, bets)
}

// ListArbs returns recent arbitrage combinations, newest first.
// GET /api/reports/arb?limit=
func (h *ReportHandler) ListArbs(w http.ResponseWriter, r *http.Request) {
	arbs, err := h.store.ListArbs(r.Context(), parseLimit(r))
	if err != nil {
		h.fail(w, r, "list arbs", err)
		return
	}
	if arbs == nil {
		arbs = []domain.StoredArb{}
	}
	writeJSON(w, http.StatusOK, arbs)
}

// ListRuns returns recent scan summaries.
// GET /api/scans?limit=
func (h *ReportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context(), parseLimit(r))
	if err != nil {
		h.fail(w, r, "list runs", err)
		return
	}
	if runs == nil {
		runs = []domain.ScanRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), op+" failed", slog.String("error", err.Error()))
	writeError(w, statusFor(err), "failed to "+op)
}
