package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

// FingerprintHandler exposes fingerprint computation and index lookup, for
// checking why two bookmakers' quotes do or do not match.
type FingerprintHandler struct {
	index  domain.OutcomeIndex
	logger *slog.Logger
}

// NewFingerprintHandler creates a FingerprintHandler.
func NewFingerprintHandler(index domain.OutcomeIndex, logger *slog.Logger) *FingerprintHandler {
	return &FingerprintHandler{index: index, logger: logHandler(logger, "fingerprint")}
}

type fingerprintResponse struct {
	Fingerprint string            `json:"fingerprint"`
	Best        *domain.BestQuote `json:"best,omitempty"`
}

// Lookup computes the fingerprint for the query and returns the best quote
// on file. Absent point or description parameters mean "no value"; an empty
// description= is distinct from no description.
// GET /api/fingerprint?name=&bet_type=&event_id=&point=&description=
func (h *FingerprintHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, eventID := q.Get("name"), q.Get("event_id")
	if name == "" || eventID == "" {
		writeError(w, http.StatusBadRequest, "name and event_id are required")
		return
	}
	bt, err := domain.ParseBetType(q.Get("bet_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var point *float64
	if q.Has("point") {
		p, err := strconv.ParseFloat(q.Get("point"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "point must be a number")
			return
		}
		point = &p
	}
	var description *string
	if q.Has("description") {
		description = domain.StrPtr(q.Get("description"))
	}

	fp := domain.Fingerprint(name, description, point, bt, eventID)
	best, err := h.index.Lookup(r.Context(), fp)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, fingerprintResponse{Fingerprint: fp})
			return
		}
		h.logger.ErrorContext(r.Context(), "index lookup failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "index lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, fingerprintResponse{Fingerprint: fp, Best: &best})
}
