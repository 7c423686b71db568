package handler

import (
	"net/http"

	"github.com/yndnr/bookcache/internal/core/domain"
)

// handleStats handles GET /v1/stats.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, domain.ErrInternal.WithCause(err).WithDetails(err.Error()), nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}

// handlePurge handles POST /v1/maintenance/purge.
//
// A partial failure still reports what was removed from the healthy tiers.
func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	report, err := h.cache.PurgeExpired(r.Context())
	resp := newPurgeResponse(report)
	if err != nil {
		h.writeError(w, r, domain.ErrInternal.WithCause(err).WithDetails(err.Error()), resp)
		return
	}

	h.logger.Info("purge requested",
		"request_id", requestID(r),
		"removed", resp.Removed)
	h.writeJSON(w, r, http.StatusOK, resp)
}
