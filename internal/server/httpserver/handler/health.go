package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/bookcache/internal/infra/buildinfo"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": buildinfo.Get().Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
