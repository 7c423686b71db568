package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/core/service"
)

// handlePutEntry handles PUT /v1/entries/{key}?type=&expiry_minutes=&retry_attempts=.
// The request body is the JSON payload to cache.
func (h *Handler) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var opts []service.StoreOption
	if v := r.URL.Query().Get("expiry_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			h.writeError(w, r, domain.ErrInvalidArgument.WithDetails("expiry_minutes must be a positive integer"), nil)
			return
		}
		opts = append(opts, service.WithExpiryMinutes(minutes))
	}
	if v := r.URL.Query().Get("retry_attempts"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts <= 0 {
			h.writeError(w, r, domain.ErrInvalidArgument.WithDetails("retry_attempts must be a positive integer"), nil)
			return
		}
		opts = append(opts, service.WithRetryAttempts(attempts))
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, domain.ErrInvalidArgument.WithDetails("payload too large"), map[string]int64{"limit": tooLarge.Limit})
			return
		}
		h.writeError(w, r, domain.ErrInvalidArgument.WithDetails("read body: "+err.Error()), nil)
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		h.writeError(w, r, domain.ErrInvalidArgument.WithDetails("body must be a JSON document"), nil)
		return
	}

	res := h.cache.Store(r.Context(), key, json.RawMessage(body), r.URL.Query().Get("type"), opts...)
	if !res.Success {
		h.writeError(w, r, storeError(res), nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

// handleGetEntry handles GET /v1/entries/{key}?type=.
func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	res := h.cache.Retrieve(r.Context(), r.PathValue("key"), r.URL.Query().Get("type"))
	if !res.Success {
		err := res.Err
		if err == nil {
			err = domain.ErrNotFound
		}
		h.writeError(w, r, err, nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

// handleDeleteEntry handles DELETE /v1/entries/{key}.
func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Remove(r.Context(), r.PathValue("key")); err != nil {
		h.writeError(w, r, domain.ErrInternal.WithCause(err).WithDetails(err.Error()), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearEntries handles DELETE /v1/entries.
func (h *Handler) handleClearEntries(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.ClearAll(r.Context()); err != nil {
		h.writeError(w, r, domain.ErrInternal.WithCause(err).WithDetails(err.Error()), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
