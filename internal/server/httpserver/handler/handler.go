package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/core/service"
	"github.com/yndnr/bookcache/internal/storage"
	"github.com/yndnr/bookcache/internal/telemetry/logger"
)

// DefaultMaxBodyBytes limits PUT payloads.
const DefaultMaxBodyBytes = 1 << 20

// Cache is the storage surface the handlers drive.
// *service.StorageManager implements it.
type Cache interface {
	Store(ctx context.Context, key string, data any, dataType string, opts ...service.StoreOption) service.StoreResult
	Retrieve(ctx context.Context, key, expectedDataType string) service.RetrieveResult
	Remove(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) (service.Stats, error)
	PurgeExpired(ctx context.Context) (service.PurgeReport, error)
}

// Handler serves the bookcache HTTP API.
type Handler struct {
	cache        Cache
	logger       *slog.Logger
	maxBodyBytes int64
	mux          *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// New creates a new Handler backed by cache.
func New(cache Cache, log *slog.Logger, opts ...Option) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		cache:        cache,
		logger:       log,
		maxBodyBytes: DefaultMaxBodyBytes,
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)

	h.mux.HandleFunc("PUT /v1/entries/{key}", h.handlePutEntry)
	h.mux.HandleFunc("GET /v1/entries/{key}", h.handleGetEntry)
	h.mux.HandleFunc("DELETE /v1/entries/{key}", h.handleDeleteEntry)
	h.mux.HandleFunc("DELETE /v1/entries", h.handleClearEntries)

	h.mux.HandleFunc("GET /v1/stats", h.handleStats)
	h.mux.HandleFunc("POST /v1/maintenance/purge", h.handlePurge)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID(r), data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, details any) {
	code := domain.GetErrorCode(err)
	if code == "" {
		code = domain.ErrInternal.Code
	}
	status := errorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", requestID(r),
			"path", r.URL.Path,
			"error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID(r), code, domain.UserMessage(err), details))
}

func requestID(r *http.Request) string {
	return logger.RequestIDFromContext(r.Context())
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
//
// Envelope failures surface as 404: the entry was unusable and has already
// been purged.
func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.ErrNotFound.Code,
		domain.ErrExpired.Code,
		domain.ErrTypeMismatch.Code,
		domain.ErrChecksumMismatch.Code,
		domain.ErrStructureInvalid.Code,
		domain.ErrParseFailure.Code:
		return http.StatusNotFound
	case domain.ErrInvalidArgument.Code, domain.ErrSerialization.Code:
		return http.StatusBadRequest
	case domain.ErrCapacityExceeded.Code:
		return http.StatusInsufficientStorage
	case domain.ErrStoreFailed.Code:
		return http.StatusServiceUnavailable
	case domain.ErrRateLimited.Code:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// storeError picks the error to report for a failed store. A write that
// failed only for lack of space is reported as a capacity failure.
func storeError(res service.StoreResult) error {
	if res.Err == nil {
		return domain.ErrInternal.WithDetails(res.Error)
	}
	if errors.Is(res.Err, domain.ErrStoreFailed) && storage.IsCapacityError(res.Err) {
		return domain.ErrCapacityExceeded.WithCause(res.Err)
	}
	return res.Err
}
