package handler

import (
	"time"

	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/storage"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// PurgeTierResponse is one tier's entry in the purge response.
type PurgeTierResponse struct {
	Backend string `json:"backend"`
	Corrupt int    `json:"corrupt"`
	Expired int    `json:"expired"`
	Failed  int    `json:"failed"`
}

// PurgeResponse is the response body for POST /v1/maintenance/purge.
type PurgeResponse struct {
	Removed int                                `json:"removed"`
	Tiers   map[domain.Tier]PurgeTierResponse `json:"tiers"`
}

func newPurgeResponse(report map[domain.Tier]storage.EvictionReport) PurgeResponse {
	resp := PurgeResponse{Tiers: make(map[domain.Tier]PurgeTierResponse, len(report))}
	for tier, r := range report {
		resp.Removed += r.Removed()
		resp.Tiers[tier] = PurgeTierResponse{
			Backend: r.Backend,
			Corrupt: r.Corrupt,
			Expired: r.Expired,
			Failed:  r.Failed,
		}
	}
	return resp
}
