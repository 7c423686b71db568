// Package httpserver provides the HTTP server for bookcache.
//
// This package exposes the storage manager over stdlib net/http:
//
//   - Entry endpoints: /v1/entries/{key}, /v1/entries
//   - Admin endpoints: /v1/stats, /v1/maintenance/purge
//   - Health endpoints: /health, /metrics
//
// Middleware chain: RequestID, AccessLog, Recover, RateLimit.
package httpserver
