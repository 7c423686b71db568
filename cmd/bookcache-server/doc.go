// Package main provides the entry point for bookcache-server.
//
// The server exposes the two-tier cache over HTTP:
//
//   - /v1/entries for storing, reading and removing entries
//   - /v1/stats and /v1/maintenance/purge for operators
//   - /health and /metrics for probes and Prometheus
//
// Usage:
//
//	bookcache-server [flags]
//	bookcache-server -config /etc/bookcache/bookcache.yaml
//
// Configuration is read from the file, then BOOKCACHE_* environment
// variables, then flags. Editing log.level in the file takes effect
// without a restart.
package main
