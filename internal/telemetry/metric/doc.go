// Package metric provides Prometheus metrics for bookcache.
//
// Metrics include:
//
//   - Tier writes and reads by outcome
//   - Invalid entries purged, by reason
//   - Eviction passes and entries removed
//   - Read repairs into the volatile tier
//   - Operation latency histograms
//   - Per-tier usage gauges
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
