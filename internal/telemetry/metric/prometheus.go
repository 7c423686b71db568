package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookcache"

// Registry holds all application metrics.
//
// All recording methods are safe to call on a nil *Registry, so components
// can run without metrics in tests.
type Registry struct {
	registry *prometheus.Registry

	// Tier metrics
	Writes         *prometheus.CounterVec
	Reads          *prometheus.CounterVec
	InvalidEntries *prometheus.CounterVec
	Evictions      *prometheus.CounterVec
	EvictedEntries *prometheus.CounterVec
	ReadRepairs    *prometheus.CounterVec
	UsedBytes      *prometheus.GaugeVec
	Items          *prometheus.GaugeVec

	// Operation metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,

		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_writes_total",
			Help:      "Tier write attempts by result (ok, capacity, error)",
		}, []string{"tier", "result"}),

		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Retrieve calls by serving tier and result",
		}, []string{"source", "result"}),

		InvalidEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_entries_total",
			Help:      "Entries purged on read because they failed validation",
		}, []string{"tier", "reason"}),

		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Eviction passes by trigger (capacity, threshold, purge)",
		}, []string{"tier", "trigger"}),

		EvictedEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_entries_total",
			Help:      "Entries removed by eviction passes, by kind (corrupt, expired, live)",
		}, []string{"tier", "kind"}),

		ReadRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_repairs_total",
			Help:      "Copies of durable entries written back to the volatile tier",
		}, []string{"result"}),

		UsedBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tier_used_bytes",
			Help:      "Approximate bytes used per tier",
		}, []string{"tier"}),

		Items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tier_items",
			Help:      "Valid entries per tier as of the last stats call",
		}, []string{"tier"}),

		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Facade operations by result",
		}, []string{"op", "result"}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Facade operation latency in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"op"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		r.Writes,
		r.Reads,
		r.InvalidEntries,
		r.Evictions,
		r.EvictedEntries,
		r.ReadRepairs,
		r.UsedBytes,
		r.Items,
		r.Operations,
		r.OperationDuration,
		r.RequestsTotal,
		r.RequestDuration,
	)

	return r
}

// Registerer exposes the underlying registry so backends can add their own
// collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// RecordWrite counts one tier write attempt.
func (r *Registry) RecordWrite(tier, result string) {
	if r == nil {
		return
	}
	r.Writes.WithLabelValues(tier, result).Inc()
}

// RecordRead counts one retrieve outcome.
func (r *Registry) RecordRead(source, result string) {
	if r == nil {
		return
	}
	r.Reads.WithLabelValues(source, result).Inc()
}

// RecordInvalid counts an entry purged on read.
func (r *Registry) RecordInvalid(tier, reason string) {
	if r == nil {
		return
	}
	r.InvalidEntries.WithLabelValues(tier, reason).Inc()
}

// RecordEviction counts an eviction pass and the entries it removed.
func (r *Registry) RecordEviction(tier, trigger string, corrupt, expired, live int) {
	if r == nil {
		return
	}
	r.Evictions.WithLabelValues(tier, trigger).Inc()
	r.EvictedEntries.WithLabelValues(tier, "corrupt").Add(float64(corrupt))
	r.EvictedEntries.WithLabelValues(tier, "expired").Add(float64(expired))
	r.EvictedEntries.WithLabelValues(tier, "live").Add(float64(live))
}

// RecordReadRepair counts a read repair attempt.
func (r *Registry) RecordReadRepair(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.ReadRepairs.WithLabelValues(result).Inc()
}

// SetTierUsage updates the per-tier gauges.
func (r *Registry) SetTierUsage(tier string, usedBytes int64, items int) {
	if r == nil {
		return
	}
	r.UsedBytes.WithLabelValues(tier).Set(float64(usedBytes))
	r.Items.WithLabelValues(tier).Set(float64(items))
}

// ObserveOperation records a facade operation's result and latency.
func (r *Registry) ObserveOperation(op, result string, d time.Duration) {
	if r == nil {
		return
	}
	r.Operations.WithLabelValues(op, result).Inc()
	r.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordRequest records an HTTP request.
func (r *Registry) RecordRequest(method, route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
