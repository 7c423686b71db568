package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/bookcache/internal/server/httpserver/handler"
	"github.com/yndnr/bookcache/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Cache serves the entry and admin endpoints.
	Cache handler.Cache

	// Logger for request logging.
	Logger *slog.Logger

	// Metrics records request metrics and backs /metrics.
	// Default: metric.Global()
	Metrics *metric.Registry

	// RateLimit is the sustained requests per second per client IP.
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the per-client burst size.
	RateBurst int

	// MaxBodyBytes limits PUT payloads. Zero uses the handler default.
	MaxBodyBytes int64
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit:    100,
		RateBurst:    200,
		MaxBodyBytes: handler.DefaultMaxBodyBytes,
	}
}

// apiRoutes are served through the full middleware chain and labelled by
// pattern in request metrics.
var apiRoutes = []string{
	"PUT /v1/entries/{key}",
	"GET /v1/entries/{key}",
	"DELETE /v1/entries/{key}",
	"DELETE /v1/entries",
	"GET /v1/stats",
	"POST /v1/maintenance/purge",
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = metric.Global()
	}

	h := handler.New(cfg.Cache, log, handler.WithMaxBodyBytes(cfg.MaxBodyBytes))
	mux := http.NewServeMux()

	// Health and metrics skip access logging and rate limiting.
	mux.Handle("GET /health", Chain(h, RequestID(), Recover(log)))
	mux.Handle("GET /metrics", Chain(metrics.Handler(), RequestID(), Recover(log)))

	// One limiter shared by every route so a client's budget is global.
	var limit Middleware
	if cfg.RateLimit > 0 {
		limit = RateLimit(cfg.RateLimit, cfg.RateBurst)
	}

	for _, pattern := range apiRoutes {
		// Order: RequestID -> AccessLog -> Recover -> RateLimit -> Handler
		chain := []Middleware{
			RequestID(),
			AccessLog(log, metrics, pattern),
			Recover(log),
		}
		if limit != nil {
			chain = append(chain, limit)
		}
		mux.Handle(pattern, Chain(h, chain...))
	}

	return mux
}
