package service

import (
	"time"

	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/storage"
	"github.com/yndnr/bookcache/internal/telemetry/logger"
	"github.com/yndnr/bookcache/internal/telemetry/metric"
)

// DefaultEvictionThreshold is the per-tier item count above which a
// successful store triggers an eviction pass.
const DefaultEvictionThreshold = 50

// Config holds StorageManager settings.
type Config struct {
	// DefaultExpiry applies when a store does not pick an expiry.
	// Default: 30m
	DefaultExpiry time.Duration

	// RetryAttempts is the number of write attempts per tier.
	// Default: 3
	RetryAttempts int

	// EvictionThreshold is the item count that triggers proactive eviction.
	// Default: 50
	EvictionThreshold int

	// Eviction sizes each eviction pass.
	Eviction storage.EvictionConfig
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		DefaultExpiry:     domain.DefaultExpiry,
		RetryAttempts:     storage.DefaultMaxRetries,
		EvictionThreshold: DefaultEvictionThreshold,
		Eviction:          storage.DefaultEvictionConfig(),
	}
}

// Option configures a StorageManager.
type Option func(*StorageManager)

// WithConfig replaces the manager configuration. Zero fields keep defaults.
func WithConfig(cfg Config) Option {
	return func(m *StorageManager) {
		if cfg.DefaultExpiry > 0 {
			m.cfg.DefaultExpiry = cfg.DefaultExpiry
		}
		if cfg.RetryAttempts > 0 {
			m.cfg.RetryAttempts = cfg.RetryAttempts
		}
		if cfg.EvictionThreshold > 0 {
			m.cfg.EvictionThreshold = cfg.EvictionThreshold
		}
		if cfg.Eviction.MinEntries > 0 {
			m.cfg.Eviction.MinEntries = cfg.Eviction.MinEntries
		}
		if cfg.Eviction.Fraction > 0 {
			m.cfg.Eviction.Fraction = cfg.Eviction.Fraction
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *StorageManager) {
		m.logger = l
	}
}

// WithMetrics sets the metrics registry. A nil registry disables metrics.
func WithMetrics(r *metric.Registry) Option {
	return func(m *StorageManager) {
		m.metrics = r
	}
}

// WithClock overrides the time source, for simulated time in tests.
func WithClock(now func() time.Time) Option {
	return func(m *StorageManager) {
		m.now = now
	}
}

// StoreOptions are the per-call settings of Store.
type StoreOptions struct {
	// Expiry is the entry lifetime. Zero uses the manager default.
	Expiry time.Duration

	// RetryAttempts is the number of write attempts per tier. Zero uses
	// the manager default.
	RetryAttempts int

	// ValidateOnRead is reserved. Reads are always validated.
	ValidateOnRead bool
}

// StoreOption configures a single Store call.
type StoreOption func(*StoreOptions)

// WithExpiry sets the entry lifetime.
func WithExpiry(d time.Duration) StoreOption {
	return func(o *StoreOptions) {
		o.Expiry = d
	}
}

// WithExpiryMinutes sets the entry lifetime in minutes.
func WithExpiryMinutes(minutes int) StoreOption {
	return WithExpiry(time.Duration(minutes) * time.Minute)
}

// WithRetryAttempts sets the number of write attempts per tier.
func WithRetryAttempts(n int) StoreOption {
	return func(o *StoreOptions) {
		o.RetryAttempts = n
	}
}

// WithValidateOnRead is accepted for compatibility; reads always validate.
func WithValidateOnRead(v bool) StoreOption {
	return func(o *StoreOptions) {
		o.ValidateOnRead = v
	}
}
