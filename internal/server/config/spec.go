package config

import "time"

// ServerConfig is the root configuration for bookcache-server and the
// storage settings shared with bookcache-cli.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr string `koanf:"addr"`

	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the burst size per client IP.
	RateBurst int `koanf:"rate_burst"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// TLSCertFile and TLSKeyFile enable HTTPS. The pair is reloaded when
	// either file changes.
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// StorageSection configures the storage manager and its tiers.
type StorageSection struct {
	// DefaultExpiry is the entry lifetime when a store does not set one.
	DefaultExpiry time.Duration `koanf:"default_expiry"`

	// RetryAttempts is the number of write attempts per tier.
	RetryAttempts int `koanf:"retry_attempts"`

	// EvictionThreshold is the per-tier item count that triggers eviction
	// after a successful store.
	EvictionThreshold int `koanf:"eviction_threshold"`

	Volatile VolatileConfig `koanf:"volatile"`
	Durable  DurableConfig  `koanf:"durable"`
}

// VolatileConfig configures the in-process tier.
type VolatileConfig struct {
	CapacityBytes int64 `koanf:"capacity_bytes"`
}

// DurableConfig configures the tier that survives restarts.
type DurableConfig struct {
	// Driver selects the engine: "badger" or "redis".
	Driver string `koanf:"driver"`

	CapacityBytes int64  `koanf:"capacity_bytes"`
	KeyPrefix     string `koanf:"key_prefix"`

	// EncryptionKey enables at-rest sealing when set (minimum 16 bytes).
	EncryptionKey string `koanf:"encryption_key"`

	Badger BadgerConfig `koanf:"badger"`
	Redis  RedisConfig  `koanf:"redis"`
}

// BadgerConfig configures the Badger driver.
type BadgerConfig struct {
	Dir        string        `koanf:"dir"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// RedisConfig configures the Redis driver.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`

	// TLS enables TLS to the server. CAFile adds private roots; CertFile
	// and KeyFile present a client certificate.
	TLS      bool   `koanf:"tls"`
	CAFile   string `koanf:"ca_file"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
