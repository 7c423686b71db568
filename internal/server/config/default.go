package config

import "time"

// Durable tier drivers.
const (
	DriverBadger = "badger"
	DriverRedis  = "redis"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultRateLimit       = 100
	DefaultRateBurst       = 200
	DefaultShutdownTimeout = 15 * time.Second

	DefaultExpiry            = 30 * time.Minute
	DefaultRetryAttempts     = 3
	DefaultEvictionThreshold = 50
	DefaultCapacityBytes     = 5 << 20

	DefaultDurableDriver = DriverBadger
	DefaultKeyPrefix     = "bookcache:"
	DefaultBadgerDir     = "/var/lib/bookcache/badger"
	DefaultGCInterval    = 10 * time.Minute
	DefaultRedisAddr     = "127.0.0.1:6379"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				RateLimit:       DefaultRateLimit,
				RateBurst:       DefaultRateBurst,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Storage: StorageSection{
			DefaultExpiry:     DefaultExpiry,
			RetryAttempts:     DefaultRetryAttempts,
			EvictionThreshold: DefaultEvictionThreshold,
			Volatile: VolatileConfig{
				CapacityBytes: DefaultCapacityBytes,
			},
			Durable: DurableConfig{
				Driver:        DefaultDurableDriver,
				CapacityBytes: DefaultCapacityBytes,
				KeyPrefix:     DefaultKeyPrefix,
				Badger: BadgerConfig{
					Dir:        DefaultBadgerDir,
					GCInterval: DefaultGCInterval,
					SyncWrites: true,
				},
				Redis: RedisConfig{
					Addr: DefaultRedisAddr,
				},
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
