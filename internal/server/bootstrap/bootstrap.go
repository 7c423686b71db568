// Package bootstrap assembles a running cache from configuration.
//
// Both the server and the CLI go through this package, so a CLI pointed at
// the same configuration file opens the same durable tier the server uses.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/yndnr/bookcache/internal/core/service"
	"github.com/yndnr/bookcache/internal/infra/confloader"
	"github.com/yndnr/bookcache/internal/infra/tlsroots"
	"github.com/yndnr/bookcache/internal/server/config"
	"github.com/yndnr/bookcache/internal/storage"
	"github.com/yndnr/bookcache/internal/storage/memory"
	"github.com/yndnr/bookcache/internal/telemetry/logger"
	"github.com/yndnr/bookcache/internal/telemetry/metric"
)

// LoadConfig loads configuration from defaults, the optional file, the
// environment and flag overrides, then verifies it.
func LoadConfig(path string, flags map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if len(flags) > 0 {
		opts = append(opts, confloader.WithFlags(flags))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger and installs it as the default.
// A nil out writes to stderr.
func NewLogger(cfg config.LogSection, out io.Writer) (logger.Logger, *slog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: out,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.SetDefault(log)
	return log, logger.Slog(log), nil
}

// Tiers holds the two opened backends.
type Tiers struct {
	Volatile storage.Backend
	Durable  storage.Backend
}

// OpenTiers opens the volatile and durable backends described by cfg.
//
// reg may be nil. When set, driver-level gauges are registered on it.
func OpenTiers(ctx context.Context, cfg config.StorageSection, log *slog.Logger, reg prometheus.Registerer) (*Tiers, error) {
	if log == nil {
		log = slog.Default()
	}

	volatile := memory.New(memory.WithCapacity(cfg.Volatile.CapacityBytes))

	durable, err := openDurable(ctx, cfg.Durable, log, reg)
	if err != nil {
		_ = volatile.Close()
		return nil, err
	}

	if cfg.Durable.EncryptionKey != "" {
		sealed, err := storage.NewSealedBackendFromSecret(durable, []byte(cfg.Durable.EncryptionKey))
		if err != nil {
			_ = volatile.Close()
			_ = durable.Close()
			return nil, fmt.Errorf("seal durable tier: %w", err)
		}
		durable = sealed
	}

	log.Info("storage tiers opened",
		"volatile_capacity", cfg.Volatile.CapacityBytes,
		"durable_driver", cfg.Durable.Driver,
		"durable_capacity", cfg.Durable.CapacityBytes,
		"sealed", cfg.Durable.EncryptionKey != "")

	return &Tiers{Volatile: volatile, Durable: durable}, nil
}

func openDurable(ctx context.Context, cfg config.DurableConfig, log *slog.Logger, reg prometheus.Registerer) (storage.Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverBadger:
		bcfg := storage.DefaultBadgerConfig(cfg.Badger.Dir)
		bcfg.InMemory = cfg.Badger.InMemory
		bcfg.KeyPrefix = cfg.KeyPrefix
		bcfg.Capacity = cfg.CapacityBytes
		bcfg.SyncWrites = cfg.Badger.SyncWrites
		if cfg.Badger.GCInterval > 0 {
			bcfg.GCInterval = cfg.Badger.GCInterval
		}

		b, err := storage.NewBadgerBackend(bcfg, log)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		if reg != nil {
			b.RegisterMetrics(reg)
		}
		return b, nil

	case config.DriverRedis:
		opts := &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		if cfg.Redis.TLS {
			tlsCfg, err := tlsroots.ClientConfig(tlsroots.ClientOptions{
				CAFile:   cfg.Redis.CAFile,
				CertFile: cfg.Redis.CertFile,
				KeyFile:  cfg.Redis.KeyFile,
			})
			if err != nil {
				return nil, fmt.Errorf("redis tls: %w", err)
			}
			opts.TLSConfig = tlsCfg
		}
		client := redis.NewClient(opts)

		b, err := storage.NewRedisBackend(ctx, client, storage.RedisConfig{
			KeyPrefix: cfg.KeyPrefix,
			Capacity:  cfg.CapacityBytes,
		}, log)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown durable driver %q", cfg.Driver)
	}
}

// Close closes both tiers.
func (t *Tiers) Close() error {
	var errs []error
	if t.Volatile != nil {
		if err := t.Volatile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close volatile: %w", err))
		}
	}
	if t.Durable != nil {
		if err := t.Durable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close durable: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NewManager builds the storage manager over tiers. metrics may be nil.
func NewManager(cfg config.StorageSection, tiers *Tiers, log logger.Logger, metrics *metric.Registry) *service.StorageManager {
	mcfg := service.DefaultConfig()
	mcfg.DefaultExpiry = cfg.DefaultExpiry
	mcfg.RetryAttempts = cfg.RetryAttempts
	mcfg.EvictionThreshold = cfg.EvictionThreshold

	opts := []service.Option{service.WithConfig(mcfg)}
	if log != nil {
		opts = append(opts, service.WithLogger(log))
	}
	if metrics != nil {
		opts = append(opts, service.WithMetrics(metrics))
	}
	return service.NewStorageManager(tiers.Volatile, tiers.Durable, opts...)
}

// WatchLogLevel reloads path on change and applies its log.level.
// The caller owns the returned watcher and must Stop it.
func WatchLogLevel(path string, flags map[string]any, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := LoadConfig(path, flags)
		if err != nil {
			log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w, nil
}
