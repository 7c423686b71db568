package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultKeyPrefix namespaces bookcache entries inside a shared engine.
const DefaultKeyPrefix = "bookcache:"

// BadgerConfig configures the Badger durable tier.
type BadgerConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory (tests and ephemeral runs).
	InMemory bool

	// KeyPrefix namespaces the keys this backend owns.
	// Default: "bookcache:"
	KeyPrefix string

	// Capacity is the tier capacity in bytes.
	// Default: 5MiB
	Capacity int64

	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the value log discard ratio (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 16MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64

	// SyncWrites enables fsync after each write.
	// Default: true (the durable tier must survive a crash)
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:              dir,
		KeyPrefix:        DefaultKeyPrefix,
		Capacity:         DefaultCapacity,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        16 << 20, // 16MB
		ValueLogFileSize: 64 << 20, // 64MB
		SyncWrites:       true,
	}
}

// BadgerBackend implements Backend on Badger v3.
type BadgerBackend struct {
	db     *badger.DB
	cfg    BadgerConfig
	prefix []byte
	usage  *usage
	logger *slog.Logger

	// writeMu makes the capacity check and the write atomic.
	writeMu sync.Mutex

	closed     atomic.Bool
	lastGCTime atomic.Int64 // Unix milliseconds

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerBackend opens a Badger-backed durable tier.
func NewBadgerBackend(cfg BadgerConfig, logger *slog.Logger) (*BadgerBackend, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	b := &BadgerBackend{
		db:     db,
		cfg:    cfg,
		prefix: []byte(cfg.KeyPrefix),
		usage:  newUsage(cfg.Capacity),
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if err := b.primeUsage(); err != nil {
		db.Close()
		return nil, fmt.Errorf("badger: scan existing entries: %w", err)
	}

	go b.gcLoop()

	logger.Info("badger backend started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"capacity", b.usage.capacity,
		"used", b.usage.used())

	return b, nil
}

// Name implements Backend.
func (b *BadgerBackend) Name() string {
	return "badger"
}

// Get implements Backend.
func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.fullKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set implements Backend.
func (b *BadgerBackend) Set(_ context.Context, key string, value []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if !b.usage.fits(key, len(value)) {
		return ErrCapacityExceeded
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.fullKey(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger: set: %w", err)
	}

	b.usage.set(key, len(value))
	return nil
}

// Remove implements Backend.
func (b *BadgerBackend) Remove(_ context.Context, key string) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.fullKey(key))
	})
	if err != nil {
		return fmt.Errorf("badger: delete: %w", err)
	}

	b.usage.remove(key)
	return nil
}

// Keys implements Backend.
func (b *BadgerBackend) Keys(_ context.Context) ([]string, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.prefix
		opts.PrefetchValues = false // Only need keys
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), b.cfg.KeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Size implements Backend.
func (b *BadgerBackend) Size(_ context.Context) (int64, error) {
	return b.usage.used(), nil
}

// Capacity implements Backend.
func (b *BadgerBackend) Capacity() int64 {
	return b.usage.capacity
}

// Clear implements Backend.
func (b *BadgerBackend) Clear(_ context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.db.DropPrefix(b.prefix); err != nil {
		return fmt.Errorf("badger: drop prefix: %w", err)
	}
	b.usage.reset()
	return nil
}

// Close gracefully shuts down the Badger backend.
func (b *BadgerBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.logger.Info("shutting down badger backend")

	close(b.stopCh)
	<-b.doneCh

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// GC runs value log garbage collection until nothing more can be rewritten.
// Returns the number of value log files rewritten.
func (b *BadgerBackend) GC() (int, error) {
	if b.cfg.InMemory {
		return 0, nil
	}

	rewrites := 0
	for {
		err := b.db.RunValueLogGC(b.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return rewrites, fmt.Errorf("gc: %w", err)
		}
		rewrites++
	}

	b.lastGCTime.Store(time.Now().UnixMilli())
	return rewrites, nil
}

// RegisterMetrics registers Badger engine gauges.
//
// Returns the backend for method chaining.
func (b *BadgerBackend) RegisterMetrics(reg prometheus.Registerer) *BadgerBackend {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bookcache",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, func() float64 {
			lsm, _ := b.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bookcache",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, func() float64 {
			_, vlog := b.db.Size()
			return float64(vlog)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bookcache",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last Badger value log GC run",
		}, func() float64 {
			return float64(b.lastGCTime.Load()) / 1000.0
		}),
	)
	return b
}

func (b *BadgerBackend) fullKey(key string) []byte {
	return []byte(b.cfg.KeyPrefix + key)
}

// primeUsage rebuilds the size accounting from entries left by a previous run.
func (b *BadgerBackend) primeUsage() error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), b.cfg.KeyPrefix)
			b.usage.set(key, int(item.ValueSize()))
		}
		return nil
	})
}

// gcLoop runs periodic value log garbage collection.
func (b *BadgerBackend) gcLoop() {
	defer close(b.doneCh)

	if b.cfg.InMemory {
		<-b.stopCh
		return
	}

	interval := b.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := b.GC(); err != nil {
				b.logger.Error("auto gc failed", "error", err)
			} else if n > 0 {
				b.logger.Info("gc completed", "rewrites", n)
			}
		case <-b.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
