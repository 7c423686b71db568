package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint for SCAN and the DEL batch size.
const scanBatch = 256

// RedisConfig configures the Redis durable tier.
type RedisConfig struct {
	// KeyPrefix namespaces the keys this backend owns.
	// Default: "bookcache:"
	KeyPrefix string

	// Capacity is the tier capacity in bytes.
	// Default: 5MiB
	Capacity int64
}

// RedisBackend implements Backend on a Redis server.
//
// Entries are plain string keys without a Redis TTL; expiry is carried by the
// envelope and enforced on read, like every other tier.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
	usage  *usage
	logger *slog.Logger

	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewRedisBackend creates a Redis-backed durable tier and rebuilds its size
// accounting from keys already present under the prefix.
func NewRedisBackend(ctx context.Context, client redis.UniversalClient, cfg RedisConfig, logger *slog.Logger) (*RedisBackend, error) {
	if client == nil {
		return nil, errors.New("redis: client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	b := &RedisBackend{
		client: client,
		prefix: cfg.KeyPrefix,
		usage:  newUsage(cfg.Capacity),
		logger: logger,
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		n, err := client.StrLen(ctx, b.prefix+key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: strlen %s: %w", key, err)
		}
		b.usage.set(key, int(n))
	}

	logger.Info("redis backend started",
		"prefix", cfg.KeyPrefix,
		"capacity", b.usage.capacity,
		"used", b.usage.used(),
		"keys", len(keys))

	return b, nil
}

// Name implements Backend.
func (b *RedisBackend) Name() string {
	return "redis"
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	value, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis: get: %w", err)
	}
	return value, nil
}

// Set implements Backend.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if !b.usage.fits(key, len(value)) {
		return ErrCapacityExceeded
	}

	if err := b.client.Set(ctx, b.prefix+key, value, 0).Err(); err != nil {
		if isRedisOOM(err) {
			return fmt.Errorf("%w: %v", ErrCapacityExceeded, err)
		}
		return fmt.Errorf("redis: set: %w", err)
	}

	b.usage.set(key, len(value))
	return nil
}

// Remove implements Backend.
func (b *RedisBackend) Remove(ctx context.Context, key string) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	b.usage.remove(key)
	return nil
}

// Keys implements Backend.
func (b *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	var keys []string
	iter := b.client.Scan(ctx, 0, b.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scan: %w", err)
	}
	return keys, nil
}

// Size implements Backend.
func (b *RedisBackend) Size(_ context.Context) (int64, error) {
	return b.usage.used(), nil
}

// Capacity implements Backend.
func (b *RedisBackend) Capacity() int64 {
	return b.usage.capacity
}

// Clear implements Backend.
func (b *RedisBackend) Clear(ctx context.Context) error {
	keys, err := b.Keys(ctx)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		batch := make([]string, 0, end-start)
		for _, key := range keys[start:end] {
			batch = append(batch, b.prefix+key)
		}
		if err := b.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis: del batch: %w", err)
		}
	}

	b.usage.reset()
	return nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.client.Close()
}

// isRedisOOM reports whether the server rejected a write under maxmemory.
func isRedisOOM(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM ")
}
