package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/bookcache/internal/core/codec"
	"github.com/yndnr/bookcache/internal/core/domain"
	"github.com/yndnr/bookcache/internal/storage"
	"github.com/yndnr/bookcache/internal/telemetry/logger"
	"github.com/yndnr/bookcache/internal/telemetry/metric"
	"github.com/yndnr/bookcache/pkg/keylock"
)

// tier binds a backend to its role and its retrying writer.
type tier struct {
	name    domain.Tier
	backend storage.Backend
	writer  *storage.Writer
}

// StorageManager is the storage facade. Construct one per process (or per
// test) with NewStorageManager; instances share nothing.
type StorageManager struct {
	locks   *keylock.Serializer
	codec   *codec.Codec
	evictor *storage.Evictor
	tiers   []*tier // read order: volatile, durable

	cfg     Config
	logger  logger.Logger
	metrics *metric.Registry
	now     func() time.Time
}

// NewStorageManager creates a manager over a volatile and a durable backend.
func NewStorageManager(volatile, durable storage.Backend, opts ...Option) *StorageManager {
	m := &StorageManager{
		locks:  keylock.New(),
		cfg:    DefaultConfig(),
		logger: logger.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Discard()
	}

	sl := logger.Slog(m.logger)
	m.codec = codec.New(codec.WithClock(m.now))
	m.evictor = storage.NewEvictor(m.codec, m.cfg.Eviction, sl)

	for _, b := range []struct {
		name    domain.Tier
		backend storage.Backend
	}{
		{domain.TierVolatile, volatile},
		{domain.TierDurable, durable},
	} {
		name := b.name
		m.tiers = append(m.tiers, &tier{
			name:    name,
			backend: b.backend,
			writer: storage.NewWriter(b.backend, m.evictor, sl.With("tier", name.String()),
				storage.WithEvictionHook(func(r storage.EvictionReport) {
					m.metrics.RecordEviction(name.String(), "capacity", r.Corrupt, r.Expired, r.Live)
				})),
		})
	}

	return m
}

// Store wraps data in an envelope and writes it to every tier.
//
// The call succeeds when at least one tier accepted the write. A tier that
// rejects the write loses any older copy of the key so reads cannot return
// stale data from it.
func (m *StorageManager) Store(ctx context.Context, key string, data any, dataType string, opts ...StoreOption) (res StoreResult) {
	start := m.now()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("store panicked", "key", key, "panic", r)
			res = failStore(domain.ErrInternal.WithDetails(fmt.Sprint(r)))
		}
		m.metrics.ObserveOperation("store", resultLabel(res.Success, res.Err), m.now().Sub(start))
	}()

	if key == "" {
		return failStore(domain.ErrInvalidArgument.WithDetails("key is required"))
	}

	o := StoreOptions{
		Expiry:         m.cfg.DefaultExpiry,
		RetryAttempts:  m.cfg.RetryAttempts,
		ValidateOnRead: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = m.cfg.RetryAttempts
	}

	m.locks.Do(key, func() {
		res = m.store(ctx, key, data, dataType, o)
	})

	if res.Success {
		m.evictOverThreshold(ctx)
	}
	return res
}

func (m *StorageManager) store(ctx context.Context, key string, data any, dataType string, o StoreOptions) StoreResult {
	env, err := m.codec.Encode(data, dataType, codec.EncodeOptions{Expiry: o.Expiry})
	if err != nil {
		m.logger.Warn("encode failed", "key", key, "data_type", dataType, "error", err)
		return failStore(err)
	}
	raw, err := m.codec.Marshal(env)
	if err != nil {
		return failStore(err)
	}

	var (
		sources []domain.Tier
		errs    []error
	)
	for _, t := range m.tiers {
		err := t.writer.Write(ctx, key, raw, o.RetryAttempts)
		m.metrics.RecordWrite(t.name.String(), writeLabel(err))
		if err == nil {
			sources = append(sources, t.name)
			continue
		}

		errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		m.logger.Warn("tier write failed", "key", key, "tier", t.name, "backend", t.backend.Name(), "error", err)
		if rmErr := t.backend.Remove(ctx, key); rmErr != nil {
			m.logger.Warn("drop stale copy failed", "key", key, "tier", t.name, "error", rmErr)
		}
	}

	if len(sources) == 0 {
		err := domain.ErrStoreFailed.WithCause(errors.Join(errs...))
		m.logger.Error("store failed in every tier", "key", key, "error", err)
		return failStore(err)
	}

	m.logger.Debug("stored",
		"key", key,
		"data_type", dataType,
		"envelope_id", env.Metadata.ID,
		"sources", sources,
		"bytes", len(raw))

	return StoreResult{Success: true, Data: data, Sources: sources}
}

// Retrieve reads key from the first tier holding a valid envelope.
//
// Invalid entries are removed from the tier that held them. A hit in the
// durable tier is copied back into the volatile tier on a best-effort basis
// and reported with Recovered set.
func (m *StorageManager) Retrieve(ctx context.Context, key, expectedDataType string) (res RetrieveResult) {
	start := m.now()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("retrieve panicked", "key", key, "panic", r)
			res = failRetrieve(domain.ErrInternal.WithDetails(fmt.Sprint(r)))
		}
		m.metrics.ObserveOperation("retrieve", resultLabel(res.Success, res.Err), m.now().Sub(start))
	}()

	if key == "" {
		return failRetrieve(domain.ErrInvalidArgument.WithDetails("key is required"))
	}

	m.locks.Do(key, func() {
		res = m.retrieve(ctx, key, expectedDataType)
	})
	return res
}

func (m *StorageManager) retrieve(ctx context.Context, key, expectedDataType string) RetrieveResult {
	var decodeErr, backendErr error

	for i, t := range m.tiers {
		raw, err := t.backend.Get(ctx, key)
		switch {
		case errors.Is(err, storage.ErrKeyNotFound):
			continue
		case errors.Is(err, storage.ErrValueCorrupt):
			err = domain.ErrParseFailure.WithCause(err)
		case err != nil:
			m.logger.Warn("tier read failed", "key", key, "tier", t.name, "backend", t.backend.Name(), "error", err)
			if backendErr == nil {
				backendErr = err
			}
			continue
		}

		var env *domain.Envelope
		if err == nil {
			env, err = m.codec.Decode(raw, expectedDataType)
		}
		if err != nil {
			m.purge(ctx, t, key, err)
			if decodeErr == nil {
				decodeErr = err
			}
			continue
		}

		res := RetrieveResult{Success: true, Data: env.Data, Source: t.name}
		if i > 0 {
			res.Recovered = true
			m.repair(ctx, key, env, m.tiers[:i])
		}
		m.metrics.RecordRead(t.name.String(), "hit")
		return res
	}

	switch {
	case decodeErr != nil:
		m.metrics.RecordRead("none", domain.Reason(decodeErr))
		return failRetrieve(decodeErr)
	case backendErr != nil:
		m.metrics.RecordRead("none", "error")
		return failRetrieve(domain.ErrInternal.WithCause(backendErr))
	default:
		m.metrics.RecordRead("none", "not_found")
		return failRetrieve(domain.ErrNotFound)
	}
}

// purge removes an invalid entry from the tier that held it.
func (m *StorageManager) purge(ctx context.Context, t *tier, key string, reason error) {
	m.metrics.RecordInvalid(t.name.String(), domain.Reason(reason))
	m.logger.Info("purging invalid entry",
		"key", key,
		"tier", t.name,
		"reason", domain.Reason(reason),
		"error", reason)

	if err := t.backend.Remove(ctx, key); err != nil {
		m.logger.Warn("purge failed", "key", key, "tier", t.name, "error", err)
	}
}

// repair rewrites env into the faster tiers. The copy keeps the source's
// expiry so it never outlives it. Failures only get logged.
func (m *StorageManager) repair(ctx context.Context, key string, env *domain.Envelope, into []*tier) {
	fresh, err := m.codec.EncodeRaw(env.Data, env.Metadata.DataType, env.Metadata.Expiry())
	if err == nil {
		var raw []byte
		if raw, err = m.codec.Marshal(fresh); err == nil {
			for _, t := range into {
				if werr := t.writer.Write(ctx, key, raw, m.cfg.RetryAttempts); werr != nil {
					err = errors.Join(err, werr)
				}
			}
		}
	}

	m.metrics.RecordReadRepair(err == nil)
	if err != nil {
		m.logger.Warn("read repair failed", "key", key, "error", err)
		return
	}
	m.logger.Debug("read repair completed", "key", key, "envelope_id", fresh.Metadata.ID)
}

// Remove deletes key from every tier.
func (m *StorageManager) Remove(ctx context.Context, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("remove panicked", "key", key, "panic", r)
			err = domain.ErrInternal.WithDetails(fmt.Sprint(r))
		}
	}()

	m.locks.Do(key, func() {
		var errs []error
		for _, t := range m.tiers {
			if rmErr := t.backend.Remove(ctx, key); rmErr != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.name, rmErr))
			}
		}
		err = errors.Join(errs...)
	})

	if err != nil {
		m.logger.Warn("remove failed", "key", key, "error", err)
	}
	return err
}

// ClearAll wipes every tier and forgets all pending per-key chains.
// Operations already running finish normally.
func (m *StorageManager) ClearAll(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("clear panicked", "panic", r)
			err = domain.ErrInternal.WithDetails(fmt.Sprint(r))
		}
	}()

	var errs []error
	for _, t := range m.tiers {
		if clrErr := t.backend.Clear(ctx); clrErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.name, clrErr))
		}
	}
	m.locks.Reset()

	if err = errors.Join(errs...); err != nil {
		m.logger.Error("clear all failed", "error", err)
		return err
	}
	m.logger.Info("all tiers cleared")
	return nil
}

// Stats reports usage per tier.
func (m *StorageManager) Stats(ctx context.Context) (Stats, error) {
	stats := make(Stats, len(m.tiers))
	for _, t := range m.tiers {
		census, err := m.evictor.Census(ctx, t.backend)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}

		capacity := t.backend.Capacity()
		stats[t.name] = TierStats{
			Backend:   t.backend.Name(),
			Used:      census.Used,
			Available: max(capacity-census.Used, 0),
			Capacity:  capacity,
			ItemCount: census.Live,
			Expired:   census.Expired,
			Corrupt:   census.Corrupt,
		}
		m.metrics.SetTierUsage(t.name.String(), census.Used, census.Live)
	}
	return stats, nil
}

// PurgeExpired removes expired and corrupt entries from every tier. It only
// runs when called; nothing schedules it.
func (m *StorageManager) PurgeExpired(ctx context.Context) (PurgeReport, error) {
	report := make(PurgeReport, len(m.tiers))
	var errs []error
	for _, t := range m.tiers {
		r, err := m.evictor.Purge(ctx, t.backend)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
			continue
		}
		report[t.name] = r
		m.metrics.RecordEviction(t.name.String(), "purge", r.Corrupt, r.Expired, r.Live)
	}

	m.logger.Info("purge completed", "report", report)
	return report, errors.Join(errs...)
}

// Pending returns the number of keys with queued operations.
func (m *StorageManager) Pending() int {
	return m.locks.Pending()
}

// evictOverThreshold runs an eviction pass on every tier holding more than
// the configured number of entries.
func (m *StorageManager) evictOverThreshold(ctx context.Context) {
	for _, t := range m.tiers {
		keys, err := t.backend.Keys(ctx)
		if err != nil || len(keys) <= m.cfg.EvictionThreshold {
			continue
		}

		r, err := m.evictor.Evict(ctx, t.backend)
		if err != nil {
			m.logger.Warn("threshold eviction failed", "tier", t.name, "error", err)
			continue
		}
		m.metrics.RecordEviction(t.name.String(), "threshold", r.Corrupt, r.Expired, r.Live)
	}
}

func writeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case storage.IsCapacityError(err):
		return "capacity"
	default:
		return "error"
	}
}

func resultLabel(success bool, err error) string {
	if success {
		return "ok"
	}
	return domain.Reason(err)
}
