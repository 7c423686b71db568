package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/yndnr/bookcache/internal/core/domain"
)

// Eviction defaults.
const (
	DefaultEvictMinEntries = 5
	DefaultEvictFraction   = 0.25
)

// MetadataReader parses envelope headers. *codec.Codec implements it.
type MetadataReader interface {
	Inspect(raw []byte) (*domain.Metadata, error)
	Now() time.Time
}

// EvictionConfig configures an Evictor.
type EvictionConfig struct {
	// MinEntries is the minimum number of valid entries removed per pass.
	// Default: 5
	MinEntries int

	// Fraction of valid entries removed per pass.
	// Default: 0.25
	Fraction float64
}

// DefaultEvictionConfig returns the default eviction configuration.
func DefaultEvictionConfig() EvictionConfig {
	return EvictionConfig{
		MinEntries: DefaultEvictMinEntries,
		Fraction:   DefaultEvictFraction,
	}
}

// EvictionReport summarizes one pass over a backend.
type EvictionReport struct {
	Backend string
	Corrupt int // unparseable entries removed
	Expired int // expired entries removed
	Live    int // live entries removed, oldest first
	Failed  int // removals that returned an error
}

// Removed returns the total number of entries removed.
func (r EvictionReport) Removed() int {
	return r.Corrupt + r.Expired + r.Live
}

// Census counts the entries of a backend.
type Census struct {
	Used    int64 // approximate bytes, as reported by the backend
	Live    int   // parseable, not expired
	Expired int   // parseable, expired
	Corrupt int   // unparseable
}

// Evictor frees capacity in a backend.
//
// Evictor never takes per-key operation locks: it only ever removes whole
// entries, so racing an unrelated store costs at most that store's entry.
type Evictor struct {
	meta   MetadataReader
	cfg    EvictionConfig
	logger *slog.Logger
}

// NewEvictor creates a new Evictor.
func NewEvictor(meta MetadataReader, cfg EvictionConfig, logger *slog.Logger) *Evictor {
	if cfg.MinEntries <= 0 {
		cfg.MinEntries = DefaultEvictMinEntries
	}
	if cfg.Fraction <= 0 || cfg.Fraction > 1 {
		cfg.Fraction = DefaultEvictFraction
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evictor{
		meta:   meta,
		cfg:    cfg,
		logger: logger,
	}
}

type scannedEntry struct {
	key       string
	timestamp int64
	expired   bool
}

// Quota returns how many valid entries a pass removes at minimum.
func (e *Evictor) Quota(valid int) int {
	return max(e.cfg.MinEntries, int(math.Ceil(e.cfg.Fraction*float64(valid))))
}

// Evict removes corrupt entries, then at least Quota(valid) entries ordered
// expired first and then oldest first. Every expired entry goes even when
// that exceeds the quota.
func (e *Evictor) Evict(ctx context.Context, b Backend) (EvictionReport, error) {
	report := EvictionReport{Backend: b.Name()}

	entries, corrupt, err := e.scan(ctx, b)
	if err != nil {
		return report, err
	}

	e.removeCorrupt(ctx, b, corrupt, &report)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].expired != entries[j].expired {
			return entries[i].expired
		}
		return entries[i].timestamp < entries[j].timestamp
	})

	expired := 0
	for _, entry := range entries {
		if entry.expired {
			expired++
		}
	}
	n := min(max(e.Quota(len(entries)), expired), len(entries))

	for _, entry := range entries[:n] {
		if err := b.Remove(ctx, entry.key); err != nil {
			report.Failed++
			e.logger.Warn("evict entry failed", "backend", b.Name(), "key", entry.key, "error", err)
			continue
		}
		if entry.expired {
			report.Expired++
		} else {
			report.Live++
		}
	}

	e.logger.Info("eviction completed",
		"backend", report.Backend,
		"valid_entries", len(entries),
		"corrupt_removed", report.Corrupt,
		"expired_removed", report.Expired,
		"live_removed", report.Live,
		"failed", report.Failed)

	return report, nil
}

// Purge removes corrupt and expired entries only. Live entries are kept.
func (e *Evictor) Purge(ctx context.Context, b Backend) (EvictionReport, error) {
	report := EvictionReport{Backend: b.Name()}

	entries, corrupt, err := e.scan(ctx, b)
	if err != nil {
		return report, err
	}

	e.removeCorrupt(ctx, b, corrupt, &report)

	for _, entry := range entries {
		if !entry.expired {
			continue
		}
		if err := b.Remove(ctx, entry.key); err != nil {
			report.Failed++
			continue
		}
		report.Expired++
	}

	return report, nil
}

// Census classifies every entry without removing anything.
func (e *Evictor) Census(ctx context.Context, b Backend) (Census, error) {
	var c Census

	entries, corrupt, err := e.scan(ctx, b)
	if err != nil {
		return c, err
	}

	c.Corrupt = len(corrupt)
	for _, entry := range entries {
		if entry.expired {
			c.Expired++
		} else {
			c.Live++
		}
	}

	c.Used, err = b.Size(ctx)
	if err != nil {
		return c, fmt.Errorf("%s: size: %w", b.Name(), err)
	}
	return c, nil
}

// scan reads every entry's header. Keys that disappear mid-scan are skipped.
func (e *Evictor) scan(ctx context.Context, b Backend) ([]scannedEntry, []string, error) {
	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: list keys: %w", b.Name(), err)
	}

	now := e.meta.Now()
	entries := make([]scannedEntry, 0, len(keys))
	var corrupt []string

	for _, key := range keys {
		raw, err := b.Get(ctx, key)
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyNotFound):
			case errors.Is(err, ErrValueCorrupt):
				corrupt = append(corrupt, key)
			default:
				e.logger.Warn("read entry failed during scan", "backend", b.Name(), "key", key, "error", err)
			}
			continue
		}

		meta, err := e.meta.Inspect(raw)
		if err != nil {
			corrupt = append(corrupt, key)
			continue
		}

		entries = append(entries, scannedEntry{
			key:       key,
			timestamp: meta.Timestamp,
			expired:   meta.IsExpired(now),
		})
	}

	return entries, corrupt, nil
}

func (e *Evictor) removeCorrupt(ctx context.Context, b Backend, keys []string, report *EvictionReport) {
	for _, key := range keys {
		if err := b.Remove(ctx, key); err != nil {
			report.Failed++
			e.logger.Warn("remove corrupt entry failed", "backend", b.Name(), "key", key, "error", err)
			continue
		}
		report.Corrupt++
	}
}
