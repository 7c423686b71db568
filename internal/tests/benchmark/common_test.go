package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/bookcache/internal/core/service"
	"github.com/yndnr/bookcache/internal/storage"
	"github.com/yndnr/bookcache/internal/storage/memory"
	"github.com/yndnr/bookcache/internal/telemetry/logger"
)

// EntryCounts defines the preload sizes for benchmarking.
var EntryCounts = []int{1000, 5000, 10000, 50000}

// SmallEntryCounts for quick benchmarks.
var SmallEntryCounts = []int{100, 1000, 5000}

// book is a representative payload.
type book struct {
	ISBN    string   `json:"isbn"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Pages   int      `json:"pages"`
	Summary string   `json:"summary"`
}

// newKey generates a unique entry key.
func newKey() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return "book:" + strings.ToLower(id.String())
}

func newBook(i int) book {
	return book{
		ISBN:    fmt.Sprintf("978-0-%06d", i),
		Title:   fmt.Sprintf("Benchmark Volume %d", i),
		Authors: []string{"A. Writer", "B. Editor"},
		Pages:   200 + i%400,
		Summary: strings.Repeat("lorem ipsum ", 16),
	}
}

// newBadger opens an in-memory badger tier.
func newBadger(b *testing.B, capacity int64) *storage.BadgerBackend {
	b.Helper()
	cfg := storage.DefaultBadgerConfig("")
	cfg.InMemory = true
	cfg.SyncWrites = false
	if capacity > 0 {
		cfg.Capacity = capacity
	}
	db, err := storage.NewBadgerBackend(cfg, logger.Slog(logger.Discard()))
	if err != nil {
		b.Fatalf("NewBadgerBackend failed: %v", err)
	}
	b.Cleanup(func() { _ = db.Close() })
	return db
}

// newManager builds a manager over a memory volatile tier and an in-memory
// badger durable tier.
func newManager(b *testing.B, volatileCap, durableCap int64) (*service.StorageManager, *memory.Store) {
	b.Helper()
	volatile := memory.New(memory.WithCapacity(volatileCap))
	durable := newBadger(b, durableCap)

	cfg := service.DefaultConfig()
	cfg.EvictionThreshold = 1 << 30
	m := service.NewStorageManager(volatile, durable,
		service.WithConfig(cfg),
		service.WithLogger(logger.Discard()),
	)
	return m, volatile
}

// prefill stores count entries and returns their keys.
func prefill(ctx context.Context, b *testing.B, m *service.StorageManager, count int) []string {
	b.Helper()
	keys := make([]string, count)
	for i := 0; i < count; i++ {
		keys[i] = newKey()
		if res := m.Store(ctx, keys[i], newBook(i), "book"); !res.Success {
			b.Fatalf("prefill Store failed: %s", res.Error)
		}
	}
	return keys
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithEntryCounts runs a benchmark function with various preload sizes.
func runWithEntryCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("entries_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

func sizeLabel(size int) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%dMB", size>>20)
	case size >= 1<<10:
		return fmt.Sprintf("%dKB", size>>10)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
