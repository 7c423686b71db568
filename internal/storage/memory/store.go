package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yndnr/bookcache/internal/storage"
	"github.com/yndnr/bookcache/pkg/cmap"
)

// Store is the volatile tier.
type Store struct {
	entries  *cmap.Map[[]byte]
	capacity int64
	used     atomic.Int64
	closed   atomic.Bool

	// writeMu guards capacity accounting across Set/Remove/Clear.
	writeMu sync.Mutex
}

// Option configures the Store.
type Option func(*Store)

// WithCapacity sets the tier capacity in bytes.
func WithCapacity(bytes int64) Option {
	return func(s *Store) {
		if bytes > 0 {
			s.capacity = bytes
		}
	}
}

// New creates a new volatile store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:  cmap.New[[]byte](),
		capacity: storage.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.Backend = (*Store)(nil)

// Name implements storage.Backend.
func (s *Store) Name() string {
	return "memory"
}

// Get implements storage.Backend. The returned slice is a copy.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}
	v, ok := s.entries.Get(key)
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements storage.Backend.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var old int64
	if prev, ok := s.entries.Get(key); ok {
		old = entrySize(key, prev)
	}
	n := entrySize(key, value)
	if s.used.Load()-old+n > s.capacity {
		return storage.ErrCapacityExceeded
	}

	s.entries.Set(key, append([]byte(nil), value...))
	s.used.Add(n - old)
	return nil
}

// Remove implements storage.Backend. Removing a missing key is not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if prev, ok := s.entries.Pop(key); ok {
		s.used.Add(-entrySize(key, prev))
	}
	return nil
}

// Keys implements storage.Backend.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}
	return s.entries.Keys(), nil
}

// Size implements storage.Backend.
func (s *Store) Size(_ context.Context) (int64, error) {
	return s.used.Load(), nil
}

// Capacity implements storage.Backend.
func (s *Store) Capacity() int64 {
	return s.capacity
}

// Count returns the number of entries, valid or not.
func (s *Store) Count() int {
	return s.entries.Count()
}

// Clear implements storage.Backend.
func (s *Store) Clear(_ context.Context) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.entries.Clear()
	s.used.Store(0)
	return nil
}

// Close drops all entries. Further calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.entries.Clear()
	s.used.Store(0)
	return nil
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
