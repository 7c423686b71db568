package storage

import "sync"

// usage tracks per-key sizes for backends whose engine cannot report them
// cheaply. Callers hold their own write lock around fits+set so the
// capacity check and the write are atomic with respect to each other.
type usage struct {
	mu       sync.Mutex
	capacity int64
	sizes    map[string]int64
	total    int64
}

func newUsage(capacity int64) *usage {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &usage{
		capacity: capacity,
		sizes:    make(map[string]int64),
	}
}

func entrySize(key string, valueLen int) int64 {
	return int64(len(key) + valueLen)
}

// fits reports whether writing valueLen bytes under key stays within capacity.
func (u *usage) fits(key string, valueLen int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total-u.sizes[key]+entrySize(key, valueLen) <= u.capacity
}

func (u *usage) set(key string, valueLen int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := entrySize(key, valueLen)
	u.total += n - u.sizes[key]
	u.sizes[key] = n
}

func (u *usage) remove(key string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.total -= u.sizes[key]
	delete(u.sizes, key)
}

func (u *usage) reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sizes = make(map[string]int64)
	u.total = 0
}

func (u *usage) used() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total
}
