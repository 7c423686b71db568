// Package storagetest provides a storage.Backend fake with fault injection.
package storagetest

import (
	"context"
	"sort"
	"sync"

	"github.com/yndnr/bookcache/internal/storage"
)

// Fake is an in-memory storage.Backend whose failures can be scripted.
//
// The zero value is not usable; call New.
type Fake struct {
	name     string
	capacity int64

	mu      sync.Mutex
	entries map[string][]byte
	used    int64

	setErr      error
	getErr      error
	removeErr   error
	keysErr     error
	capFailures int
	getPanic    bool

	sets    int
	gets    int
	removes int
}

// New creates a Fake named name with the given capacity (0 for the default).
func New(name string, capacity int64) *Fake {
	if capacity <= 0 {
		capacity = storage.DefaultCapacity
	}
	return &Fake{
		name:     name,
		capacity: capacity,
		entries:  make(map[string][]byte),
	}
}

var _ storage.Backend = (*Fake)(nil)

// FailSets makes every Set return err. Pass nil to restore normal behavior.
func (f *Fake) FailSets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

// FailGets makes every Get return err.
func (f *Fake) FailGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// FailRemoves makes every Remove return err.
func (f *Fake) FailRemoves(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeErr = err
}

// FailKeys makes Keys return err.
func (f *Fake) FailKeys(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keysErr = err
}

// PanicOnGet makes Get panic.
func (f *Fake) PanicOnGet(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getPanic = on
}

// RejectNextSets makes the next n Set calls fail with
// storage.ErrCapacityExceeded regardless of free space.
func (f *Fake) RejectNextSets(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capFailures = n
}

// Put stores value directly, bypassing capacity checks and counters.
func (f *Fake) Put(key string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used += int64(len(key)+len(value)) - f.sizeLocked(key)
	f.entries[key] = append([]byte(nil), value...)
}

// Peek returns the stored value without counting a Get.
func (f *Fake) Peek(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	return append([]byte(nil), v...), ok
}

// Has reports whether key is present.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

// Len returns the number of entries.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Calls returns the number of Set, Get and Remove calls made so far.
func (f *Fake) Calls() (sets, gets, removes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets, f.gets, f.removes
}

// Name implements storage.Backend.
func (f *Fake) Name() string {
	return f.name
}

// Get implements storage.Backend.
func (f *Fake) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getPanic {
		panic("storagetest: get panic")
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.entries[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements storage.Backend.
func (f *Fake) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	if f.capFailures > 0 {
		f.capFailures--
		return storage.ErrCapacityExceeded
	}
	n := int64(len(key) + len(value))
	old := f.sizeLocked(key)
	if f.used-old+n > f.capacity {
		return storage.ErrCapacityExceeded
	}
	f.entries[key] = append([]byte(nil), value...)
	f.used += n - old
	return nil
}

// Remove implements storage.Backend.
func (f *Fake) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	f.used -= f.sizeLocked(key)
	delete(f.entries, key)
	return nil
}

// Keys implements storage.Backend. Keys are returned sorted.
func (f *Fake) Keys(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	keys := make([]string, 0, len(f.entries))
	for k := range f.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Size implements storage.Backend.
func (f *Fake) Size(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.used, nil
}

// Capacity implements storage.Backend.
func (f *Fake) Capacity() int64 {
	return f.capacity
}

// Clear implements storage.Backend.
func (f *Fake) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string][]byte)
	f.used = 0
	return nil
}

// Close implements storage.Backend.
func (f *Fake) Close() error {
	return nil
}

func (f *Fake) sizeLocked(key string) int64 {
	v, ok := f.entries[key]
	if !ok {
		return 0
	}
	return int64(len(key) + len(v))
}
