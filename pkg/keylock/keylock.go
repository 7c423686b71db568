// Package keylock serializes operations per key.
//
// Operations submitted for the same key run one at a time in submission
// order. Operations on different keys never wait on each other.
package keylock

import "sync"

// Serializer maps each key to the completion signal of the last operation
// queued for it. A key's entry is dropped once its last queued operation
// settles, so the map only holds keys with work in flight.
type Serializer struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

// New creates a new Serializer.
func New() *Serializer {
	return &Serializer{
		tails: make(map[string]chan struct{}),
	}
}

// Do runs fn once every operation previously submitted for key has settled.
//
// The slot is released when fn returns or panics. Submission order is the
// order in which calls enter Do.
func (s *Serializer) Do(key string, fn func()) {
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tails[key]
	s.tails[key] = done
	s.mu.Unlock()

	defer s.release(key, done)

	if prev != nil {
		<-prev
	}
	fn()
}

func (s *Serializer) release(key string, done chan struct{}) {
	s.mu.Lock()
	if s.tails[key] == done {
		delete(s.tails, key)
	}
	s.mu.Unlock()
	close(done)
}

// Pending returns the number of keys with operations in flight.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tails)
}

// Reset forgets every queued chain. Operations already waiting keep their
// order among themselves; new submissions no longer wait on them.
func (s *Serializer) Reset() {
	s.mu.Lock()
	s.tails = make(map[string]chan struct{})
	s.mu.Unlock()
}
