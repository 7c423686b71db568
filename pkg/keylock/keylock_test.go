package keylock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_RunsImmediatelyWhenIdle(t *testing.T) {
	s := New()

	ran := false
	s.Do("k", func() { ran = true })

	if !ran {
		t.Error("fn did not run")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after completion", s.Pending())
	}
}

func TestDo_SameKeyRunsOneAtATime(t *testing.T) {
	s := New()

	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do("booking-1", func() {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent operations on one key = %d, want 1", maxActive)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
}

func TestDo_SubmissionOrder(t *testing.T) {
	s := New()

	gate := make(chan struct{})
	started := make(chan struct{})
	go s.Do("k", func() {
		close(started)
		<-gate
	})
	<-started

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		before := tail(s, "k")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Do("k", func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}(i)
		waitFor(t, func() bool { return tail(s, "k") != before })
	}

	close(gate)
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want submission order", order)
		}
	}
}

func TestDo_DifferentKeysInterleave(t *testing.T) {
	s := New()

	gate := make(chan struct{})
	started := make(chan struct{})
	go s.Do("a", func() {
		close(started)
		<-gate
	})
	<-started

	done := make(chan struct{})
	go func() {
		s.Do("b", func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("operation on another key was blocked")
	}
	close(gate)
}

func TestDo_ReleasesOnPanic(t *testing.T) {
	s := New()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		s.Do("k", func() { panic("boom") })
	}()

	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after panic", s.Pending())
	}

	done := make(chan struct{})
	go func() {
		s.Do("k", func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key stayed locked after panic")
	}
}

func TestReset(t *testing.T) {
	s := New()

	gate := make(chan struct{})
	started := make(chan struct{})
	go s.Do("k", func() {
		close(started)
		<-gate
	})
	<-started

	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", s.Pending())
	}

	s.Reset()
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after Reset", s.Pending())
	}

	done := make(chan struct{})
	go func() {
		s.Do("k", func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submission after Reset waited on a forgotten chain")
	}
	close(gate)
}

func TestPending_ManyKeys(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Do(fmt.Sprintf("k%d", i%7), func() {})
		}(i)
	}
	wg.Wait()

	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
}

func tail(s *Serializer, key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tails[key]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}
