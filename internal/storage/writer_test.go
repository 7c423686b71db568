package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yndnr/bookcache/internal/core/codec"
	"github.com/yndnr/bookcache/internal/storage"
	"github.com/yndnr/bookcache/internal/storage/storagetest"
)

func TestWriter_FirstAttempt(t *testing.T) {
	c, _ := newTestCodec()
	f := storagetest.New("fake", 0)
	w := storage.NewWriter(f, storage.NewEvictor(c, storage.DefaultEvictionConfig(), discardLogger()), discardLogger())

	if err := w.Write(context.Background(), "k", []byte("v"), 3); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if sets, _, _ := f.Calls(); sets != 1 {
		t.Fatalf("sets = %d, want 1", sets)
	}
	if w.Backend() != storage.Backend(f) {
		t.Fatal("Backend() should return the wrapped backend")
	}
}

func TestWriter_RetriesAfterEviction(t *testing.T) {
	c, clk := newTestCodec()
	f := storagetest.New("fake", 0)
	for i := 0; i < 8; i++ {
		putEnvelope(t, c, f, fmt.Sprintf("k%d", i), time.Hour)
		clk.Advance(time.Second)
	}
	f.RejectNextSets(1)

	var reports []storage.EvictionReport
	w := storage.NewWriter(f,
		storage.NewEvictor(c, storage.DefaultEvictionConfig(), discardLogger()),
		discardLogger(),
		storage.WithEvictionHook(func(r storage.EvictionReport) { reports = append(reports, r) }))

	if err := w.Write(context.Background(), "new", []byte("v"), 3); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(reports) != 1 || reports[0].Live != 5 {
		t.Fatalf("reports = %+v, want one pass removing 5", reports)
	}
	if !f.Has("new") {
		t.Fatal("value not written")
	}
	if sets, _, _ := f.Calls(); sets != 2 {
		t.Fatalf("sets = %d, want 2", sets)
	}
}

func TestWriter_Exhausted(t *testing.T) {
	c, _ := newTestCodec()
	f := storagetest.New("fake", 0)
	f.RejectNextSets(100)

	passes := 0
	w := storage.NewWriter(f,
		storage.NewEvictor(c, storage.DefaultEvictionConfig(), discardLogger()),
		discardLogger(),
		storage.WithEvictionHook(func(storage.EvictionReport) { passes++ }))

	tests := []struct {
		name       string
		maxRetries int
		wantSets   int
	}{
		{"explicit 2", 2, 2},
		{"default", 0, storage.DefaultMaxRetries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _, _ := f.Calls()
			passes = 0

			err := w.Write(context.Background(), "k", []byte("v"), tt.maxRetries)
			if !errors.Is(err, storage.ErrCapacityExceeded) {
				t.Fatalf("err = %v, want ErrCapacityExceeded", err)
			}
			after, _, _ := f.Calls()
			if after-before != tt.wantSets {
				t.Errorf("sets = %d, want %d", after-before, tt.wantSets)
			}
			if passes != tt.wantSets-1 {
				t.Errorf("eviction passes = %d, want %d", passes, tt.wantSets-1)
			}
		})
	}
}

func TestWriter_NoEvictionAfterFinalAttempt(t *testing.T) {
	c, clk := newTestCodec()
	f := storagetest.New("fake", 0)
	for i := 0; i < 20; i++ {
		putEnvelope(t, c, f, fmt.Sprintf("k%02d", i), time.Hour)
		clk.Advance(time.Second)
	}
	f.RejectNextSets(100)

	passes := 0
	w := storage.NewWriter(f,
		storage.NewEvictor(c, storage.DefaultEvictionConfig(), discardLogger()),
		discardLogger(),
		storage.WithEvictionHook(func(storage.EvictionReport) { passes++ }))

	err := w.Write(context.Background(), "new", []byte("v"), 1)
	if !errors.Is(err, storage.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if passes != 0 {
		t.Errorf("eviction passes = %d, want 0", passes)
	}
	if f.Len() != 20 {
		t.Errorf("entries = %d, want all 20 kept", f.Len())
	}
}

func TestWriter_NonCapacityErrorFailsFast(t *testing.T) {
	c, _ := newTestCodec()
	f := storagetest.New("fake", 0)
	boom := errors.New("disk on fire")
	f.FailSets(boom)

	passes := 0
	w := storage.NewWriter(f,
		storage.NewEvictor(c, storage.DefaultEvictionConfig(), discardLogger()),
		discardLogger(),
		storage.WithEvictionHook(func(storage.EvictionReport) { passes++ }))

	err := w.Write(context.Background(), "k", []byte("v"), 3)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if sets, _, _ := f.Calls(); sets != 1 {
		t.Fatalf("sets = %d, want 1", sets)
	}
	if passes != 0 {
		t.Fatalf("eviction passes = %d, want 0", passes)
	}
}

func TestWriter_RealCapacityFreedByEviction(t *testing.T) {
	c, clk := newTestCodec()
	f := storagetest.New("fake", 2048)

	// Fill the tier with envelopes until it refuses more.
	for i := 0; ; i++ {
		env, _ := c.Encode(map[string]int{"n": i}, "draft", codec.EncodeOptions{Expiry: time.Hour})
		raw, _ := c.Marshal(env)
		if err := f.Set(context.Background(), fmt.Sprintf("k%03d", i), raw); err != nil {
			break
		}
		clk.Advance(time.Second)
	}
	full := f.Len()

	w := storage.NewWriter(f, storage.NewEvictor(c, storage.DefaultEvictionConfig(), discardLogger()), discardLogger())
	env, _ := c.Encode(map[string]int{"n": -1}, "draft", codec.EncodeOptions{Expiry: time.Hour})
	raw, _ := c.Marshal(env)
	if err := w.Write(context.Background(), "fresh", raw, 3); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if f.Has("k000") {
		t.Error("oldest entry should have been evicted")
	}
	if f.Len() > full {
		t.Errorf("Len = %d, was %d when full", f.Len(), full)
	}
}
