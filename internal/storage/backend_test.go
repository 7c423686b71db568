package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runBackendContract exercises the behavior every Backend must share.
// newBackend must return an empty backend with a capacity of 1024 bytes.
func runBackendContract(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		b := newBackend(t)
		if err := b.Set(ctx, "draft", []byte("value")); err != nil {
			t.Fatal(err)
		}
		got, err := b.Get(ctx, "draft")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "value" {
			t.Errorf("expected value, got %s", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		b := newBackend(t)
		if _, err := b.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		b := newBackend(t)
		b.Set(ctx, "k", []byte("v"))
		if err := b.Remove(ctx, "k"); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound after remove, got %v", err)
		}
		if err := b.Remove(ctx, "k"); err != nil {
			t.Errorf("removing a missing key should succeed, got %v", err)
		}
	})

	t.Run("Size accounting", func(t *testing.T) {
		b := newBackend(t)
		b.Set(ctx, "aa", []byte("1234"))
		b.Set(ctx, "bb", []byte("12"))
		b.Set(ctx, "aa", []byte("123456"))
		used, err := b.Size(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if used != 12 {
			t.Errorf("expected 12 bytes used, got %d", used)
		}
		b.Remove(ctx, "bb")
		if used, _ := b.Size(ctx); used != 8 {
			t.Errorf("expected 8 bytes used after remove, got %d", used)
		}
	})

	t.Run("Capacity exceeded", func(t *testing.T) {
		b := newBackend(t)
		if b.Capacity() != 1024 {
			t.Fatalf("expected capacity 1024, got %d", b.Capacity())
		}
		if err := b.Set(ctx, "big", make([]byte, 1000)); err != nil {
			t.Fatal(err)
		}
		err := b.Set(ctx, "more", make([]byte, 100))
		if !IsCapacityError(err) {
			t.Fatalf("expected capacity error, got %v", err)
		}
		if _, err := b.Get(ctx, "more"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("rejected write must not be stored, got %v", err)
		}
	})

	t.Run("Keys and Clear", func(t *testing.T) {
		b := newBackend(t)
		want := make([]string, 0, 5)
		for i := 0; i < 5; i++ {
			key := fmt.Sprintf("k%d", i)
			want = append(want, key)
			b.Set(ctx, key, []byte("v"))
		}
		keys, err := b.Keys(ctx)
		if err != nil {
			t.Fatal(err)
		}
		sort.Strings(keys)
		if fmt.Sprint(keys) != fmt.Sprint(want) {
			t.Errorf("expected keys %v, got %v", want, keys)
		}

		if err := b.Clear(ctx); err != nil {
			t.Fatal(err)
		}
		keys, _ = b.Keys(ctx)
		if len(keys) != 0 {
			t.Errorf("expected no keys after clear, got %v", keys)
		}
		if used, _ := b.Size(ctx); used != 0 {
			t.Errorf("expected 0 bytes used after clear, got %d", used)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		b := newBackend(t)
		if err := b.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if err := b.Set(ctx, "k", []byte("v")); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}
