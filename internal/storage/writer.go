package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxRetries is the default number of write attempts per tier.
const DefaultMaxRetries = 3

// Writer writes to one backend, evicting and retrying on capacity errors.
type Writer struct {
	backend Backend
	evictor *Evictor
	logger  *slog.Logger
	onEvict func(EvictionReport)
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithEvictionHook registers a callback invoked after every eviction pass.
func WithEvictionHook(fn func(EvictionReport)) WriterOption {
	return func(w *Writer) {
		w.onEvict = fn
	}
}

// NewWriter creates a Writer for backend.
func NewWriter(backend Backend, evictor *Evictor, logger *slog.Logger, opts ...WriterOption) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		backend: backend,
		evictor: evictor,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Backend returns the backend this writer targets.
func (w *Writer) Backend() Backend {
	return w.backend
}

// Write stores value under key, making up to maxRetries attempts.
//
// Only ErrCapacityExceeded is retried, each time after an eviction pass.
// No eviction follows the final attempt.
// Any other failure is returned immediately. When every attempt hits the
// capacity limit the returned error wraps ErrCapacityExceeded.
func (w *Writer) Write(ctx context.Context, key string, value []byte, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := w.backend.Set(ctx, key, value)
		if err == nil {
			if attempt > 1 {
				w.logger.Info("write succeeded after eviction",
					"backend", w.backend.Name(),
					"key", key,
					"attempt", attempt)
			}
			return nil
		}
		if !IsCapacityError(err) {
			return fmt.Errorf("%s: %w", w.backend.Name(), err)
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}
		w.logger.Warn("backend full, evicting",
			"backend", w.backend.Name(),
			"key", key,
			"attempt", attempt,
			"max_attempts", maxRetries)

		if w.evictor == nil {
			continue
		}
		report, evictErr := w.evictor.Evict(ctx, w.backend)
		if w.onEvict != nil {
			w.onEvict(report)
		}
		if evictErr != nil {
			w.logger.Error("eviction failed", "backend", w.backend.Name(), "error", evictErr)
		}
	}

	return fmt.Errorf("%s: %d attempts: %w", w.backend.Name(), maxRetries, lastErr)
}
