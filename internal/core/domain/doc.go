// Package domain defines the core domain models for bookcache.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Envelope: the metadata + payload record persisted under a key
//   - Tier: identifies the volatile and durable storage tiers
//   - Errors: classified failures with structured error codes
//
// Encoding and validation of envelopes lives in internal/core/codec.
package domain
