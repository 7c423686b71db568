// Package service provides the StorageManager facade.
//
// StorageManager is the only entry point callers use. It serializes
// operations per key, wraps payloads into checksummed envelopes, writes
// them to every tier, reads with fallback from the volatile tier to the
// durable one, repairs the volatile tier after a fallback hit and frees
// capacity with eviction when a tier is full.
//
// Expected failures (missing, expired, corrupt or mistyped entries, full
// tiers) are reported through result values, never as panics or errors to
// unwind. Unexpected failures are caught at the facade boundary.
package service
