// Package codec wraps caller payloads into envelopes and validates them on read.
//
// An envelope carries an id, schema version, creation and expiry timestamps,
// the caller's logical data type and a murmur3 checksum of the compact JSON
// payload. The checksum detects accidental corruption only; it is not a
// tamper-evidence mechanism.
//
// Decode classifies every unusable entry into one of the envelope errors in
// internal/core/domain so callers can purge it and fall through.
package codec
