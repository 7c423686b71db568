// Package domain defines the core domain models for bookcache.
package domain

import (
	"crypto/rand"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Envelope constraints.
const (
	// EnvelopeVersion is the schema version written into every envelope.
	EnvelopeVersion = "1.0"

	// EnvelopeIDPrefix is the prefix for envelope IDs.
	EnvelopeIDPrefix = "env-"

	// DefaultExpiry is applied when the caller does not pick one.
	DefaultExpiry = 30 * time.Minute
)

// Tier identifies one of the two storage tiers.
type Tier string

const (
	// TierVolatile is cleared when the owning session ends.
	TierVolatile Tier = "volatile"

	// TierDurable survives restarts until cleared or expired.
	TierDurable Tier = "durable"
)

// Tiers lists the tiers in read order.
var Tiers = []Tier{TierVolatile, TierDurable}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// Metadata is the envelope header.
//
// Timestamps are Unix milliseconds.
type Metadata struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
	ExpiresAt int64  `json:"expiresAt"`
	Checksum  string `json:"checksum"`
	DataType  string `json:"dataType"`
}

// Envelope is the only persisted unit: metadata plus the caller payload.
type Envelope struct {
	Metadata Metadata        `json:"metadata"`
	Data     json.RawMessage `json:"data"`
}

// IsExpired reports whether the envelope is expired at now.
func (m *Metadata) IsExpired(now time.Time) bool {
	return now.UnixMilli() >= m.ExpiresAt
}

// Complete reports whether every required header field is present.
func (m *Metadata) Complete() bool {
	return m.ID != "" &&
		m.Version != "" &&
		m.Timestamp > 0 &&
		m.ExpiresAt > 0 &&
		m.Checksum != "" &&
		m.DataType != ""
}

// CreatedAt returns the creation time.
func (m *Metadata) CreatedAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Expiry returns the absolute expiry time.
func (m *Metadata) Expiry() time.Time {
	return time.UnixMilli(m.ExpiresAt)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// GenerateEnvelopeID generates a new envelope ID using ULID.
// Format: env-{ulid_lowercase}.
func GenerateEnvelopeID(now time.Time) (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return EnvelopeIDPrefix + strings.ToLower(id.String()), nil
}
