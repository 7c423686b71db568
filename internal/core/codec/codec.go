package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/bookcache/internal/core/domain"
)

// Codec encodes and decodes envelopes.
//
// Codec is stateless apart from its clock and safe for concurrent use.
type Codec struct {
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the time source used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a new Codec.
func New(opts ...Option) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncodeOptions controls envelope creation.
type EncodeOptions struct {
	// Expiry is the lifetime of the entry. Zero means domain.DefaultExpiry.
	Expiry time.Duration
}

// wireEnvelope mirrors domain.Envelope with a pointer header so a missing
// "metadata" object can be told apart from an empty one.
type wireEnvelope struct {
	Metadata *domain.Metadata `json:"metadata"`
	Data     json.RawMessage  `json:"data"`
}

// Encode wraps payload into a fresh envelope.
//
// It fails only when payload cannot be serialized to JSON.
func (c *Codec) Encode(payload any, dataType string, opts EncodeOptions) (*domain.Envelope, error) {
	if dataType == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("data type is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.ErrSerialization.WithCause(err)
	}

	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = domain.DefaultExpiry
	}

	now := c.now()
	return c.build(data, dataType, now, now.Add(expiry))
}

// EncodeRaw wraps an already serialized payload into a fresh envelope that
// expires at expiresAt.
func (c *Codec) EncodeRaw(data json.RawMessage, dataType string, expiresAt time.Time) (*domain.Envelope, error) {
	compacted, err := compact(data)
	if err != nil {
		return nil, domain.ErrSerialization.WithCause(err)
	}

	now := c.now()
	if !expiresAt.After(now) {
		return nil, domain.ErrExpired
	}
	return c.build(compacted, dataType, now, expiresAt)
}

func (c *Codec) build(data []byte, dataType string, now, expiresAt time.Time) (*domain.Envelope, error) {
	id, err := domain.GenerateEnvelopeID(now)
	if err != nil {
		return nil, err
	}

	createdAt := now.UnixMilli()
	expiresAtMs := expiresAt.UnixMilli()
	if expiresAtMs <= createdAt {
		expiresAtMs = createdAt + 1
	}

	return &domain.Envelope{
		Metadata: domain.Metadata{
			ID:        id,
			Version:   domain.EnvelopeVersion,
			Timestamp: createdAt,
			ExpiresAt: expiresAtMs,
			Checksum:  Checksum(data),
			DataType:  dataType,
		},
		Data: data,
	}, nil
}

// Marshal serializes an envelope into its stored form.
func (c *Codec) Marshal(env *domain.Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, domain.ErrSerialization.WithCause(err)
	}
	return raw, nil
}

// Decode parses and validates a stored envelope.
//
// When expectedDataType is non-empty the envelope's data type must match it.
// Checks run in order: parse, structure, expiry, type, checksum.
func (c *Codec) Decode(raw []byte, expectedDataType string) (*domain.Envelope, error) {
	w, err := parse(raw)
	if err != nil {
		return nil, err
	}

	if w.Metadata.IsExpired(c.now()) {
		return nil, domain.ErrExpired
	}

	if expectedDataType != "" && w.Metadata.DataType != expectedDataType {
		return nil, domain.ErrTypeMismatch.WithMessage(fmt.Sprintf(
			"Data type mismatch: expected %s, got %s", expectedDataType, w.Metadata.DataType))
	}

	data, err := compact(w.Data)
	if err != nil {
		return nil, domain.ErrParseFailure.WithCause(err)
	}
	if Checksum(data) != w.Metadata.Checksum {
		return nil, domain.ErrChecksumMismatch.WithDetails("envelope " + w.Metadata.ID)
	}

	return &domain.Envelope{Metadata: *w.Metadata, Data: data}, nil
}

// Inspect parses only the envelope header. It does not verify the checksum
// or expiry; eviction and stats use it to classify entries cheaply.
func (c *Codec) Inspect(raw []byte) (*domain.Metadata, error) {
	w, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return w.Metadata, nil
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

func parse(raw []byte) (*wireEnvelope, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, domain.ErrParseFailure.WithDetails("empty value")
	}

	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, domain.ErrParseFailure.WithCause(err)
	}

	if w.Metadata == nil {
		return nil, domain.ErrStructureInvalid.WithDetails("missing metadata")
	}
	if !w.Metadata.Complete() {
		return nil, domain.ErrStructureInvalid.WithDetails("incomplete metadata")
	}
	if len(w.Data) == 0 {
		return nil, domain.ErrStructureInvalid.WithDetails("missing data")
	}
	if w.Metadata.ExpiresAt <= w.Metadata.Timestamp {
		return nil, domain.ErrStructureInvalid.WithDetails("expiresAt not after timestamp")
	}

	return &w, nil
}

// Checksum returns the hex murmur3 hash of a serialized payload.
func Checksum(data []byte) string {
	return fmt.Sprintf("%08x", murmur3.Sum32(data))
}

func compact(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
