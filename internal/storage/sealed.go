package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/bookcache/pkg/crypto/adaptive"
)

// MinSealKeyLength is the minimum length of the configured sealing secret.
const MinSealKeyLength = 16

// sealInfo binds derived keys to this use so the same secret can be reused
// elsewhere without producing the same key.
var sealInfo = []byte("bookcache durable tier v1")

// ErrSealKeyTooShort is returned for secrets below MinSealKeyLength.
var ErrSealKeyTooShort = errors.New("storage: sealing key too short (minimum 16 bytes)")

// SealedBackend encrypts values before handing them to the wrapped backend.
//
// The key name is the additional authenticated data, so a value copied to a
// different key fails to open. Values that fail to open are reported as
// ErrValueCorrupt and handled like any other corrupt entry.
type SealedBackend struct {
	Backend
	cipher adaptive.Cipher
}

// NewSealedBackend wraps inner with authenticated encryption.
func NewSealedBackend(inner Backend, cipher adaptive.Cipher) *SealedBackend {
	return &SealedBackend{
		Backend: inner,
		cipher:  cipher,
	}
}

// NewSealedBackendFromSecret derives a 256-bit key from secret with HKDF-SHA256
// and wraps inner with a framed cipher that seals with the platform's
// preferred AEAD.
func NewSealedBackendFromSecret(inner Backend, secret []byte) (*SealedBackend, error) {
	key, err := DeriveSealKey(secret)
	if err != nil {
		return nil, err
	}
	cipher, err := adaptive.NewFramed(key)
	if err != nil {
		return nil, fmt.Errorf("storage: create cipher: %w", err)
	}
	return NewSealedBackend(inner, cipher), nil
}

// DeriveSealKey derives the 32-byte sealing key from a configured secret.
func DeriveSealKey(secret []byte) ([]byte, error) {
	if len(secret) < MinSealKeyLength {
		return nil, ErrSealKeyTooShort
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, sealInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("storage: derive key: %w", err)
	}
	return key, nil
}

// Get implements Backend.
func (s *SealedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.Backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	plain, err := s.cipher.Decrypt(sealed, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValueCorrupt, err)
	}
	return plain, nil
}

// Set implements Backend.
func (s *SealedBackend) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.cipher.Encrypt(value, []byte(key))
	if err != nil {
		return fmt.Errorf("storage: seal value: %w", err)
	}
	return s.Backend.Set(ctx, key, sealed)
}

// Name implements Backend.
func (s *SealedBackend) Name() string {
	return s.Backend.Name() + "+sealed"
}
