package adaptive

import "fmt"

// Algorithm tags written in front of framed ciphertexts. Never renumber.
const (
	tagAESGCM   byte = 1
	tagChaCha20 byte = 2
)

var tags = map[CipherType]byte{
	CipherAESGCM:   tagAESGCM,
	CipherChaCha20: tagChaCha20,
}

// Framed seals with one algorithm and opens with whichever one the
// ciphertext's tag names.
type Framed struct {
	seal Cipher
	tag  byte
	open map[byte]Cipher
}

// NewFramed creates a Framed cipher that seals with the preferred algorithm.
func NewFramed(key []byte) (*Framed, error) {
	return NewFramedWithType(key, Preferred())
}

// NewFramedWithType creates a Framed cipher that seals with t.
func NewFramedWithType(key []byte, t CipherType) (*Framed, error) {
	f := &Framed{open: make(map[byte]Cipher, len(tags))}
	for ct, tag := range tags {
		c, err := NewWithType(key, ct)
		if err != nil {
			return nil, err
		}
		f.open[tag] = c
	}

	tag, ok := tags[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, t)
	}
	f.seal, f.tag = f.open[tag], tag
	return f, nil
}

var _ Cipher = (*Framed)(nil)

// Type returns the sealing algorithm.
func (f *Framed) Type() CipherType {
	return f.seal.Type()
}

// Overhead includes the tag byte.
func (f *Framed) Overhead() int {
	return 1 + f.seal.Overhead()
}

// Encrypt seals plaintext and prefixes the algorithm tag.
func (f *Framed) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	sealed, err := f.seal.Encrypt(plaintext, additionalData)
	if err != nil {
		return nil, err
	}
	return append([]byte{f.tag}, sealed...), nil
}

// Decrypt opens a ciphertext produced by any Framed cipher with the same key.
func (f *Framed) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < 1 {
		return nil, ErrCiphertextTooShort
	}
	c, ok := f.open[ciphertext[0]]
	if !ok {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownCipher, ciphertext[0])
	}
	return c.Decrypt(ciphertext[1:], additionalData)
}
