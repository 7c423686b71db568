// Package adaptive provides AEAD ciphers for sealing stored values.
//
// New picks AES-256-GCM on architectures with hardware AES support and
// ChaCha20-Poly1305 elsewhere. NewFramed prefixes every ciphertext with a
// one-byte algorithm tag, so data sealed on one host opens on another that
// prefers a different algorithm, as long as the key is the same.
//
//	c, err := adaptive.NewFramed(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
