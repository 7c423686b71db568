// Package tlsroots loads trust roots and key pairs for bookcache's TLS
// endpoints.
//
//   - roots.go: CA pools and client configs for outbound connections
//   - keypair.go: a certificate/key pair that reloads when its files change
//
// The HTTP API uses KeyPair so certificates can be rotated without a
// restart. The redis durable tier uses ClientConfig.
package tlsroots
