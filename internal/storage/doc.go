// Package storage provides the tier backends for bookcache.
//
// This package implements:
//
//   - backend.go: the Backend contract shared by every tier
//   - badger.go: durable tier on Badger
//   - redis.go: durable tier on Redis
//   - sealed.go: at-rest sealing wrapper for a durable tier
//   - eviction.go: frees capacity by removing corrupt, expired, then oldest entries
//   - writer.go: tier writes with bounded retry and eviction on capacity errors
//
// The volatile tier lives in storage/memory; storage/storagetest provides a
// fault-injecting fake for tests.
package storage
