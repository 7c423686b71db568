// Package buildinfo exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//
// The Go version and module version fall back to runtime/debug when the
// ldflags were not set.
//
// Usage:
//
//	go build -ldflags "-X github.com/yndnr/bookcache/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
