// Package connection talks to a running bookcache-server.
//
//   - http.go: thin HTTP client and response envelope decoding
//   - remote.go: RemoteCache, the cache operations over the HTTP API
//
// RemoteCache has the same method set as the storage manager, so CLI
// commands run unchanged against a local tier set or a remote server.
package connection
