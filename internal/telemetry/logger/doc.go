// Package logger provides structured logging for bookcache.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, handler setup, dynamic level
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Payload and secret redaction
//
// Storage internals take a *slog.Logger directly; use Slog to obtain one
// that shares the handler, level and redaction rules of a Logger.
package logger
