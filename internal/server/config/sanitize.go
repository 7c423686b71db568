package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Storage.Durable.EncryptionKey != "" {
		sanitized.Storage.Durable.EncryptionKey = maskSecret(sanitized.Storage.Durable.EncryptionKey)
	}
	if sanitized.Storage.Durable.Redis.Password != "" {
		sanitized.Storage.Durable.Redis.Password = maskSecret(sanitized.Storage.Durable.Redis.Password)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
