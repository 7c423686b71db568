package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// minEncryptionKeyLength matches storage.MinSealKeyLength.
const minEncryptionKeyLength = 16

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err)
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.New("server.http.rate_limit must not be negative")
	}
	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateBurst < 1 {
		return errors.New("server.http.rate_burst must be at least 1 when rate limiting is enabled")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and server.http.tls_key_file must be set together")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DefaultExpiry <= 0 {
		return errors.New("storage.default_expiry must be positive")
	}
	if cfg.RetryAttempts < 1 {
		return errors.New("storage.retry_attempts must be at least 1")
	}
	if cfg.EvictionThreshold < 1 {
		return errors.New("storage.eviction_threshold must be at least 1")
	}
	if cfg.Volatile.CapacityBytes <= 0 {
		return errors.New("storage.volatile.capacity_bytes must be positive")
	}
	if cfg.Durable.CapacityBytes <= 0 {
		return errors.New("storage.durable.capacity_bytes must be positive")
	}
	if key := cfg.Durable.EncryptionKey; key != "" && len(key) < minEncryptionKeyLength {
		return fmt.Errorf("storage.durable.encryption_key must be at least %d bytes", minEncryptionKeyLength)
	}

	switch strings.ToLower(cfg.Durable.Driver) {
	case DriverBadger:
		if cfg.Durable.Badger.InMemory {
			return nil
		}
		if cfg.Durable.Badger.Dir == "" {
			return errors.New("storage.durable.badger.dir is required")
		}
		if err := os.MkdirAll(cfg.Durable.Badger.Dir, 0750); err != nil {
			return errors.New("cannot create badger directory: " + err.Error())
		}
	case DriverRedis:
		if cfg.Durable.Redis.Addr == "" {
			return errors.New("storage.durable.redis.addr is required")
		}
		if cfg.Durable.Redis.DB < 0 {
			return errors.New("storage.durable.redis.db must not be negative")
		}
		if (cfg.Durable.Redis.CertFile == "") != (cfg.Durable.Redis.KeyFile == "") {
			return errors.New("storage.durable.redis.cert_file and storage.durable.redis.key_file must be set together")
		}
		if !cfg.Durable.Redis.TLS && (cfg.Durable.Redis.CAFile != "" || cfg.Durable.Redis.CertFile != "") {
			return errors.New("storage.durable.redis.tls must be enabled to use ca_file or cert_file")
		}
	default:
		return fmt.Errorf("storage.durable.driver %q: must be %q or %q", cfg.Durable.Driver, DriverBadger, DriverRedis)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q: must be json or text", cfg.Format)
	}
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", cfg.Level)
	}
	return nil
}
