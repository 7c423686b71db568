package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yndnr/bookcache/internal/infra/confloader"
)

// KeyPair holds a certificate and key loaded from disk.
// It is safe for concurrent use by TLS handshakes.
type KeyPair struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// NewKeyPair loads certFile and keyFile. A nil logger uses slog.Default().
func NewKeyPair(certFile, keyFile string, logger *slog.Logger) (*KeyPair, error) {
	if logger == nil {
		logger = slog.Default()
	}
	kp := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
	}
	if err := kp.Reload(); err != nil {
		return nil, err
	}
	return kp, nil
}

// Reload reads the files again. On failure the previous pair stays in use.
func (kp *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}

	kp.mu.Lock()
	kp.cert = &cert
	kp.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (kp *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert, nil
}

// GetClientCertificate implements tls.Config.GetClientCertificate.
func (kp *KeyPair) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert, nil
}

// ServerConfig returns a TLS 1.2+ server config serving this pair.
func (kp *KeyPair) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: kp.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// Watch reloads the pair whenever either file changes. The caller must
// Stop the returned watcher.
func (kp *KeyPair) Watch() (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(kp.logger))
	if err != nil {
		return nil, err
	}
	for _, path := range []string{kp.certFile, kp.keyFile} {
		if err := w.Watch(path); err != nil {
			_ = w.Stop()
			return nil, err
		}
	}

	w.OnChange(func(path string) {
		if err := kp.Reload(); err != nil {
			// A rotation writes two files; the first event may see a
			// mismatched pair. The second event reloads cleanly.
			kp.logger.Warn("certificate reload failed", "file", path, "error", err)
			return
		}
		kp.logger.Info("certificate reloaded", "cert_file", kp.certFile)
	})
	w.StartAsync()
	return w, nil
}
