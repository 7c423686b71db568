package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/yndnr/bookcache/internal/infra/buildinfo"
	"github.com/yndnr/bookcache/internal/infra/shutdown"
	"github.com/yndnr/bookcache/internal/infra/tlsroots"
	"github.com/yndnr/bookcache/internal/server/bootstrap"
	"github.com/yndnr/bookcache/internal/server/config"
	"github.com/yndnr/bookcache/internal/server/httpserver"
	"github.com/yndnr/bookcache/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		addr        = flag.String("addr", "", "HTTP listen address (overrides server.http.addr)")
		logLevel    = flag.String("log-level", "", "Log level (overrides log.level)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bookcache-server %s\n", buildinfo.String())
		return nil
	}

	flags := map[string]any{}
	if *addr != "" {
		flags["server.http.addr"] = *addr
	}
	if *logLevel != "" {
		flags["log.level"] = *logLevel
	}

	cfg, err := bootstrap.LoadConfig(*configFile, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger, err := bootstrap.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting bookcache-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.Global()

	ctx := context.Background()
	tiers, err := bootstrap.OpenTiers(ctx, cfg.Storage, slogLogger, metrics.Registerer())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	manager := bootstrap.NewManager(cfg.Storage, tiers, log, metrics)

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Cache:     manager,
		Logger:    slogLogger,
		Metrics:   metrics,
		RateLimit: cfg.Server.HTTP.RateLimit,
		RateBurst: cfg.Server.HTTP.RateBurst,
	})
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)

	var (
		keyPair   *tlsroots.KeyPair
		tlsConfig *tls.Config
	)
	if cfg.Server.HTTP.TLSCertFile != "" {
		keyPair, err = tlsroots.NewKeyPair(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile, slogLogger)
		if err != nil {
			_ = tiers.Close()
			return fmt.Errorf("load TLS key pair: %w", err)
		}
		tlsConfig = keyPair.ServerConfig()
	}

	ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
	if err != nil {
		_ = tiers.Close()
		return fmt.Errorf("listen %s: %w", cfg.Server.HTTP.Addr, err)
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, shutdown.WithLogger(slogLogger))

	// Hooks run in reverse order: HTTP first, then storage.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		if n := manager.Pending(); n > 0 {
			log.Warn("closing storage with writes in flight", "pending", n)
		}
		return tiers.Close()
	})
	shutdownHandler.OnShutdown("http", httpServer.Shutdown)

	if *configFile != "" {
		watcher, err := bootstrap.WatchLogLevel(*configFile, flags, slogLogger)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if keyPair != nil {
		certWatcher, err := keyPair.Watch()
		if err != nil {
			log.Warn("certificate reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("cert-watcher", func(context.Context) error {
				return certWatcher.Stop()
			})
		}
	}

	go func() {
		log.Info("HTTP server listening", "addr", ln.Addr().String(), "tls", tlsConfig != nil)

		var err error
		if tlsConfig != nil {
			err = httpServer.ServeTLS(ln, tlsConfig)
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil {
			log.Error("HTTP server error", "error", err)
			_ = shutdownHandler.Shutdown()
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}
