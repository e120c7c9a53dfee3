// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/logscope/internal/api"
	"github.com/tomtom215/logscope/internal/audit"
	"github.com/tomtom215/logscope/internal/auth"
	"github.com/tomtom215/logscope/internal/catalog"
	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/geoip"
	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/middleware"
	"github.com/tomtom215/logscope/internal/natsquery"
	"github.com/tomtom215/logscope/internal/query"
	"github.com/tomtom215/logscope/internal/snapshot"
	"github.com/tomtom215/logscope/internal/source"
	"github.com/tomtom215/logscope/internal/supervisor"
	"github.com/tomtom215/logscope/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("source", cfg.Source.Kind).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting Logscope")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Logscope stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("build source: %w", err)
	}
	defer closeLogged("source", src.Close)

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.Source.Timeout)
	if err := src.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Str("source", src.Name()).Msg("Log store not reachable yet (will retry on load)")
	}
	pingCancel()

	var persist *snapshot.BadgerStore
	if cfg.Snapshot.PersistPath != "" {
		persist, err = snapshot.OpenBadger(cfg.Snapshot.PersistPath, cfg.Snapshot.PersistTTL)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer closeLogged("snapshot persistence", persist.Close)
		logging.Info().Str("path", cfg.Snapshot.PersistPath).Msg("Snapshot persistence enabled")
	}

	store := snapshot.NewStore(src, persist, cfg.Snapshot, cfg.Source.Timeout)
	defer store.Close()

	geo := geoip.New(cfg.GeoIP.DatabasePath)
	defer closeLogged("geoip", geo.Close)

	labels := catalog.IPLabels(cfg.Dashboard.IPLabels)
	logging.Info().Strs("ip_labels", labels.Names()).Msg("Client labels loaded")

	svc := query.NewService(store, catalog.Default(), cfg.Dashboard, geo, cfg.Snapshot.ResultCacheTTL)
	defer svc.Close()

	authMW, err := auth.NewMiddleware(cfg.Security)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	warnInsecure(cfg)

	perfMon := middleware.NewPerformanceMonitor(1000, time.Second)
	auditLog := audit.NewLogger(audit.NewMemoryStore(5000), audit.DefaultConfig())
	defer closeLogged("audit", auditLog.Close)

	handler := api.NewHandler(svc, store, authMW, perfMon, version)
	handler.SetAuditLogger(auditLog)
	router := api.NewRouter(handler, authMW, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	refresher := snapshot.NewRefresher(store, cfg.Snapshot.RefreshInterval)
	tree.AddDataService(services.NewRunnerService("snapshot-refresher", refresher.Run))
	tree.AddDataService(services.NewRunnerService("audit-retention", auditLog.Run))

	if cfg.NATS.Enabled {
		natsCfg := cfg.NATS
		if natsCfg.Embedded {
			embedded, err := natsquery.NewEmbeddedServer(natsCfg.URL)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := embedded.Shutdown(shutdownCtx); err != nil {
					logging.Warn().Err(err).Msg("Embedded NATS server shutdown failed")
				}
			}()
			natsCfg.URL = embedded.ClientURL()
			logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
		}

		nc, err := natsquery.Connect(natsCfg)
		if err != nil {
			return err
		}
		defer drainLogged(nc)
		tree.AddMessagingService(natsquery.NewResponder(nc, svc, natsCfg))
		logging.Info().Str("url", natsCfg.URL).Str("prefix", natsCfg.SubjectPrefix).Msg("NATS query responder added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = err
		}
		cancel()
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return serveErr
}

func warnInsecure(cfg *config.Config) {
	switch cfg.Security.AuthMode {
	case config.AuthNone:
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  Anyone who can reach this port can read the access logs.")
		logging.Warn().Msg("============================================================")
	case config.AuthBasic:
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" && cfg.Security.AuthMode != config.AuthNone {
			logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*) while authentication is enabled")
			break
		}
	}
}

func closeLogged(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Error during close")
	}
}

func drainLogged(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		logging.Warn().Err(err).Msg("NATS drain failed")
		nc.Close()
	}
}
