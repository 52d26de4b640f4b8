// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/gamebridge/internal/api"
	"github.com/tomtom215/gamebridge/internal/config"
	"github.com/tomtom215/gamebridge/internal/database"
	"github.com/tomtom215/gamebridge/internal/host"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/lobby"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/store"
	"github.com/tomtom215/gamebridge/internal/supervisor"
	"github.com/tomtom215/gamebridge/internal/supervisor/services"
	ws "github.com/tomtom215/gamebridge/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Gamebridge")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin; set CORS_ORIGINS before exposing this server")
	}

	jwtSecret := cfg.Security.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = randomSecret()
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to generate JWT secret")
		}
		logging.Warn().Msg("JWT_SECRET not set; tokens are signed with a per-process secret and will not survive a restart")
	}

	feed, err := InitChangeFeed(cfg.ChangeFeed)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize change feed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		feed.Shutdown(ctx)
	}()

	st, err := store.Open(store.Options{
		Dir:        cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	}, feed.Feed)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	logging.Info().Bool("in_memory", cfg.Store.InMemory).Str("path", cfg.Store.Path).Msg("Session store ready")

	db, err := database.New(database.Config{
		Path:      cfg.Database.Path,
		Threads:   cfg.Database.Threads,
		MaxMemory: cfg.Database.MaxMemory,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open score database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing score database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Score database ready")

	auditLogger, err := InitAudit(context.Background(), cfg.Audit, db.Conn())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize audit trail")
	}
	if auditLogger != nil {
		// Registered after the database so queued events drain first.
		defer func() {
			if err := auditLogger.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing audit logger")
			}
		}()
	}

	// Scores flow host -> breaker -> leaderboard cache -> DuckDB; the API
	// reads through the cache.
	var scoreBackend database.ScoreBackend = db
	if ttl := cfg.Database.LeaderboardCacheTTL; ttl > 0 {
		cached := database.NewCachedScores(db, ttl)
		defer cached.Close()
		scoreBackend = cached
	}
	scores := database.NewBreakerScoreStore(scoreBackend, breakerConfig(cfg.Breaker))
	lobbySvc := lobby.NewService(st, feed.Feed)

	jwtManager, err := identity.NewJWTManager(jwtSecret, cfg.Security.JWTIssuer, cfg.Security.SessionTimeout)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JWT manager")
	}

	hub := ws.NewHub()
	gateway := ws.NewGateway(ws.GatewayConfig{
		BaseURL:        cfg.GuestSocketURL(),
		AllowedOrigins: cfg.Security.CORSOrigins,
	})

	registry := host.NewRegistry(host.Deps{
		Embedder: gateway,
		Scores:   scores,
		Sessions: lobbySvc,
		Relay:    feed.Feed,
	}, guestBaseConfig(cfg.Guest))

	handler, err := api.NewHandler(cfg, api.Deps{
		Lobby:    lobbySvc,
		Scores:   scoreBackend,
		Registry: registry,
		Hub:      hub,
		Gateway:  gateway,
		JWT:      jwtManager,
		Audit:    auditLogger,
		Checks: map[string]api.HealthCheck{
			"store": func(ctx context.Context) error {
				return st.View(ctx, func(store.Tx) error { return nil })
			},
			"database": db.Ping,
			"score_breaker": func(context.Context) error {
				if state := scores.State(); state == "open" {
					return fmt.Errorf("circuit %s", state)
				}
				return nil
			},
			"changefeed": feed.Healthy,
		},
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create API handler")
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)))

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if feed.Server != nil {
		tree.AddDataService(services.NewNATSServerService(feed.Server, cfg.Server.ShutdownTimeout))
	}
	if auditLogger != nil {
		tree.AddDataService(auditLogger)
	}
	tree.AddMessagingService(hub)
	tree.AddMessagingService(ws.NewFeedSubscriber(hub, feed.Feed))
	tree.AddMessagingService(services.NewEmbedRegistryService(registry))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	watchConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Unstopped service")
		}
	}

	logging.Info().Int("embeds", registry.Len()).Msg("Server stopped")
}

// watchConfig reapplies the log level when the config file changes. Other
// settings need a restart.
func watchConfig() {
	path := config.FindConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		next, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		logging.SetLevelString(next.Logging.Level)
		logging.Info().Str("level", next.Logging.Level).Msg("Config file changed, log level reapplied")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch disabled")
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
