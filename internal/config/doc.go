// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package config loads and validates Gamebridge configuration.

# Configuration Sources

Configuration is layered with Koanf v2, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, else config.yaml in the working
    directory, else /etc/gamebridge/config.yaml
 3. Environment variables, mapped explicitly (see envMappings)

# Configuration Structure

  - ServerConfig: listen address, timeouts, public URL, environment
  - LoggingConfig: zerolog level, format and caller output
  - GuestConfig: default game URL, frame size, host origin, score timeout,
    inbound rate limit and restart mode applied to every embedding
  - StoreConfig: Badger session store location
  - DatabaseConfig: DuckDB score database
  - BreakerConfig: circuit breaker around score writes
  - ChangeFeedConfig: gochannel or NATS transport for row changes and
    multiplayer relay, optionally with an embedded NATS server
  - SecurityConfig: JWT signing, API rate limits and CORS

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT (default 0.0.0.0:8080)
  - HTTP_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
  - PUBLIC_URL: base URL remote guests dial
  - ENVIRONMENT: development, staging or production

Guest:
  - GUEST_GAME_URL, GUEST_WIDTH, GUEST_HEIGHT, GUEST_HOST_ORIGIN
  - GUEST_SCORE_TIMEOUT: must stay below five seconds
  - GUEST_RATE_LIMIT, GUEST_RATE_BURST: inbound messages per second
  - GUEST_RESTART_MODE: reload or signal

Storage:
  - STORE_PATH, STORE_IN_MEMORY, STORE_SYNC_WRITES
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS, LEADERBOARD_CACHE_TTL
  - BREAKER_FAILURES, BREAKER_TIMEOUT, BREAKER_MAX_REQUESTS

Change feed:
  - CHANGEFEED_BACKEND: gochannel or nats
  - NATS_URL, NATS_CLIENT_NAME, NATS_RECONNECT_WAIT
  - NATS_EMBEDDED, NATS_EMBEDDED_HOST, NATS_EMBEDDED_PORT

Security:
  - JWT_SECRET (32+ characters, required in production), JWT_ISSUER
  - SESSION_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - CORS_ORIGINS: comma-separated; wildcard rejected in production

Audit:
  - AUDIT_ENABLED, AUDIT_BUFFER_SIZE, AUDIT_LOG_TO_STDOUT
  - AUDIT_RETENTION (0 keeps events forever), AUDIT_CLEANUP_INTERVAL

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal().Err(err).Msg("invalid configuration")
	}
	srv := &http.Server{Addr: cfg.Server.Addr()}

WatchConfigFile reports edits to the loaded file so the log level can be
changed without a restart.

# Thread Safety

Config is read-only after Load and safe for concurrent use.
*/
package config
