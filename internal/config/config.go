// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults for every setting
//  2. Config File: optional YAML file (CONFIG_PATH, or config.yaml)
//  3. Environment Variables: explicit mappings, see envTransformFunc
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Guest      GuestConfig      `koanf:"guest"`
	Store      StoreConfig      `koanf:"store"`
	Database   DatabaseConfig   `koanf:"database"`
	Breaker    BreakerConfig    `koanf:"breaker"`
	ChangeFeed ChangeFeedConfig `koanf:"changefeed"`
	Security   SecurityConfig   `koanf:"security"`
	Audit      AuditConfig      `koanf:"audit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// PublicURL is the externally visible base URL, used to build the
	// websocket address remote guests dial. Defaults to http://host:port.
	PublicURL string `koanf:"public_url"`

	// Environment is development, staging or production.
	Environment string `koanf:"environment"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// GuestConfig holds limits applied to every embedded game.
type GuestConfig struct {
	// GameURL is the default game address when an embed request names none.
	GameURL string `koanf:"game_url"`
	Width   int    `koanf:"width"`
	Height  int    `koanf:"height"`

	// HostOrigin is the origin the host posts from.
	HostOrigin string `koanf:"host_origin"`

	// ScoreTimeout bounds one score write. Keep it below the guest SDK's
	// five second request timeout.
	ScoreTimeout time.Duration `koanf:"score_timeout"`

	// RateLimit is inbound guest messages per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// RestartMode is reload (re-create the embedding) or signal (only send
	// RESTART_GAME).
	RestartMode string `koanf:"restart_mode"`
}

// StoreConfig holds the session store settings.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// DatabaseConfig holds the score database settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()

	// LeaderboardCacheTTL keeps leaderboard and rank results; 0 disables
	// the cache.
	LeaderboardCacheTTL time.Duration `koanf:"leaderboard_cache_ttl"`
}

// BreakerConfig holds the score store circuit breaker settings.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
	Timeout             time.Duration `koanf:"timeout"`
	MaxRequests         uint32        `koanf:"max_requests"`
}

// Change feed backends.
const (
	FeedBackendGoChannel = "gochannel"
	FeedBackendNATS      = "nats"
)

// ChangeFeedConfig selects how row changes and multiplayer relay traffic
// travel between managers.
type ChangeFeedConfig struct {
	// Backend is gochannel (single process) or nats.
	Backend string `koanf:"backend"`

	NATSURL       string        `koanf:"nats_url"`
	ClientName    string        `koanf:"client_name"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// EmbeddedServer starts a NATS server in-process; NATSURL is then
	// ignored.
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedHost   string `koanf:"embedded_host"`
	EmbeddedPort   int    `koanf:"embedded_port"`
}

// AuditConfig controls the audit trail of embed and session control
// requests.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BufferSize      int           `koanf:"buffer_size"`
	Retention       time.Duration `koanf:"retention"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	LogToStdout     bool          `koanf:"log_to_stdout"`
}

// SecurityConfig holds authentication and request limiting settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// Load reads configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
