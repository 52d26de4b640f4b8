// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/gamebridge/config.yaml",
	"/etc/gamebridge/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. File and environment values
// are layered on top.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Guest: GuestConfig{
			Width:        800,
			Height:       600,
			HostOrigin:   "host",
			ScoreTimeout: 4 * time.Second,
			RateLimit:    50,
			RateBurst:    100,
			RestartMode:  "reload",
		},
		Store: StoreConfig{
			Path:       "/data/sessions",
			InMemory:   false,
			SyncWrites: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/scores.duckdb",
			MaxMemory: "512MB",
			Threads:   0,

			LeaderboardCacheTTL: 10 * time.Second,
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: 5,
			Timeout:             30 * time.Second,
			MaxRequests:         1,
		},
		ChangeFeed: ChangeFeedConfig{
			Backend:        FeedBackendGoChannel,
			NATSURL:        "nats://127.0.0.1:4222",
			ClientName:     "gamebridge",
			ReconnectWait:  2 * time.Second,
			EmbeddedServer: false,
			EmbeddedHost:   "127.0.0.1",
			EmbeddedPort:   4222,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			JWTIssuer:         "gamebridge",
			SessionTimeout:    24 * time.Hour,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Audit: AuditConfig{
			Enabled:         true,
			BufferSize:      1000,
			Retention:       30 * 24 * time.Hour,
			CleanupInterval: time.Hour,
			LogToStdout:     false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers: defaults, the config
// file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := FindConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FindConfigFile returns CONFIG_PATH when it exists, else the first
// existing default path, else "".
func FindConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as a string from
// the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config keys.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"public_url":            "server.public_url",
	"environment":           "server.environment",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"guest_game_url":      "guest.game_url",
	"guest_width":         "guest.width",
	"guest_height":        "guest.height",
	"guest_host_origin":   "guest.host_origin",
	"guest_score_timeout": "guest.score_timeout",
	"guest_rate_limit":    "guest.rate_limit",
	"guest_rate_burst":    "guest.rate_burst",
	"guest_restart_mode":  "guest.restart_mode",

	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_sync_writes": "store.sync_writes",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"leaderboard_cache_ttl": "database.leaderboard_cache_ttl",

	"breaker_failures":     "breaker.consecutive_failures",
	"breaker_timeout":      "breaker.timeout",
	"breaker_max_requests": "breaker.max_requests",

	"changefeed_backend":  "changefeed.backend",
	"nats_url":            "changefeed.nats_url",
	"nats_client_name":    "changefeed.client_name",
	"nats_reconnect_wait": "changefeed.reconnect_wait",
	"nats_embedded":       "changefeed.embedded_server",
	"nats_embedded_host":  "changefeed.embedded_host",
	"nats_embedded_port":  "changefeed.embedded_port",

	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"session_timeout":     "security.session_timeout",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"audit_enabled":          "audit.enabled",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_retention":        "audit.retention",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_log_to_stdout":    "audit.log_to_stdout",
}

// envTransformFunc maps an environment variable to its config key, or ""
// to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever path changes. The caller guards
// any configuration it swaps in.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
