// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolateEnv unsets every variable the loader reads and restores them when
// the test ends.
func isolateEnv(t *testing.T) {
	t.Helper()
	keys := []string{ConfigPathEnvVar}
	for k := range envMappings {
		keys = append(keys, strings.ToUpper(k))
	}
	for _, k := range keys {
		if old, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { _ = os.Setenv(k, old) })
			if err := os.Unsetenv(k); err != nil {
				t.Fatalf("unset %s: %v", k, err)
			}
		}
	}
}

// writeConfigFile writes a YAML config and points CONFIG_PATH at it.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Guest.Width != 800 || cfg.Guest.Height != 600 {
		t.Errorf("Guest size = %dx%d, want 800x600", cfg.Guest.Width, cfg.Guest.Height)
	}
	if cfg.Guest.ScoreTimeout != 4*time.Second {
		t.Errorf("Guest.ScoreTimeout = %v, want 4s", cfg.Guest.ScoreTimeout)
	}
	if cfg.Guest.RestartMode != "reload" {
		t.Errorf("Guest.RestartMode = %q, want reload", cfg.Guest.RestartMode)
	}
	if cfg.ChangeFeed.Backend != FeedBackendGoChannel {
		t.Errorf("ChangeFeed.Backend = %q, want %q", cfg.ChangeFeed.Backend, FeedBackendGoChannel)
	}
	if cfg.Breaker.ConsecutiveFailures != 5 {
		t.Errorf("Breaker.ConsecutiveFailures = %d, want 5", cfg.Breaker.ConsecutiveFailures)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"http_port", "server.port"},
		{"GUEST_RESTART_MODE", "guest.restart_mode"},
		{"NATS_URL", "changefeed.nats_url"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"AUDIT_RETENTION", "audit.retention"},
		{"PATH", ""},
		{"SOMETHING_ELSE", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	isolateEnv(t)

	t.Run("no file", func(t *testing.T) {
		if got := FindConfigFile(); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})

	t.Run("env path", func(t *testing.T) {
		path := writeConfigFile(t, "server:\n  port: 9000\n")
		if got := FindConfigFile(); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("missing env path", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
		if got := FindConfigFile(); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	isolateEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GUEST_SCORE_TIMEOUT", "2s")
	t.Setenv("GUEST_RATE_LIMIT", "12.5")
	t.Setenv("STORE_IN_MEMORY", "true")
	t.Setenv("CHANGEFEED_BACKEND", "nats")
	t.Setenv("NATS_EMBEDDED", "true")
	t.Setenv("NATS_EMBEDDED_PORT", "-1")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Guest.ScoreTimeout != 2*time.Second {
		t.Errorf("Guest.ScoreTimeout = %v, want 2s", cfg.Guest.ScoreTimeout)
	}
	if cfg.Guest.RateLimit != 12.5 {
		t.Errorf("Guest.RateLimit = %v, want 12.5", cfg.Guest.RateLimit)
	}
	if !cfg.Store.InMemory {
		t.Error("Store.InMemory = false, want true")
	}
	if cfg.ChangeFeed.Backend != FeedBackendNATS || !cfg.ChangeFeed.EmbeddedServer || cfg.ChangeFeed.EmbeddedPort != -1 {
		t.Errorf("ChangeFeed = %+v", cfg.ChangeFeed)
	}

	// Unset values keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Database.MaxMemory != "512MB" {
		t.Errorf("Database.MaxMemory = %q, want 512MB (default)", cfg.Database.MaxMemory)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	isolateEnv(t)
	writeConfigFile(t, `
server:
  port: 8888
  host: "127.0.0.1"

guest:
  game_url: "https://games.local/pong/"
  width: 1024

logging:
  level: "warn"
`)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8888 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server = %s, want 127.0.0.1:8888", cfg.Server.Addr())
	}
	if cfg.Guest.GameURL != "https://games.local/pong/" {
		t.Errorf("Guest.GameURL = %q", cfg.Guest.GameURL)
	}
	if cfg.Guest.Width != 1024 || cfg.Guest.Height != 600 {
		t.Errorf("Guest size = %dx%d, want 1024x600", cfg.Guest.Width, cfg.Guest.Height)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/data/scores.duckdb" {
		t.Errorf("Database.Path = %q, want /data/scores.duckdb (default)", cfg.Database.Path)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	writeConfigFile(t, `
server:
  port: 8888
logging:
  level: "warn"
`)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DUCKDB_PATH", "/custom/scores.duckdb")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (from file)", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/custom/scores.duckdb" {
		t.Errorf("Database.Path = %q, want /custom/scores.duckdb (env override)", cfg.Database.Path)
	}
}

func TestLoadWithKoanfSliceFields(t *testing.T) {
	isolateEnv(t)
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,,")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "bad port",
			envVars: map[string]string{"HTTP_PORT": "70000"},
			errMsg:  "HTTP_PORT",
		},
		{
			name:    "unknown restart mode",
			envVars: map[string]string{"GUEST_RESTART_MODE": "hard"},
			errMsg:  "GUEST_RESTART_MODE",
		},
		{
			name:    "score timeout too long",
			envVars: map[string]string{"GUEST_SCORE_TIMEOUT": "5s"},
			errMsg:  "GUEST_SCORE_TIMEOUT",
		},
		{
			name: "production without secret",
			envVars: map[string]string{
				"ENVIRONMENT":  "production",
				"CORS_ORIGINS": "https://app.example",
			},
			errMsg: "JWT_SECRET is required",
		},
		{
			name:    "unknown backend",
			envVars: map[string]string{"CHANGEFEED_BACKEND": "kafka"},
			errMsg:  "CHANGEFEED_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestWatchConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 4)
	if err := WatchConfigFile(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("WatchConfigFile() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}
