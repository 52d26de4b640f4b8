// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateGuest,
		c.validateStore,
		c.validateDatabase,
		c.validateBreaker,
		c.validateChangeFeed,
		c.validateSecurity,
		c.validateAudit,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.PublicURL != "" {
		u, err := url.Parse(c.Server.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("PUBLIC_URL must be an absolute http(s) URL")
		}
	}
	return nil
}

// Guest limits.
const (
	maxGuestDimension = 8192
	maxScoreTimeout   = 5 * time.Second // the guest SDK gives up after five seconds
)

func (c *Config) validateGuest() error {
	g := c.Guest
	if g.Width < 1 || g.Width > maxGuestDimension || g.Height < 1 || g.Height > maxGuestDimension {
		return fmt.Errorf("GUEST_WIDTH and GUEST_HEIGHT must be between 1 and %d", maxGuestDimension)
	}
	if g.HostOrigin == "" {
		return fmt.Errorf("GUEST_HOST_ORIGIN is required")
	}
	if g.ScoreTimeout <= 0 || g.ScoreTimeout >= maxScoreTimeout {
		return fmt.Errorf("GUEST_SCORE_TIMEOUT must be positive and below %v", maxScoreTimeout)
	}
	if g.RateLimit < 0 {
		return fmt.Errorf("GUEST_RATE_LIMIT must not be negative")
	}
	if g.RateLimit > 0 && g.RateBurst < 1 {
		return fmt.Errorf("GUEST_RATE_BURST must be at least 1 when rate limiting is enabled")
	}
	switch g.RestartMode {
	case "reload", "signal":
	default:
		return fmt.Errorf("GUEST_RESTART_MODE must be one of: reload, signal")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required (use :memory: for a throwaway database)")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	if c.Database.LeaderboardCacheTTL < 0 {
		return fmt.Errorf("LEADERBOARD_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if c.Breaker.ConsecutiveFailures < 1 {
		return fmt.Errorf("BREAKER_FAILURES must be at least 1")
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be positive")
	}
	if c.Breaker.MaxRequests < 1 {
		return fmt.Errorf("BREAKER_MAX_REQUESTS must be at least 1")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	if c.Audit.Retention < 0 {
		return fmt.Errorf("AUDIT_RETENTION must not be negative")
	}
	if c.Audit.CleanupInterval <= 0 {
		return fmt.Errorf("AUDIT_CLEANUP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateChangeFeed() error {
	switch c.ChangeFeed.Backend {
	case FeedBackendGoChannel:
		return nil
	case FeedBackendNATS:
	default:
		return fmt.Errorf("CHANGEFEED_BACKEND must be one of: %s, %s", FeedBackendGoChannel, FeedBackendNATS)
	}
	if c.ChangeFeed.EmbeddedServer {
		if c.ChangeFeed.EmbeddedPort < -1 || c.ChangeFeed.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be -1 (random) or between 0 and 65535")
		}
		return nil
	}
	if !strings.HasPrefix(c.ChangeFeed.NATSURL, "nats://") && !strings.HasPrefix(c.ChangeFeed.NATSURL, "tls://") {
		return fmt.Errorf("NATS_URL must start with nats:// or tls://")
	}
	return nil
}

// Rate limit bounds.
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour

	minJWTSecretLength = 32
)

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateJWTSecret requires a strong secret in production. Development
// may leave it empty; the server then signs with a random per-process
// secret.
func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	if secret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required when ENVIRONMENT=production")
		}
		return nil
	}
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters for security", minJWTSecretLength)
	}
	if containsPlaceholder(secret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateCORS rejects wildcard origins in production, where bearer
// tokens would otherwise be usable from any page.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com,https://app.yourdomain.com")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard CORS setting worth logging at
// startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// IsProduction reports ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment reports ENVIRONMENT=development or unset.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns catch secrets copied from an example file.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// PublicBaseURL returns the configured public URL, or one derived from the
// listen address.
func (c *Config) PublicBaseURL() string {
	if c.Server.PublicURL != "" {
		return strings.TrimRight(c.Server.PublicURL, "/")
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// GuestSocketURL returns the ws(s) URL prefix remote guests dial.
func (c *Config) GuestSocketURL() string {
	base := c.PublicBaseURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/guest"
}
