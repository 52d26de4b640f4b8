// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package main

import (
	"golang.org/x/time/rate"

	"github.com/tomtom215/gamebridge/internal/config"
	"github.com/tomtom215/gamebridge/internal/database"
	"github.com/tomtom215/gamebridge/internal/host"
)

// guestBaseConfig converts the guest section into the registry's base
// embed configuration. Zero values keep the host defaults.
func guestBaseConfig(g config.GuestConfig) host.Config {
	base := host.DefaultConfig()
	base.GameURL = g.GameURL
	if g.Width > 0 {
		base.Width = g.Width
	}
	if g.Height > 0 {
		base.Height = g.Height
	}
	if g.HostOrigin != "" {
		base.HostOrigin = g.HostOrigin
	}
	if g.ScoreTimeout > 0 {
		base.ScoreTimeout = g.ScoreTimeout
	}
	base.RateLimit = rate.Limit(g.RateLimit)
	base.RateBurst = g.RateBurst
	base.RestartMode = parseRestartMode(g.RestartMode)
	return base
}

func parseRestartMode(s string) host.RestartMode {
	if s == "signal" {
		return host.RestartSignal
	}
	return host.RestartReload
}

func breakerConfig(b config.BreakerConfig) database.BreakerConfig {
	cfg := database.DefaultBreakerConfig()
	if b.ConsecutiveFailures > 0 {
		cfg.ConsecutiveFailures = b.ConsecutiveFailures
	}
	if b.Timeout > 0 {
		cfg.Timeout = b.Timeout
	}
	if b.MaxRequests > 0 {
		cfg.MaxRequests = b.MaxRequests
	}
	return cfg
}
