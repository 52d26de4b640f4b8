// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/gamebridge/internal/changefeed"
	"github.com/tomtom215/gamebridge/internal/config"
	"github.com/tomtom215/gamebridge/internal/logging"
)

// FeedComponents holds the change feed and, when configured, the NATS
// server running inside this process.
type FeedComponents struct {
	Feed   *changefeed.Feed
	Server *changefeed.EmbeddedServer
}

// InitChangeFeed builds the change feed selected by cfg.Backend.
func InitChangeFeed(cfg config.ChangeFeedConfig) (*FeedComponents, error) {
	switch cfg.Backend {
	case config.FeedBackendGoChannel, "":
		logging.Info().Msg("Change feed: in-process channels")
		return &FeedComponents{Feed: changefeed.NewGoChannel()}, nil

	case config.FeedBackendNATS:
		components := &FeedComponents{}
		url := cfg.NATSURL

		if cfg.EmbeddedServer {
			srv, err := changefeed.NewEmbeddedServer(changefeed.ServerConfig{
				Host:         cfg.EmbeddedHost,
				Port:         cfg.EmbeddedPort,
				ReadyTimeout: 10 * time.Second,
			})
			if err != nil {
				return nil, fmt.Errorf("start embedded NATS server: %w", err)
			}
			components.Server = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		} else {
			logging.Info().Str("url", url).Msg("Using external NATS server")
		}

		natsCfg := changefeed.DefaultNATSConfig()
		natsCfg.URL = url
		if cfg.ClientName != "" {
			natsCfg.ClientName = cfg.ClientName
		}
		if cfg.ReconnectWait > 0 {
			natsCfg.ReconnectWait = cfg.ReconnectWait
		}

		feed, err := changefeed.NewNATS(natsCfg)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("connect change feed: %w", err)
		}
		components.Feed = feed
		return components, nil

	default:
		return nil, fmt.Errorf("unknown change feed backend %q", cfg.Backend)
	}
}

// Shutdown closes the feed before the server it may be connected to.
func (c *FeedComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Feed != nil {
		if err := c.Feed.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing change feed")
		}
	}
	if c.Server != nil && c.Server.IsRunning() {
		if err := c.Server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}

// Healthy reports whether the embedded server, if any, is still running.
func (c *FeedComponents) Healthy(context.Context) error {
	if c.Server != nil && !c.Server.IsRunning() {
		return fmt.Errorf("embedded NATS server stopped")
	}
	return nil
}
