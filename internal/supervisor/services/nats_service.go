// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/gamebridge/internal/logging"
)

// NATSServer is the lifecycle subset of *changefeed.EmbeddedServer.
type NATSServer interface {
	ClientURL() string
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// ErrNATSServerStopped is returned when the embedded server exits while
// the service is still supposed to run.
var ErrNATSServerStopped = errors.New("embedded NATS server stopped")

// NATSServerService owns an already started embedded NATS server. It polls
// the server while running and shuts it down on cancellation.
//
// A stopped server cannot be restarted in place; every later start returns
// ErrNATSServerStopped and the supervisor backs off.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	pollInterval    time.Duration
	name            string
}

// NewNATSServerService wraps server. A non-positive shutdownTimeout means
// ten seconds.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		pollInterval:    time.Second,
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if !s.server.IsRunning() {
		return ErrNATSServerStopped
	}
	logging.Info().Str("url", s.server.ClientURL()).Msg("Embedded NATS server supervised")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS server shutdown incomplete")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return ErrNATSServerStopped
			}
		}
	}
}

func (s *NATSServerService) String() string {
	return s.name
}
