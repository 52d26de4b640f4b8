// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package services

import (
	"context"

	"github.com/tomtom215/gamebridge/internal/logging"
)

// EmbedCloser is the subset of *host.Registry the service needs.
type EmbedCloser interface {
	Len() int
	CloseAll()
}

// EmbedRegistryService ties the lifetime of every live embedding to the
// supervisor. On cancellation it closes them all, which drops each guest
// channel and releases multiplayer subscriptions.
type EmbedRegistryService struct {
	registry EmbedCloser
	name     string
}

// NewEmbedRegistryService wraps registry.
func NewEmbedRegistryService(registry EmbedCloser) *EmbedRegistryService {
	return &EmbedRegistryService{registry: registry, name: "embed-registry"}
}

// Serve implements suture.Service.
func (s *EmbedRegistryService) Serve(ctx context.Context) error {
	<-ctx.Done()
	if n := s.registry.Len(); n > 0 {
		logging.Info().Int("embeds", n).Msg("Closing embedded games")
	}
	s.registry.CloseAll()
	return ctx.Err()
}

func (s *EmbedRegistryService) String() string {
	return s.name
}
