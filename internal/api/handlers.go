// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/gamebridge/internal/audit"
	"github.com/tomtom215/gamebridge/internal/config"
	"github.com/tomtom215/gamebridge/internal/host"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/lobby"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/websocket"
)

// ScoreReader is the leaderboard surface of the score database.
type ScoreReader interface {
	GameLeaderboard(ctx context.Context, gameID string, limit int) ([]models.LeaderboardEntry, error)
	UserRank(ctx context.Context, gameID, userID string) (*models.UserRank, error)
	UserScores(ctx context.Context, userID, gameID string, limit int) ([]models.GameScore, error)
}

// HealthCheck probes one dependency. A nil return means healthy.
type HealthCheck func(ctx context.Context) error

// Deps are the components the handlers serve.
type Deps struct {
	Lobby    *lobby.Service
	Scores   ScoreReader
	Registry *host.Registry
	Hub      *websocket.Hub
	Gateway  *websocket.Gateway
	JWT      *identity.JWTManager

	// Audit records control requests. Optional.
	Audit *audit.Logger

	// Checks are run by the readiness endpoint, keyed by component name.
	Checks map[string]HealthCheck
}

// Handler implements the HTTP API.
type Handler struct {
	lobby    *lobby.Service
	scores   ScoreReader
	registry *host.Registry
	hub      *websocket.Hub
	gateway  *websocket.Gateway
	jwt      *identity.JWTManager
	audit    *audit.Logger
	checks   map[string]HealthCheck

	config    *config.Config
	startTime time.Time
}

// NewHandler creates a handler. Lobby, Scores, Registry, Hub and Gateway
// are required.
func NewHandler(cfg *config.Config, deps Deps) (*Handler, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("api: config is required")
	case deps.Lobby == nil:
		return nil, errors.New("api: lobby service is required")
	case deps.Scores == nil:
		return nil, errors.New("api: score reader is required")
	case deps.Registry == nil:
		return nil, errors.New("api: embed registry is required")
	case deps.Hub == nil || deps.Gateway == nil:
		return nil, errors.New("api: websocket hub and gateway are required")
	}
	checks := deps.Checks
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &Handler{
		lobby:     deps.Lobby,
		scores:    deps.Scores,
		registry:  deps.Registry,
		hub:       deps.Hub,
		gateway:   deps.Gateway,
		jwt:       deps.JWT,
		audit:     deps.Audit,
		checks:    checks,
		config:    cfg,
		startTime: time.Now(),
	}, nil
}
