// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/models"
)

// BreakerConfig configures BreakerScoreStore.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerConfig returns the production settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "score-store",
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		MaxRequests:         1,
	}
}

// BreakerScoreStore guards a ScoreStore with a circuit breaker. While open,
// InsertScore fails fast with ErrUnavailable. ErrInvalidScore and context
// cancellation do not count as failures.
type BreakerScoreStore struct {
	next ScoreStore
	cb   *gobreaker.CircuitBreaker[*models.GameScore]
	name string
}

// NewBreakerScoreStore wraps next.
func NewBreakerScoreStore(next ScoreStore, cfg BreakerConfig) *BreakerScoreStore {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	threshold := cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[*models.GameScore](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures < threshold {
				return false
			}
			logging.Warn().Uint32("failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening score store circuit")
			return true
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrInvalidScore) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerScoreStore{next: next, cb: cb, name: cfg.Name}
}

// InsertScore forwards to the wrapped store unless the circuit is open.
func (b *BreakerScoreStore) InsertScore(ctx context.Context, userID, gameID string, score float64, metadata map[string]interface{}) (*models.GameScore, error) {
	gs, err := b.cb.Execute(func() (*models.GameScore, error) {
		return b.next.InsertScore(ctx, userID, gameID, score, metadata)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return gs, nil
}

// State reports the circuit state: "closed", "half-open" or "open".
func (b *BreakerScoreStore) State() string {
	return stateToString(b.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
