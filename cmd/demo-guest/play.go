// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/gamebridge/internal/guest"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
)

const moveEvent = "move"

type playOptions struct {
	gameID      string
	multiplayer bool
	sessionID   string
	rounds      int
	roundDelay  time.Duration
}

// play is the demo game's entry point. Each round scores round*100; the
// final score is the sum of the rounds played.
func (o playOptions) play(ctx context.Context, sdk *guest.SDK) error {
	log := logging.WithComponent("demo-guest")
	log.Info().
		Str("user_id", sdk.UserID()).
		Bool("authenticated", sdk.IsAuthenticated()).
		Bool("multiplayer", sdk.IsMultiplayerMode()).
		Msg("Game ready")

	var paused atomic.Bool
	var restart atomic.Bool
	sdk.On(guest.EventPause, func(interface{}) { paused.Store(true) })
	sdk.On(guest.EventResume, func(interface{}) { paused.Store(false) })
	sdk.On(guest.EventRestart, func(interface{}) { restart.Store(true) })

	if sdk.IsMultiplayerMode() {
		sdk.On(guest.MultiplayerEventName(moveEvent), func(data interface{}) {
			if ev, ok := data.(guest.ReceivedEvent); ok {
				log.Info().Str("from", ev.SenderID).RawJSON("data", ev.Data).Msg("Opponent moved")
			}
		})
		sdk.On(guest.EventPlayerJoined, func(interface{}) {
			log.Info().Int("players", len(sdk.Players())).Msg("Player joined")
		})
		if err := sdk.UpdateStatus(models.PlayerReady, nil); err != nil {
			return err
		}
	}

	total := 0.0
	for round := 1; round <= o.rounds; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.roundDelay):
		}
		if restart.CompareAndSwap(true, false) {
			log.Info().Msg("Restarting")
			round, total = 1, 0
			continue
		}
		if paused.Load() {
			continue
		}

		score := float64(round * 100)
		total += score
		if !sdk.SaveScore(ctx, score, map[string]interface{}{"round": round}) {
			log.Warn().Int("round", round).Msg("Score not saved")
		}
		if sdk.IsMultiplayerMode() {
			if err := sdk.SendMultiplayerEvent(moveEvent, map[string]interface{}{"round": round, "score": score}); err != nil {
				return err
			}
		}
		round++
	}

	saved, err := sdk.EndGame(ctx, total, map[string]interface{}{"rounds": o.rounds})
	if err != nil {
		return err
	}
	log.Info().Float64("score", total).Bool("saved", saved).Msg("Game over")
	return nil
}
