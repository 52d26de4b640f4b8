// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// Dispatch results reported to metrics.
const (
	resultOK          = "ok"
	resultError       = "error"
	resultIgnored     = "ignored"
	resultRateLimited = "rate_limited"
)

// Guest-visible score error messages. Store details stay in the host log.
const (
	scoreErrUnauthenticated = "not authenticated"
	scoreErrFailed          = "failed to save score"
	scoreErrRateLimited     = "too many requests"
)

type handlerFunc func(ctx context.Context, embedding Embedding, msg protocol.Message) string

func (m *Manager) handlers() map[protocol.Type]handlerFunc {
	return map[protocol.Type]handlerFunc{
		protocol.TypeGameReady:            m.handleGameReady,
		protocol.TypeGetUserInfo:          m.handleGetUserInfo,
		protocol.TypeSaveScore:            m.handleSaveScore,
		protocol.TypeGameOver:             m.handleGameOver,
		protocol.TypeGetSessionPlayers:    m.handleGetSessionPlayers,
		protocol.TypeUpdatePlayerStatus:   m.handleUpdatePlayerStatus,
		protocol.TypeSendMultiplayerEvent: m.handleSendMultiplayerEvent,
	}
}

// handle runs on the embedding's dispatch loop, one message at a time.
func (m *Manager) handle(embedding Embedding, msg protocol.Message) {
	if m.State() == StateClosed {
		return
	}
	ctx := m.ctx
	if msg.ID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, msg.ID)
	} else {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	if m.limiter != nil && !m.limiter.Allow() {
		metrics.RecordHostMessage(string(msg.Type), resultRateLimited)
		logging.Ctx(ctx).Debug().Str("type", string(msg.Type)).Msg("guest message rate limited")
		if msg.Type == protocol.TypeSaveScore {
			m.reply(ctx, embedding, msg, protocol.TypeScoreError, protocol.ScoreError{Error: scoreErrRateLimited})
		}
		return
	}

	fn, ok := m.dispatch[msg.Type]
	if !ok {
		metrics.RecordHostMessage(string(msg.Type), resultIgnored)
		logging.Ctx(ctx).Debug().Str("type", string(msg.Type)).Msg("unknown guest message ignored")
		return
	}
	metrics.RecordHostMessage(string(msg.Type), fn(ctx, embedding, msg))
}

// reply answers msg on the embedding it came from.
func (m *Manager) reply(ctx context.Context, embedding Embedding, req protocol.Message, t protocol.Type, payload interface{}) {
	msg, err := req.Reply(t, payload)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("type", string(t)).Msg("failed to build reply")
		return
	}
	if err := embedding.Channel().Post(msg); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("type", string(t)).Msg("reply not delivered")
	}
}

// send posts an unsolicited message on embedding.
func (m *Manager) send(ctx context.Context, embedding Embedding, t protocol.Type, payload interface{}) {
	msg, err := protocol.New(t, payload)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("type", string(t)).Msg("failed to build message")
		return
	}
	if err := embedding.Channel().Post(msg); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("type", string(t)).Msg("message not delivered")
	}
}

func (m *Manager) handleGameReady(ctx context.Context, _ Embedding, msg protocol.Message) string {
	var ready protocol.GameReady
	if err := msg.Decode(&ready); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("malformed GAME_READY")
	}
	m.setState(StateReady)
	logging.Ctx(ctx).Info().Bool("multiplayer", ready.IsMultiplayer).Msg("game ready")
	if m.cb.OnGameReady != nil {
		m.cb.OnGameReady()
	}
	return resultOK
}

func (m *Manager) handleGetUserInfo(ctx context.Context, embedding Embedding, msg protocol.Message) string {
	info := protocol.AnonymousUser()
	if m.authed {
		info = protocol.AuthenticatedUser(m.ident.UserID)
	}
	m.reply(ctx, embedding, msg, protocol.TypeUserInfo, info)
	return resultOK
}

func (m *Manager) handleSaveScore(ctx context.Context, embedding Embedding, msg protocol.Message) string {
	var req protocol.SaveScore
	if err := msg.Decode(&req); err != nil {
		m.reply(ctx, embedding, msg, protocol.TypeScoreError, protocol.ScoreError{Error: "malformed score"})
		metrics.RecordScoreSave("failed")
		return resultError
	}
	if !m.authed {
		m.reply(ctx, embedding, msg, protocol.TypeScoreError, protocol.ScoreError{Error: scoreErrUnauthenticated})
		metrics.RecordScoreSave("unauthenticated")
		return resultError
	}
	if req.GameID != "" && req.GameID != m.cfg.GameID {
		logging.Ctx(ctx).Warn().Str("claimed_game_id", req.GameID).Msg("guest claimed a different game id, using the embedded game")
	}

	saveCtx, cancel := context.WithTimeout(ctx, m.cfg.ScoreTimeout)
	defer cancel()
	score, err := m.deps.Scores.InsertScore(saveCtx, m.ident.UserID, m.cfg.GameID, req.Score, req.Metadata)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Float64("score", req.Score).Msg("failed to save score")
		m.reply(ctx, embedding, msg, protocol.TypeScoreError, protocol.ScoreError{Error: scoreErrFailed})
		metrics.RecordScoreSave("failed")
		return resultError
	}

	m.reply(ctx, embedding, msg, protocol.TypeScoreSaved, protocol.ScoreSaved{Success: true})
	metrics.RecordScoreSave("saved")
	if m.cb.OnScoreSaved != nil {
		m.cb.OnScoreSaved(*score)
	}
	return resultOK
}

func (m *Manager) handleGameOver(ctx context.Context, _ Embedding, msg protocol.Message) string {
	var over protocol.GameOver
	if err := msg.Decode(&over); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("malformed GAME_OVER ignored")
		return resultError
	}
	logging.Ctx(ctx).Info().Float64("score", over.Score).Msg("game over")
	if m.cb.OnGameOver != nil {
		m.cb.OnGameOver(over)
	}
	return resultOK
}
