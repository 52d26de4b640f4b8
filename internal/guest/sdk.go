// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package guest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gamebridge/internal/channel"
	"github.com/tomtom215/gamebridge/internal/eventbus"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// DefaultRequestTimeout bounds every request/reply exchange.
const DefaultRequestTimeout = 5 * time.Second

// Local event names. Every inbound message is additionally emitted under its
// protocol type name with the raw payload.
const (
	EventPause               = "pause"
	EventResume              = "resume"
	EventRestart             = "restart"
	EventScoreSaved          = "scoreSaved"
	EventScoreError          = "scoreError"
	EventPlayersUpdated      = "playersUpdated"
	EventPlayerJoined        = "playerJoined"
	EventPlayerLeft          = "playerLeft"
	EventPlayerStatusChanged = "playerStatusChanged"
)

var (
	// ErrTimeout is returned when the host does not answer in time.
	ErrTimeout = errors.New("guest: request timed out")

	// ErrClosed is returned by requests issued after Close.
	ErrClosed = errors.New("guest: sdk closed")

	// ErrNotMultiplayer is returned by multiplayer operations in single
	// player mode.
	ErrNotMultiplayer = errors.New("guest: not in multiplayer mode")

	// ErrUnexpectedReply is returned when the host answers with the wrong type.
	ErrUnexpectedReply = errors.New("guest: unexpected reply type")
)

// MultiplayerEventName is the local event a relayed multiplayer event of the
// given type is emitted under.
func MultiplayerEventName(eventType string) string {
	return "multiplayer:" + eventType
}

// ReceivedEvent is the payload of a multiplayer:<type> local event.
type ReceivedEvent struct {
	SenderID  string
	Data      json.RawMessage
	Timestamp int64
}

// State is the SDK lifecycle position.
type State int32

const (
	StateUninitialized State = iota
	StateAwaitingIdentity
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingIdentity:
		return "awaiting-identity"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Config describes the embedding the SDK runs in.
type Config struct {
	GameID string

	// HostOrigin is the only sender the SDK accepts messages from.
	HostOrigin string

	IsMultiplayer bool
	SessionID     string

	// RequestTimeout defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// SDK is the game's handle on its host.
//
// New announces GAME_READY, then asks for the viewer's identity. Every
// request carries a correlation id, and its reply is matched by that id, so
// concurrent requests of the same type never steal each other's answers.
// A request the host never answers fails with ErrTimeout after
// Config.RequestTimeout.
//
// Host commands (PAUSE_GAME, RESUME_GAME, RESTART_GAME) and roster changes
// are re-emitted on the local event bus. Listeners run synchronously on the
// channel's dispatch loop in registration order. USER_INFO and
// SESSION_PLAYERS are applied before the waiting caller or any listener
// sees them.
//
// An SDK is safe for concurrent use. Close fails requests in flight with
// ErrClosed.
type SDK struct {
	cfg      Config
	ch       channel.Channel
	bus      *eventbus.Bus
	unlisten func()
	logger   zerolog.Logger
	state    atomic.Int32

	mu            sync.RWMutex
	userID        string
	authenticated bool
	players       []protocol.Player

	pendingMu sync.Mutex
	pending   map[string]chan protocol.Message

	closed    chan struct{}
	closeOnce sync.Once

	now func() time.Time
}

// New connects a game to its host over ch. It announces readiness, then
// waits up to the request timeout for the viewer's identity; a host that
// never answers leaves the SDK ready but unauthenticated. The returned error
// only reports an unusable configuration.
func New(ctx context.Context, ch channel.Channel, cfg Config) (*SDK, error) {
	if ch == nil {
		return nil, errors.New("guest: nil channel")
	}
	if cfg.GameID == "" {
		return nil, errors.New("guest: game id is required")
	}
	if cfg.HostOrigin == "" {
		return nil, errors.New("guest: host origin is required")
	}
	if cfg.IsMultiplayer && cfg.SessionID == "" {
		return nil, errors.New("guest: multiplayer mode needs a session id")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	s := &SDK{
		cfg:     cfg,
		ch:      ch,
		bus:     eventbus.New(),
		pending: make(map[string]chan protocol.Message),
		closed:  make(chan struct{}),
		now:     time.Now,
		logger: logging.WithComponent("guest").With().
			Str("game_id", cfg.GameID).
			Str("session_id", cfg.SessionID).
			Logger(),
	}

	s.unlisten = ch.Listen(cfg.HostOrigin, s.handleMessage)
	s.state.Store(int32(StateAwaitingIdentity))

	if err := s.post(protocol.TypeGameReady, protocol.GameReady{
		GameID:        cfg.GameID,
		IsMultiplayer: cfg.IsMultiplayer,
		SessionID:     cfg.SessionID,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("could not announce readiness")
	}

	if _, err := s.GetUserInfo(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("identity unavailable, continuing unauthenticated")
	}
	s.state.Store(int32(StateReady))

	if cfg.IsMultiplayer {
		if _, err := s.GetSessionPlayers(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("initial roster unavailable")
		}
	}

	return s, nil
}

// State reports the lifecycle position.
func (s *SDK) State() State {
	return State(s.state.Load())
}

// UserID returns the viewer's id, or "" when unauthenticated.
func (s *SDK) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// IsAuthenticated reports whether the host vouched for a user.
func (s *SDK) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// IsMultiplayerMode reports whether the SDK was configured for a session.
func (s *SDK) IsMultiplayerMode() bool {
	return s.cfg.IsMultiplayer
}

// GameID returns the configured game id.
func (s *SDK) GameID() string {
	return s.cfg.GameID
}

// On registers fn for a local event.
func (s *SDK) On(event string, fn eventbus.Handler) eventbus.Subscription {
	return s.bus.On(event, fn)
}

// Emit invokes local listeners for event synchronously.
func (s *SDK) Emit(event string, data interface{}) {
	s.bus.Emit(event, data)
}

// Bus exposes the local event bus for typed registrations via eventbus.On.
func (s *SDK) Bus() *eventbus.Bus {
	return s.bus
}

// GetUserInfo asks the host who the viewer is. It fails with ErrTimeout when
// no answer arrives within the request timeout.
func (s *SDK) GetUserInfo(ctx context.Context) (protocol.UserInfo, error) {
	var info protocol.UserInfo
	reply, err := s.request(ctx, protocol.TypeGetUserInfo, nil)
	if err != nil {
		return info, err
	}
	if reply.Type != protocol.TypeUserInfo {
		return info, ErrUnexpectedReply
	}
	if err := reply.Decode(&info); err != nil {
		return info, err
	}
	s.setIdentity(info)
	return info, nil
}

// SaveScore submits score for the current user. It reports false without
// contacting the host when unauthenticated, and false on SCORE_ERROR or
// timeout. In multiplayer mode the player's status becomes playing with the
// new score.
func (s *SDK) SaveScore(ctx context.Context, score float64, metadata map[string]interface{}) bool {
	if !s.IsAuthenticated() {
		s.logger.Warn().Msg("score not saved: user is not authenticated")
		return false
	}

	c, err := s.send(protocol.TypeSaveScore, protocol.SaveScore{
		Score:    score,
		GameID:   s.cfg.GameID,
		UserID:   s.UserID(),
		Metadata: metadata,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("score not sent")
		return false
	}

	if s.cfg.IsMultiplayer {
		if err := s.UpdateStatus(models.PlayerPlaying, &score); err != nil {
			s.logger.Warn().Err(err).Msg("status update after score failed")
		}
	}

	reply, err := c.wait(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Float64("score", score).Msg("score save unconfirmed")
		return false
	}
	switch reply.Type {
	case protocol.TypeScoreSaved:
		var saved protocol.ScoreSaved
		if err := reply.Decode(&saved); err != nil {
			return false
		}
		return saved.Success
	case protocol.TypeScoreError:
		var se protocol.ScoreError
		_ = reply.Decode(&se)
		s.logger.Warn().Str("error", se.Error).Msg("host rejected score")
		return false
	default:
		return false
	}
}

// PauseGame notifies local listeners and, in multiplayer mode, marks the
// player as waiting.
func (s *SDK) PauseGame() {
	s.Emit(EventPause, nil)
	if s.cfg.IsMultiplayer {
		if err := s.UpdateStatus(models.PlayerWaiting, nil); err != nil {
			s.logger.Debug().Err(err).Msg("pause status not sent")
		}
	}
}

// ResumeGame notifies local listeners and, in multiplayer mode, marks the
// player as playing.
func (s *SDK) ResumeGame() {
	s.Emit(EventResume, nil)
	if s.cfg.IsMultiplayer {
		if err := s.UpdateStatus(models.PlayerPlaying, nil); err != nil {
			s.logger.Debug().Err(err).Msg("resume status not sent")
		}
	}
}

// EndGame saves the final score, then reports GAME_OVER whatever the save
// outcome. In multiplayer mode the player is marked ready with the final
// score. saved reports the score save result; err only reports a failure to
// post GAME_OVER.
func (s *SDK) EndGame(ctx context.Context, finalScore float64, metadata map[string]interface{}) (saved bool, err error) {
	saved = s.SaveScore(ctx, finalScore, metadata)

	if err := s.post(protocol.TypeGameOver, protocol.GameOver{Score: finalScore, Metadata: metadata}); err != nil {
		return saved, err
	}

	if s.cfg.IsMultiplayer {
		if err := s.UpdateStatus(models.PlayerReady, &finalScore); err != nil {
			s.logger.Warn().Err(err).Msg("final status not sent")
		}
	}
	return saved, nil
}

// Close detaches the SDK from its channel. Requests in flight fail with
// ErrClosed. Safe to call more than once.
func (s *SDK) Close() error {
	s.closeOnce.Do(func() {
		if s.unlisten != nil {
			s.unlisten()
		}
		close(s.closed)
		s.bus.Clear()
	})
	return nil
}

func (s *SDK) post(t protocol.Type, payload interface{}) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	msg, err := protocol.New(t, payload)
	if err != nil {
		return err
	}
	return s.ch.Post(msg)
}

func (s *SDK) setIdentity(info protocol.UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info.IsAuthenticated && info.ID != nil && *info.ID != "" {
		s.userID = *info.ID
		s.authenticated = true
		return
	}
	s.userID = ""
	s.authenticated = false
}

// handleMessage runs on the channel's dispatch loop. State carried by a reply
// is applied before the waiting caller is released, so a caller that returns
// from GetUserInfo or GetSessionPlayers never observes the previous state.
func (s *SDK) handleMessage(msg protocol.Message) {
	var rosterApplied bool
	switch msg.Type {
	case protocol.TypeUserInfo:
		var info protocol.UserInfo
		if err := msg.Decode(&info); err != nil {
			s.logger.Debug().Err(err).Msg("malformed USER_INFO ignored")
		} else {
			s.setIdentity(info)
		}
	case protocol.TypeSessionPlayers:
		var sp protocol.SessionPlayers
		if err := msg.Decode(&sp); err != nil {
			s.logger.Debug().Err(err).Msg("malformed SESSION_PLAYERS ignored")
		} else {
			s.setRoster(sp.Players)
			rosterApplied = true
		}
	}

	if msg.IsReply() {
		s.resolve(msg)
	}

	s.bus.Emit(string(msg.Type), msg.Data)

	switch msg.Type {
	case protocol.TypePauseGame:
		s.bus.Emit(EventPause, nil)
	case protocol.TypeResumeGame:
		s.bus.Emit(EventResume, nil)
	case protocol.TypeRestartGame:
		s.bus.Emit(EventRestart, nil)
	case protocol.TypeScoreSaved:
		s.bus.Emit(EventScoreSaved, nil)
	case protocol.TypeScoreError:
		var se protocol.ScoreError
		_ = msg.Decode(&se)
		s.bus.Emit(EventScoreError, se.Error)
	case protocol.TypeSessionPlayers:
		if rosterApplied {
			s.bus.Emit(EventPlayersUpdated, s.Players())
		}
	case protocol.TypePlayerJoined:
		var pj protocol.PlayerJoined
		if err := msg.Decode(&pj); err != nil {
			return
		}
		s.addPlayer(pj.Player)
	case protocol.TypePlayerLeft:
		var pl protocol.PlayerLeft
		if err := msg.Decode(&pl); err != nil {
			return
		}
		s.removePlayer(pl.PlayerID)
	case protocol.TypePlayerStatusChanged:
		var pc protocol.PlayerStatusChanged
		if err := msg.Decode(&pc); err != nil {
			return
		}
		s.applyStatus(pc.PlayerID, pc.Status, pc.Score)
	case protocol.TypeMultiplayerEvent:
		var ev protocol.MultiplayerEvent
		if err := msg.Decode(&ev); err != nil {
			return
		}
		s.receiveMultiplayerEvent(ev)
	}
}
