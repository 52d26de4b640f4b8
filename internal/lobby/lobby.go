// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
)

// BrowseLimit is how many waiting sessions Refresh lists.
const BrowseLimit = 10

// ErrWrongState is returned when a Lobby action does not apply to its
// current State.
var ErrWrongState = errors.New("lobby: action not available in current state")

// State is where a user is in the lobby flow.
type State int

const (
	// StateBrowsing lists waiting sessions of one game.
	StateBrowsing State = iota
	// StateInSession means the user hosts or has joined a waiting session.
	StateInSession
	// StateInProgress means the session's game has started.
	StateInProgress
)

func (s State) String() string {
	switch s {
	case StateBrowsing:
		return "browsing"
	case StateInSession:
		return "in_session"
	case StateInProgress:
		return "in_progress"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// GameStartFunc is called once when the user's session starts playing.
type GameStartFunc func(sessionID string, players []models.GamePlayer)

// Lobby is one user's view of the multiplayer lobby for one game:
// browsing -> in session -> in progress. It keeps its session and roster
// current through Service subscriptions.
type Lobby struct {
	svc         *Service
	gameID      string
	onGameStart GameStartFunc

	mu        sync.Mutex
	state     State
	available []models.GameSession
	session   *models.GameSession
	players   []models.GamePlayer
	isHost    bool
	started   bool
	unsubs    []func()
}

// NewLobby returns a Lobby in StateBrowsing. onGameStart may be nil.
func NewLobby(svc *Service, gameID string, onGameStart GameStartFunc) *Lobby {
	return &Lobby{svc: svc, gameID: gameID, onGameStart: onGameStart}
}

// State returns the current state.
func (l *Lobby) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Available returns the sessions listed by the last Refresh.
func (l *Lobby) Available() []models.GameSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.GameSession(nil), l.available...)
}

// Session returns the current session, if any.
func (l *Lobby) Session() (models.GameSession, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return models.GameSession{}, false
	}
	return *l.session, true
}

// Players returns the current roster.
func (l *Lobby) Players() []models.GamePlayer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.GamePlayer(nil), l.players...)
}

// IsHost reports whether the user hosts the current session.
func (l *Lobby) IsHost() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHost
}

// Refresh lists waiting sessions for the game.
func (l *Lobby) Refresh(ctx context.Context) error {
	sessions, err := l.svc.ListSessions(ctx, models.SessionFilter{
		GameID: l.gameID,
		Status: models.SessionWaiting,
		Limit:  BrowseLimit,
	})
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.available = sessions
	l.mu.Unlock()
	return nil
}

// Create hosts a new session.
func (l *Lobby) Create(ctx context.Context, maxPlayers int) error {
	if l.State() != StateBrowsing {
		return ErrWrongState
	}
	session, err := l.svc.CreateSession(ctx, l.gameID, maxPlayers, nil)
	if err != nil {
		return err
	}
	return l.enter(ctx, session, true)
}

// Join joins a waiting session.
func (l *Lobby) Join(ctx context.Context, sessionID string) error {
	if l.State() != StateBrowsing {
		return ErrWrongState
	}
	player, err := l.svc.JoinSession(ctx, sessionID, nil)
	if err != nil {
		return err
	}
	session, err := l.svc.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return l.enter(ctx, session, session.HostID == player.UserID)
}

func (l *Lobby) enter(ctx context.Context, session *models.GameSession, isHost bool) error {
	players, err := l.svc.SessionPlayers(ctx, session.ID)
	if err != nil {
		return err
	}

	// Subscriptions outlive the request that created them.
	subCtx := context.WithoutCancel(ctx)
	unsubSession, err := l.svc.SubscribeToSession(subCtx, session.ID, l.onSession)
	if err != nil {
		return err
	}
	unsubPlayers, err := l.svc.SubscribeToSessionPlayers(subCtx, session.ID, l.onPlayers)
	if err != nil {
		unsubSession()
		return err
	}

	l.mu.Lock()
	l.state = StateInSession
	l.session = session
	l.players = players
	l.isHost = isHost
	l.started = false
	l.unsubs = []func(){unsubSession, unsubPlayers}
	l.mu.Unlock()
	return nil
}

// Leave leaves the current session and returns to browsing.
func (l *Lobby) Leave(ctx context.Context) error {
	l.mu.Lock()
	session := l.session
	l.mu.Unlock()
	if session == nil {
		return ErrWrongState
	}
	if err := l.svc.LeaveSession(ctx, session.ID); err != nil {
		return err
	}
	l.reset()
	if err := l.Refresh(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to refresh sessions after leaving")
	}
	return nil
}

// ToggleReady flips the user's status between waiting and ready.
func (l *Lobby) ToggleReady(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateInSession {
		l.mu.Unlock()
		return ErrWrongState
	}
	sessionID := l.session.ID
	uid := identity.UserID(ctx)
	next := models.PlayerReady
	for _, p := range l.players {
		if p.UserID == uid && p.Status == models.PlayerReady {
			next = models.PlayerWaiting
		}
	}
	l.mu.Unlock()

	player, err := l.svc.UpdatePlayerStatus(ctx, sessionID, next, nil)
	if err != nil {
		return err
	}
	l.applyPlayer(*player)
	return nil
}

// Start starts the game. Only the host may start, and only when CanStart
// accepts the roster.
func (l *Lobby) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateInSession || !l.isHost {
		l.mu.Unlock()
		return ErrWrongState
	}
	sessionID := l.session.ID
	l.mu.Unlock()

	session, err := l.svc.StartGame(ctx, sessionID)
	if err != nil {
		return err
	}
	l.onSession(*session)
	return nil
}

// Close drops subscriptions without leaving the session.
func (l *Lobby) Close() {
	l.mu.Lock()
	unsubs := l.unsubs
	l.unsubs = nil
	l.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

func (l *Lobby) reset() {
	l.Close()
	l.mu.Lock()
	l.state = StateBrowsing
	l.session = nil
	l.players = nil
	l.isHost = false
	l.started = false
	l.mu.Unlock()
}

func (l *Lobby) onSession(session models.GameSession) {
	l.mu.Lock()
	if l.session == nil || l.session.ID != session.ID {
		l.mu.Unlock()
		return
	}
	l.session = &session

	switch session.Status {
	case models.SessionCompleted:
		l.mu.Unlock()
		l.reset()
		return
	case models.SessionPlaying:
		l.state = StateInProgress
		if l.started {
			l.mu.Unlock()
			return
		}
		l.started = true
		players := append([]models.GamePlayer(nil), l.players...)
		fn := l.onGameStart
		l.mu.Unlock()
		if fn != nil {
			fn(session.ID, players)
		}
		return
	}
	l.mu.Unlock()
}

func (l *Lobby) onPlayers(players []models.GamePlayer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil || (len(players) > 0 && players[0].SessionID != l.session.ID) {
		return
	}
	l.players = players
}

func (l *Lobby) applyPlayer(p models.GamePlayer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.players {
		if l.players[i].UserID == p.UserID {
			l.players[i] = p
			return
		}
	}
}
