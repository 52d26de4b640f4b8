// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/gamebridge/internal/changefeed"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// DefaultHostOrigin identifies the host to in-process guests.
const DefaultHostOrigin = "host"

var (
	// ErrClosed is returned by control operations after Close.
	ErrClosed = errors.New("host: manager closed")

	// ErrNoSessionStore is returned when multiplayer mode is requested
	// without session collaborators.
	ErrNoSessionStore = errors.New("host: multiplayer mode needs a session store and relay")
)

// State is the manager lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// RestartMode selects what RestartGame does after signalling the guest.
type RestartMode int

const (
	// RestartReload recreates the embedding.
	RestartReload RestartMode = iota
	// RestartSignal only posts RESTART_GAME and leaves the guest to reset
	// itself.
	RestartSignal
)

// ScoreStore persists scores.
type ScoreStore interface {
	InsertScore(ctx context.Context, userID, gameID string, score float64, metadata map[string]interface{}) (*models.GameScore, error)
}

// SessionStore is the lobby surface the host uses for multiplayer games.
// Calls carry the viewer's identity in ctx.
type SessionStore interface {
	SessionPlayers(ctx context.Context, sessionID string) ([]models.GamePlayer, error)
	UpdatePlayerStatus(ctx context.Context, sessionID string, status models.PlayerStatus, score *float64) (*models.GamePlayer, error)
	SubscribeToSessionPlayers(ctx context.Context, sessionID string, fn func([]models.GamePlayer)) (func(), error)
}

// Relay fans multiplayer events out to the other embeddings of a session.
type Relay interface {
	PublishRelay(ctx context.Context, sessionID, origin string, ev protocol.MultiplayerEvent) error
	SubscribeRelay(ctx context.Context, sessionID string, fn changefeed.RelayHandler) (func(), error)
}

// Config describes one embedded game.
type Config struct {
	// EmbedID names the embedding. A random id is used when empty.
	EmbedID string

	GameID     string
	GameURL    string
	Width      int
	Height     int
	Fullscreen bool

	IsMultiplayer bool
	SessionID     string

	// HostOrigin defaults to DefaultHostOrigin.
	HostOrigin string

	// RateLimit and RateBurst bound inbound guest messages. Zero RateLimit
	// disables limiting.
	RateLimit rate.Limit
	RateBurst int

	// ScoreTimeout bounds one score write. It should be shorter than the
	// guest's request timeout so failures reach the guest as SCORE_ERROR.
	ScoreTimeout time.Duration

	RestartMode RestartMode
}

// DefaultConfig returns the limits used when a Config leaves them unset.
func DefaultConfig() Config {
	return Config{
		Width:        800,
		Height:       600,
		HostOrigin:   DefaultHostOrigin,
		RateLimit:    50,
		RateBurst:    100,
		ScoreTimeout: 4 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Width <= 0 {
		c.Width = def.Width
	}
	if c.Height <= 0 {
		c.Height = def.Height
	}
	if c.HostOrigin == "" {
		c.HostOrigin = def.HostOrigin
	}
	if c.RateBurst <= 0 {
		c.RateBurst = def.RateBurst
	}
	if c.ScoreTimeout <= 0 {
		c.ScoreTimeout = def.ScoreTimeout
	}
}

// Deps are the manager's collaborators. Sessions and Relay are only needed
// in multiplayer mode.
type Deps struct {
	Embedder Embedder
	Identity identity.Provider
	Scores   ScoreStore
	Sessions SessionStore
	Relay    Relay
}

// Callbacks notify the embedding page. Any of them may be nil. They run on
// the embedding's dispatch loop and should not block.
type Callbacks struct {
	OnGameReady        func()
	OnLoadingChange    func(loading bool)
	OnScoreSaved       func(score models.GameScore)
	OnGameOver         func(over protocol.GameOver)
	OnPlayersUpdated   func(players []protocol.Player)
	OnMultiplayerEvent func(ev protocol.MultiplayerEvent)
}

// Manager hosts one embedded game: it owns the embedding, answers the
// guest's requests and drives its lifecycle.
//
// Lifecycle:
//
//  1. NewManager resolves the viewer through Deps.Identity while
//     Deps.Embedder creates the embedding (StateIdle)
//  2. The host listener is registered before the guest is loaded, so the
//     guest's GAME_READY cannot be missed (StateLoading)
//  3. GAME_READY moves the manager to StateReady and fires OnGameReady
//  4. Close detaches the listener, leaves the relay and destroys the
//     embedding (StateClosed)
//
// Every inbound guest message goes through the dispatch table on the
// embedding's dispatch loop. Messages from other origins never reach it,
// and when Config.RateLimit is set a flooding guest is throttled before
// any handler runs. Unknown types are logged and ignored.
//
// In multiplayer mode the manager also keeps a cached roster of the
// session, turns store changes into PLAYER_JOINED, PLAYER_LEFT and
// PLAYER_STATUS_CHANGED messages, and relays SEND_MULTIPLAYER_EVENT to the
// other embeddings of the session through Deps.Relay.
//
// Example usage:
//
//	m, err := host.NewManager(ctx, host.Config{GameID: "snake"}, host.Deps{
//		Embedder: gateway,
//		Scores:   scores,
//	}, host.Callbacks{OnGameOver: showResults})
//	if err != nil {
//		return err
//	}
//	defer m.Close()
type Manager struct {
	id       string
	cfg      Config
	deps     Deps
	cb       Callbacks
	limiter  *rate.Limiter
	dispatch map[protocol.Type]handlerFunc
	ident    identity.Identity
	authed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	logger   zerolog.Logger
	state    atomic.Int32
	now      func() time.Time
	closeErr error

	mu        sync.Mutex
	embedding Embedding
	unlisten  func()
	unsubs    []func()
	onClose   []func()
	closeOnce sync.Once

	rosterMu     sync.Mutex
	roster       map[string]protocol.Player
	rosterLoaded bool
}

// NewManager resolves the viewer's identity while creating the embedding,
// registers the host listener and then loads the guest. ctx bounds setup
// only; the manager lives until Close.
func NewManager(ctx context.Context, cfg Config, deps Deps, cb Callbacks) (*Manager, error) {
	if cfg.GameID == "" {
		return nil, errors.New("host: game id is required")
	}
	if deps.Embedder == nil {
		return nil, errors.New("host: embedder is required")
	}
	if deps.Scores == nil {
		return nil, errors.New("host: score store is required")
	}
	if deps.Identity == nil {
		deps.Identity = identity.ContextProvider{}
	}
	if cfg.IsMultiplayer {
		if cfg.SessionID == "" {
			return nil, errors.New("host: multiplayer mode needs a session id")
		}
		if deps.Sessions == nil || deps.Relay == nil {
			return nil, ErrNoSessionStore
		}
	}
	cfg.applyDefaults()

	id := cfg.EmbedID
	if id == "" {
		id = uuid.NewString()
	}
	cfg.EmbedID = id
	runCtx, cancel := context.WithCancel(logging.ContextWithEmbedID(context.WithoutCancel(ctx), id))
	m := &Manager{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		cb:     cb,
		ctx:    runCtx,
		cancel: cancel,
		now:    time.Now,
		roster: make(map[string]protocol.Player),
		logger: logging.WithComponent("host").With().
			Str("embed_id", id).
			Str("game_id", cfg.GameID).
			Logger(),
	}
	m.dispatch = m.handlers()
	if cfg.RateLimit > 0 {
		m.limiter = rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	// Identity is resolved alongside embedding creation.
	identDone := make(chan struct{})
	go func() {
		defer close(identDone)
		m.ident, m.authed = deps.Identity.CurrentIdentity(ctx)
	}()
	embedding, err := deps.Embedder.Embed(ctx, m.spec())
	<-identDone
	if err != nil {
		cancel()
		return nil, fmt.Errorf("host: embed %s: %w", cfg.GameID, err)
	}
	if m.authed {
		m.ctx = identity.WithIdentity(m.ctx, m.ident)
	}

	m.state.Store(int32(StateIdle))
	metrics.HostEmbeddingsActive.Inc()

	if cfg.IsMultiplayer {
		if err := m.startMultiplayer(); err != nil {
			_ = embedding.Close()
			m.shutdown()
			return nil, err
		}
	}

	if err := m.attach(ctx, embedding); err != nil {
		m.shutdown()
		return nil, err
	}

	m.logger.Info().Bool("authenticated", m.authed).Bool("multiplayer", cfg.IsMultiplayer).Msg("game embedded")
	return m, nil
}

func (m *Manager) spec() EmbedSpec {
	return EmbedSpec{
		EmbedID:       m.id,
		GameID:        m.cfg.GameID,
		URL:           m.cfg.GameURL,
		Width:         m.cfg.Width,
		Height:        m.cfg.Height,
		Fullscreen:    m.cfg.Fullscreen,
		HostOrigin:    m.cfg.HostOrigin,
		IsMultiplayer: m.cfg.IsMultiplayer,
		SessionID:     m.cfg.SessionID,
	}
}

// attach listens on embedding and then loads it.
func (m *Manager) attach(ctx context.Context, embedding Embedding) error {
	unlisten := embedding.Channel().Listen(embedding.GuestOrigin(), func(msg protocol.Message) {
		m.handle(embedding, msg)
	})

	m.mu.Lock()
	if m.State() == StateClosed {
		m.mu.Unlock()
		unlisten()
		_ = embedding.Close()
		return ErrClosed
	}
	m.embedding = embedding
	m.unlisten = unlisten
	m.mu.Unlock()

	m.setState(StateLoading)
	if err := embedding.Load(ctx); err != nil {
		return fmt.Errorf("host: load %s: %w", m.cfg.GameID, err)
	}
	return nil
}

// ID identifies the embedding.
func (m *Manager) ID() string { return m.id }

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Identity returns the viewer identity resolved at creation.
func (m *Manager) Identity() (identity.Identity, bool) { return m.ident, m.authed }

// State reports the lifecycle position.
func (m *Manager) State() State { return State(m.state.Load()) }

// Loading reports whether the loading indicator should be shown.
func (m *Manager) Loading() bool { return m.State() == StateLoading }

func (m *Manager) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	if prev == s {
		return
	}
	if prev == StateClosed {
		m.state.Store(int32(StateClosed))
		return
	}
	if m.cb.OnLoadingChange != nil && (prev == StateLoading || s == StateLoading) {
		m.cb.OnLoadingChange(s == StateLoading)
	}
}

// OnClose registers fn to run once when the manager closes.
func (m *Manager) OnClose(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = append(m.onClose, fn)
}

// post sends to the current embedding.
func (m *Manager) post(t protocol.Type, payload interface{}) error {
	m.mu.Lock()
	embedding := m.embedding
	m.mu.Unlock()
	if embedding == nil || m.State() == StateClosed {
		return ErrClosed
	}
	msg, err := protocol.New(t, payload)
	if err != nil {
		return err
	}
	return embedding.Channel().Post(msg)
}

// Close unlistens, cancels subscriptions and detaches the embedding. Safe
// to call more than once.
func (m *Manager) Close() error {
	m.shutdown()
	return m.closeErr
}

func (m *Manager) shutdown() {
	m.closeOnce.Do(func() {
		m.state.Store(int32(StateClosed))
		m.cancel()

		m.mu.Lock()
		embedding := m.embedding
		unlisten := m.unlisten
		unsubs := m.unsubs
		hooks := m.onClose
		m.embedding, m.unlisten, m.unsubs, m.onClose = nil, nil, nil, nil
		m.mu.Unlock()

		if unlisten != nil {
			unlisten()
		}
		for _, fn := range unsubs {
			fn()
		}
		if embedding != nil {
			m.closeErr = embedding.Close()
		}
		for _, fn := range hooks {
			fn()
		}
		metrics.HostEmbeddingsActive.Dec()
		m.logger.Info().Msg("embedding closed")
	})
}
