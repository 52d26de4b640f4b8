// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/gamebridge/internal/channel"
	"github.com/tomtom215/gamebridge/internal/host"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
)

var (
	// ErrUnknownToken is returned for a guest token no embedding holds.
	ErrUnknownToken = errors.New("websocket: unknown guest token")

	// ErrGuestConnected is returned when a second guest dials a token whose
	// guest is still connected.
	ErrGuestConnected = errors.New("websocket: guest already connected")

	// ErrOriginRejected is returned when the dialling page is not the
	// embedded game's origin.
	ErrOriginRejected = errors.New("websocket: origin not allowed")
)

// GatewayConfig configures remote guest embedding.
type GatewayConfig struct {
	// BaseURL is the ws(s) URL guests dial, without the trailing token,
	// e.g. "wss://play.example/ws/guest".
	BaseURL string

	// AllowedOrigins restricts the Origin header of observer upgrades.
	// Empty allows any origin.
	AllowedOrigins []string

	ReadBufferSize  int
	WriteBufferSize int
}

// Gateway is the isolation boundary for remote guests. Each embedding it
// creates is reachable by exactly one unguessable token; a guest connects
// by dialling BaseURL/<token> and from then on speaks the game protocol over
// the socket. Gateway implements host.Embedder.
type Gateway struct {
	cfg      GatewayConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	byToken map[string]*remoteEmbedding
	tokens  map[string]string // embed id -> token
}

// NewGateway returns a gateway. It serves guests through ServeGuest.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = 4096
	}
	g := &Gateway{
		cfg:     cfg,
		byToken: make(map[string]*remoteEmbedding),
		tokens:  make(map[string]string),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		// Guest origins are checked per embedding in ServeGuest.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return g
}

// Embed implements host.Embedder. Re-embedding the same embed id, as a
// restart does, keeps its token so the remote guest can reconnect.
func (g *Gateway) Embed(_ context.Context, spec host.EmbedSpec) (host.Embedding, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	token, ok := g.tokens[spec.EmbedID]
	if !ok {
		token = uuid.NewString()
	}
	e := &remoteEmbedding{
		g:           g,
		token:       token,
		embedID:     spec.EmbedID,
		guestOrigin: host.OriginOf(spec.URL, "guest:"+spec.EmbedID),
		port:        channel.NewPort(spec.HostOrigin),
	}
	g.byToken[token] = e
	g.tokens[spec.EmbedID] = token
	return e, nil
}

// Token returns the guest token of a live embedding.
func (g *Gateway) Token(embedID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	token, ok := g.tokens[embedID]
	return token, ok
}

// URL returns the address a guest dials for token.
func (g *Gateway) URL(token string) string {
	return strings.TrimRight(g.cfg.BaseURL, "/") + "/" + token
}

// Len returns the number of live embeddings.
func (g *Gateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byToken)
}

func (g *Gateway) lookup(token string) (*remoteEmbedding, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.byToken[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return e, nil
}

func (g *Gateway) forget(e *remoteEmbedding) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.byToken[e.token] == e {
		delete(g.byToken, e.token)
		delete(g.tokens, e.embedID)
	}
}

// ServeGuest upgrades a guest's request and bridges the socket to the
// embedding holding token.
func (g *Gateway) ServeGuest(w http.ResponseWriter, r *http.Request, token string) {
	e, err := g.lookup(token)
	if err != nil {
		http.Error(w, "unknown embed", http.StatusNotFound)
		return
	}
	if err := e.checkOrigin(r); err != nil {
		logging.Warn().Str("embed_id", e.embedID).Str("origin", r.Header.Get("Origin")).Msg("guest connection from foreign origin rejected")
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	if e.connected() {
		http.Error(w, "guest already connected", http.StatusConflict)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Debug().Err(err).Msg("guest upgrade failed")
		return
	}
	conn, err := e.attach(ws)
	if err != nil {
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		_ = ws.Close()
		return
	}

	logging.Info().Str("embed_id", e.embedID).Msg("remote guest connected")
	metrics.WebSocketConnections.WithLabelValues(kindGuest).Inc()
	go func() {
		defer metrics.WebSocketConnections.WithLabelValues(kindGuest).Dec()
		conn.Run(context.Background())
		logging.Info().Str("embed_id", e.embedID).Msg("remote guest disconnected")
	}()
}

// ServeObserver upgrades an observer request and registers it with hub.
// The topic query parameter selects the embed or session to observe.
func (g *Gateway) ServeObserver(hub *Hub, w http.ResponseWriter, r *http.Request) {
	up := g.upgrader
	up.CheckOrigin = g.allowedObserverOrigin
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Msg("observer upgrade failed")
		return
	}
	client := NewClient(hub, ws, r.URL.Query().Get("topic"))
	hub.Register <- client
	client.Start()
}

func (g *Gateway) allowedObserverOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// remoteEmbedding is one guest context reachable over a websocket.
type remoteEmbedding struct {
	g           *Gateway
	token       string
	embedID     string
	guestOrigin string
	port        *channel.Port

	mu     sync.Mutex
	conn   *channel.Conn
	closed bool
}

func (e *remoteEmbedding) Channel() channel.Channel { return e.port }

func (e *remoteEmbedding) GuestOrigin() string { return e.guestOrigin }

// Load marks the embedding ready for its guest. The guest itself is started
// by whoever holds the URL.
func (e *remoteEmbedding) Load(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return channel.ErrClosed
	}
	logging.Debug().Str("embed_id", e.embedID).Str("url", e.g.URL(e.token)).Msg("awaiting remote guest")
	return nil
}

func (e *remoteEmbedding) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	conn := e.conn
	e.mu.Unlock()

	e.g.forget(e)
	if conn != nil {
		_ = conn.Close()
	}
	return e.port.Close()
}

// checkOrigin rejects browsers dialling from a page other than the game's.
// Non-browser guests send no Origin header.
func (e *remoteEmbedding) checkOrigin(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" || !strings.Contains(e.guestOrigin, "://") {
		return nil
	}
	if !strings.EqualFold(origin, e.guestOrigin) {
		return ErrOriginRejected
	}
	return nil
}

func (e *remoteEmbedding) connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveConn()
}

// liveConn reports whether a guest socket is attached. Caller holds e.mu.
func (e *remoteEmbedding) liveConn() bool {
	if e.conn == nil {
		return false
	}
	select {
	case <-e.conn.Done():
		return false
	default:
		return true
	}
}

func (e *remoteEmbedding) attach(ws *websocket.Conn) (*channel.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, channel.ErrClosed
	}
	if e.liveConn() {
		return nil, ErrGuestConnected
	}
	e.conn = channel.Bridge(ws, e.port, e.guestOrigin)
	return e.conn, nil
}
