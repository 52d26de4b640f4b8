// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gamebridge/internal/host"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during
	// shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Observer message types.
const (
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
	MessageTypeSubscribe        = "subscribe"
	MessageTypeGameReady        = "game_ready"
	MessageTypeScoreSaved       = "score_saved"
	MessageTypeGameOver         = "game_over"
	MessageTypePlayersUpdated   = "players_updated"
	MessageTypeMultiplayerEvent = "multiplayer_event"
	MessageTypeSessionChanged   = "session_changed"
)

// Message is one observer frame. Topic is the embed or session id the frame
// concerns; observers subscribed to another topic never see it.
type Message struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data"`
}

// Hub fans host-side activity out to observer connections: the hosting page,
// spectators and dashboards. It never carries guest traffic.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until ctx is cancelled, then closes every
// client and returns ctx.Err().
//
// Selection is prioritised: shutdown first, then client lifecycle, then
// broadcasts, so client state is consistent before a message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Int("total_clients", n).Str("topic", client.Topic()).Msg("observer connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Int("total_clients", n).Msg("observer disconnected")
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	// Context cancellation is the expected stop path, so it is not logged
	// as an error.
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns the clients in id order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers message to every matching client in id order.
// A client whose buffer is full is disconnected.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range h.sortedClients() {
		if !client.wants(message.Topic) {
			continue
		}
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		logging.Warn().Int("dropped_clients", len(toRemove)).Msg("slow observers disconnected")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast queues a frame for every observer of topic. An empty topic
// reaches only observers that did not subscribe to a topic.
func (h *Hub) Broadcast(topic, messageType string, data interface{}) {
	message := Message{Type: messageType, Topic: topic, Data: data}
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ScoreSavedData is the score_saved payload.
type ScoreSavedData struct {
	EmbedID string           `json:"embed_id"`
	Score   models.GameScore `json:"score"`
}

// GameOverData is the game_over payload.
type GameOverData struct {
	EmbedID  string                 `json:"embed_id"`
	GameID   string                 `json:"game_id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PlayersData is the players_updated payload.
type PlayersData struct {
	SessionID string            `json:"session_id"`
	Players   []protocol.Player `json:"players"`
}

// StateData is the game_ready payload.
type StateData struct {
	EmbedID   string `json:"embed_id"`
	GameID    string `json:"game_id"`
	Timestamp string `json:"timestamp"`
}

// Callbacks returns host callbacks that mirror an embedding's activity to
// observers of the embed id and, in multiplayer mode, of the session id.
func (h *Hub) Callbacks(embedID string, cfg host.Config) host.Callbacks {
	return host.Callbacks{
		OnGameReady: func() {
			h.Broadcast(embedID, MessageTypeGameReady, StateData{
				EmbedID:   embedID,
				GameID:    cfg.GameID,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		},
		OnScoreSaved: func(score models.GameScore) {
			h.Broadcast(embedID, MessageTypeScoreSaved, ScoreSavedData{EmbedID: embedID, Score: score})
		},
		OnGameOver: func(over protocol.GameOver) {
			h.Broadcast(embedID, MessageTypeGameOver, GameOverData{
				EmbedID:  embedID,
				GameID:   cfg.GameID,
				Score:    over.Score,
				Metadata: over.Metadata,
			})
		},
		OnPlayersUpdated: func(players []protocol.Player) {
			h.Broadcast(embedID, MessageTypePlayersUpdated, PlayersData{SessionID: cfg.SessionID, Players: players})
		},
		OnMultiplayerEvent: func(ev protocol.MultiplayerEvent) {
			h.Broadcast(embedID, MessageTypeMultiplayerEvent, ev)
		},
	}
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
