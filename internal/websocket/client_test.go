// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// observerServer serves observer upgrades for hub.
func observerServer(t *testing.T, hub *Hub, cfg GatewayConfig) *httptest.Server {
	t.Helper()
	gw := NewGateway(cfg)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gw.ServeObserver(hub, w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dialObserver(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestObserverPingPong(t *testing.T) {
	hub := runHub(t)
	srv := observerServer(t, hub, GatewayConfig{})
	conn := dialObserver(t, wsURL(srv, "/"), nil)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	if got := readFrame(t, conn); got.Type != MessageTypePong {
		t.Errorf("got %s, want pong", got.Type)
	}
}

func TestObserverTopicFromQuery(t *testing.T) {
	hub := runHub(t)
	srv := observerServer(t, hub, GatewayConfig{})
	conn := dialObserver(t, wsURL(srv, "/?topic=embed-9"), nil)
	waitFor(t, "observer registered", func() bool { return hub.GetClientCount() == 1 })

	hub.Broadcast("other", MessageTypeGameOver, nil)
	hub.Broadcast("embed-9", MessageTypeScoreSaved, ScoreSavedData{EmbedID: "embed-9"})

	got := readFrame(t, conn)
	if got.Type != MessageTypeScoreSaved || got.Topic != "embed-9" {
		t.Errorf("got %+v", got)
	}
}

func TestObserverSubscribeFrame(t *testing.T) {
	hub := runHub(t)
	srv := observerServer(t, hub, GatewayConfig{})
	conn := dialObserver(t, wsURL(srv, "/"), nil)
	waitFor(t, "observer registered", func() bool { return hub.GetClientCount() == 1 })

	if err := conn.WriteJSON(map[string]interface{}{
		"type": MessageTypeSubscribe,
		"data": map[string]string{"topic": "session-3"},
	}); err != nil {
		t.Fatal(err)
	}
	// A ping after the subscribe frame orders the two on the read loop.
	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	if got := readFrame(t, conn); got.Type != MessageTypePong {
		t.Fatalf("got %s", got.Type)
	}

	hub.Broadcast("session-3", MessageTypeSessionChanged, SessionChangedData{SessionID: "session-3"})
	if got := readFrame(t, conn); got.Type != MessageTypeSessionChanged {
		t.Errorf("got %s", got.Type)
	}
}

func TestObserverOriginCheck(t *testing.T) {
	hub := runHub(t)
	srv := observerServer(t, hub, GatewayConfig{AllowedOrigins: []string{"https://app.example"}})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/"), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		t.Fatal("foreign origin accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %v", resp)
	}

	dialObserver(t, wsURL(srv, "/"), http.Header{"Origin": []string{"https://app.example"}})
}

func TestObserverClosedWithHub(t *testing.T) {
	hub := runHub(t)
	srv := observerServer(t, hub, GatewayConfig{})
	conn := dialObserver(t, wsURL(srv, "/"), nil)
	waitFor(t, "observer registered", func() bool { return hub.GetClientCount() == 1 })

	hub.closeAllClients()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after hub closed clients")
	}
}
