// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gamebridge/internal/protocol"
)

// newBridgeServer upgrades each request and bridges it into hostPort as
// messages from remoteOrigin.
func newBridgeServer(t *testing.T, hostPort *Port, remoteOrigin string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := Bridge(ws, hostPort, remoteOrigin)
		conn.Run(r.Context())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketRoundTrip(t *testing.T) {
	t.Parallel()

	hostPort := NewPort("platform")
	defer hostPort.Close()

	fromGuest := make(chan protocol.Message, 4)
	hostPort.Listen("embed:1", func(m protocol.Message) {
		fromGuest <- m
		if m.Type == protocol.TypeGetUserInfo {
			reply, _ := m.Reply(protocol.TypeUserInfo, protocol.AuthenticatedUser("u-1"))
			_ = hostPort.Post(reply)
		}
	})

	srv := newBridgeServer(t, hostPort, "embed:1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	guestPort, hostOrigin, err := Dial(ctx, wsURL(srv), DialOptions{Origin: "game"})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer guestPort.Close()

	fromHost := make(chan protocol.Message, 4)
	guestPort.Listen(hostOrigin, func(m protocol.Message) { fromHost <- m })

	req, _ := protocol.NewRequest(protocol.TypeGetUserInfo, nil)
	if err := guestPort.Post(req); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if got := receive(t, fromGuest); got.ID != req.ID {
		t.Errorf("host saw id %q, want %q", got.ID, req.ID)
	}
	reply := receive(t, fromHost)
	if reply.ReplyTo != req.ID {
		t.Errorf("reply correlated to %q, want %q", reply.ReplyTo, req.ID)
	}
	var info protocol.UserInfo
	if err := reply.Decode(&info); err != nil {
		t.Fatal(err)
	}
	if !info.IsAuthenticated || info.ID == nil || *info.ID != "u-1" {
		t.Errorf("unexpected user info %+v", info)
	}
}

func TestDialDefaultsHostOrigin(t *testing.T) {
	t.Parallel()

	hostPort := NewPort("platform")
	defer hostPort.Close()
	srv := newBridgeServer(t, hostPort, "embed:2")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	guestPort, hostOrigin, err := Dial(ctx, wsURL(srv), DialOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer guestPort.Close()

	if !strings.HasPrefix(hostOrigin, "ws://127.0.0.1") {
		t.Errorf("unexpected host origin %q", hostOrigin)
	}
	if guestPort.Origin() != "guest" {
		t.Errorf("unexpected guest origin %q", guestPort.Origin())
	}
}

func TestDialFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := Dial(ctx, "ws://127.0.0.1:1/nope", DialOptions{}); err == nil {
		t.Error("expected dial error")
	}
}

func TestClosingGuestDisconnectsHost(t *testing.T) {
	t.Parallel()

	hostPort := NewPort("platform")
	defer hostPort.Close()
	hostPort.Listen("embed:3", func(protocol.Message) {})

	connected := make(chan *Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := Bridge(ws, hostPort, "embed:3")
		connected <- conn
		conn.Run(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	guestPort, _, err := Dial(ctx, wsURL(srv), DialOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var conn *Conn
	select {
	case conn = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
	}

	_ = guestPort.Close()

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("host side did not notice the guest leaving")
	}
}
