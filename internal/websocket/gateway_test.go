// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/gamebridge/internal/channel"
	"github.com/tomtom215/gamebridge/internal/guest"
	"github.com/tomtom215/gamebridge/internal/host"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/models"
)

type memScores struct {
	mu     sync.Mutex
	scores []models.GameScore
}

func (s *memScores) InsertScore(_ context.Context, userID, gameID string, score float64, metadata map[string]interface{}) (*models.GameScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs := models.GameScore{ID: "s", UserID: userID, GameID: gameID, Score: score, Metadata: metadata, CreatedAt: time.Now()}
	s.scores = append(s.scores, gs)
	return &gs, nil
}

func (s *memScores) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scores)
}

const guestPath = "/ws/guest/"

// gatewayServer serves guest upgrades under guestPath.
func gatewayServer(t *testing.T) (*Gateway, *httptest.Server) {
	t.Helper()
	var gw *Gateway
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gw.ServeGuest(w, r, strings.TrimPrefix(r.URL.Path, guestPath))
	}))
	t.Cleanup(srv.Close)
	gw = NewGateway(GatewayConfig{BaseURL: wsURL(srv, guestPath)})
	return gw, srv
}

func remoteManager(t *testing.T, gw *Gateway, cfg host.Config, scores host.ScoreStore) *host.Manager {
	t.Helper()
	if cfg.GameID == "" {
		cfg.GameID = "pong"
	}
	m, err := host.NewManager(context.Background(), cfg, host.Deps{
		Embedder: gw,
		Identity: identity.Static{UserID: "alice"},
		Scores:   scores,
	}, host.Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func dialGuest(t *testing.T, gw *Gateway, embedID string) (*guest.SDK, *channel.Port) {
	t.Helper()
	token, ok := gw.Token(embedID)
	if !ok {
		t.Fatal("no token for embed")
	}
	port, hostOrigin, err := channel.Dial(context.Background(), gw.URL(token), channel.DialOptions{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = port.Close() })
	sdk, err := guest.New(context.Background(), port, guest.Config{
		GameID:         "pong",
		HostOrigin:     hostOrigin,
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sdk, port
}

func TestRemoteGuestFlow(t *testing.T) {
	gw, _ := gatewayServer(t)
	scores := &memScores{}
	m := remoteManager(t, gw, host.Config{}, scores)

	if m.State() != host.StateLoading {
		t.Fatalf("state before guest connects = %s", m.State())
	}

	sdk, _ := dialGuest(t, gw, m.ID())
	if !sdk.IsAuthenticated() || sdk.UserID() != "alice" {
		t.Fatalf("guest identity = %q", sdk.UserID())
	}
	waitFor(t, "host ready", func() bool { return m.State() == host.StateReady })

	if !sdk.SaveScore(context.Background(), 31, map[string]interface{}{"level": 2}) {
		t.Fatal("score not saved")
	}
	if scores.count() != 1 {
		t.Errorf("stored %d scores", scores.count())
	}
}

func TestGatewayRejectsSecondGuest(t *testing.T) {
	gw, _ := gatewayServer(t)
	m := remoteManager(t, gw, host.Config{}, &memScores{})
	dialGuest(t, gw, m.ID())

	token, _ := gw.Token(m.ID())
	if _, _, err := channel.Dial(context.Background(), gw.URL(token), channel.DialOptions{}); err == nil {
		t.Fatal("second guest accepted")
	}
}

func TestGatewayUnknownToken(t *testing.T) {
	gw, _ := gatewayServer(t)
	if _, _, err := channel.Dial(context.Background(), gw.URL("nope"), channel.DialOptions{}); err == nil {
		t.Fatal("unknown token accepted")
	}
}

func TestGatewayRejectsForeignOrigin(t *testing.T) {
	gw, _ := gatewayServer(t)
	m := remoteManager(t, gw, host.Config{GameURL: "https://games.example/pong/index.html"}, &memScores{})
	token, _ := gw.Token(m.ID())

	_, _, err := channel.Dial(context.Background(), gw.URL(token), channel.DialOptions{
		Header: http.Header{"Origin": []string{"https://evil.example"}},
	})
	if err == nil {
		t.Fatal("foreign origin accepted")
	}

	port, _, err := channel.Dial(context.Background(), gw.URL(token), channel.DialOptions{
		Header: http.Header{"Origin": []string{"https://games.example"}},
	})
	if err != nil {
		t.Fatalf("game origin rejected: %v", err)
	}
	_ = port.Close()
}

func TestGatewayForgetsClosedEmbeds(t *testing.T) {
	gw, _ := gatewayServer(t)
	m := remoteManager(t, gw, host.Config{}, &memScores{})
	_, port := dialGuest(t, gw, m.ID())

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if gw.Len() != 0 {
		t.Errorf("gateway holds %d embeddings", gw.Len())
	}
	if _, ok := gw.Token(m.ID()); ok {
		t.Error("token survived close")
	}
	select {
	case <-port.Done():
	case <-time.After(2 * time.Second):
		t.Error("guest socket not closed")
	}
}

func TestGatewayRestartKeepsToken(t *testing.T) {
	gw, _ := gatewayServer(t)
	m := remoteManager(t, gw, host.Config{}, &memScores{})
	dialGuest(t, gw, m.ID())
	waitFor(t, "host ready", func() bool { return m.State() == host.StateReady })
	before, _ := gw.Token(m.ID())

	if err := m.RestartGame(context.Background()); err != nil {
		t.Fatal(err)
	}
	after, ok := gw.Token(m.ID())
	if !ok || after != before {
		t.Fatalf("token changed across restart: %q -> %q", before, after)
	}
	if m.State() != host.StateLoading {
		t.Errorf("state after restart = %s", m.State())
	}

	dialGuest(t, gw, m.ID())
	waitFor(t, "host ready again", func() bool { return m.State() == host.StateReady })
	if gw.Len() != 1 {
		t.Errorf("gateway holds %d embeddings", gw.Len())
	}
}
