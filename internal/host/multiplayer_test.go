// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/gamebridge/internal/changefeed"
	"github.com/tomtom215/gamebridge/internal/guest"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/lobby"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/protocol"
	"github.com/tomtom215/gamebridge/internal/store"
)

func setupLobby(t *testing.T) (*lobby.Service, *changefeed.Feed) {
	t.Helper()
	feed := changefeed.NewGoChannel()
	st, err := store.Open(store.Options{InMemory: true}, feed)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = feed.Close()
		_ = st.Close()
	})
	return lobby.NewService(st, feed), feed
}

func as(userID string) context.Context {
	return identity.WithIdentity(context.Background(), identity.Identity{UserID: userID})
}

// player embeds userID's view of a multiplayer session.
type player struct {
	m      *Manager
	sdk    *guest.SDK
	hostEv atomic.Int32
	moves  chan guest.ReceivedEvent
	joined chan protocol.Player
	left   chan protocol.Player
	status chan protocol.Player
}

func embedPlayer(t *testing.T, svc *lobby.Service, feed *changefeed.Feed, sessionID, userID string) *player {
	t.Helper()
	p := &player{
		moves:  make(chan guest.ReceivedEvent, 16),
		joined: make(chan protocol.Player, 16),
		left:   make(chan protocol.Player, 16),
		status: make(chan protocol.Player, 16),
	}
	sdks := make(chan *guest.SDK, 1)
	p.m = newManager(t, Config{GameID: "chess", IsMultiplayer: true, SessionID: sessionID}, Deps{
		Embedder: localEmbedder(sdks),
		Identity: identity.Static{UserID: userID},
		Scores:   &fakeScores{},
		Sessions: svc,
		Relay:    feed,
	}, Callbacks{
		OnMultiplayerEvent: func(protocol.MultiplayerEvent) { p.hostEv.Add(1) },
	})
	p.sdk = receiveSDK(t, sdks)

	p.sdk.On(guest.MultiplayerEventName("move"), func(data interface{}) {
		if ev, ok := data.(guest.ReceivedEvent); ok {
			p.moves <- ev
		}
	})
	p.sdk.On(guest.EventPlayerJoined, func(data interface{}) {
		if pl, ok := data.(protocol.Player); ok {
			p.joined <- pl
		}
	})
	p.sdk.On(guest.EventPlayerLeft, func(data interface{}) {
		if pl, ok := data.(protocol.Player); ok {
			p.left <- pl
		}
	})
	p.sdk.On(guest.EventPlayerStatusChanged, func(data interface{}) {
		if pl, ok := data.(protocol.Player); ok {
			p.status <- pl
		}
	})
	return p
}

func expectPlayer(t *testing.T, ch <-chan protocol.Player, id string) protocol.Player {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case p := <-ch:
			if p.ID == id {
				return p
			}
		case <-timeout:
			t.Fatalf("no roster event for %s", id)
			return protocol.Player{}
		}
	}
}

func twoPlayerSession(t *testing.T) (*lobby.Service, *changefeed.Feed, string) {
	t.Helper()
	svc, feed := setupLobby(t)
	session, err := svc.CreateSession(as("alice"), "chess", 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.JoinSession(as("bob"), session.ID, nil); err != nil {
		t.Fatal(err)
	}
	return svc, feed, session.ID
}

func TestInitialRoster(t *testing.T) {
	t.Parallel()

	svc, feed, sid := twoPlayerSession(t)
	alice := embedPlayer(t, svc, feed, sid, "alice")

	players := alice.sdk.Players()
	if len(players) != 2 {
		t.Fatalf("roster = %+v, want alice and bob", players)
	}
	if _, ok := alice.sdk.PlayerByID("bob"); !ok {
		t.Error("bob missing from roster")
	}
}

func TestMultiplayerEventsDoNotLoop(t *testing.T) {
	t.Parallel()

	svc, feed, sid := twoPlayerSession(t)
	alice := embedPlayer(t, svc, feed, sid, "alice")
	bob := embedPlayer(t, svc, feed, sid, "bob")

	if err := alice.sdk.SendMultiplayerEvent("move", map[string]int{"x": 3}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-bob.moves:
		if ev.SenderID != "alice" {
			t.Errorf("sender = %q, want alice", ev.SenderID)
		}
		if string(ev.Data) != `{"x":3}` {
			t.Errorf("data = %s", ev.Data)
		}
	case <-time.After(waitFor):
		t.Fatal("bob never received alice's move")
	}

	// Let any echo or relay loop play out.
	time.Sleep(200 * time.Millisecond)
	if n := len(alice.moves); n != 0 {
		t.Errorf("alice received her own move %d times", n)
	}
	if n := len(bob.moves); n != 0 {
		t.Errorf("bob received the move %d extra times", n)
	}
	if n := alice.hostEv.Load(); n != 1 {
		t.Errorf("alice's host saw %d events, want 1", n)
	}
	if n := bob.hostEv.Load(); n != 1 {
		t.Errorf("bob's host saw %d events, want 1", n)
	}
}

func TestHostStampsSender(t *testing.T) {
	t.Parallel()

	svc, feed, sid := twoPlayerSession(t)
	emb := newPipeEmbedder()
	newManager(t, Config{GameID: "chess", IsMultiplayer: true, SessionID: sid}, Deps{
		Embedder: emb,
		Identity: identity.Static{UserID: "alice"},
		Scores:   &fakeScores{},
		Sessions: svc,
		Relay:    feed,
	}, Callbacks{})
	g := emb.guest(t)

	relayed := make(chan protocol.MultiplayerEvent, 1)
	unsub, err := feed.SubscribeRelay(context.Background(), sid, func(_ context.Context, _ string, ev protocol.MultiplayerEvent) {
		relayed <- ev
	})
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	g.send(t, protocol.TypeSendMultiplayerEvent, protocol.SendMultiplayerEvent{
		GameID:    "other",
		SessionID: sid,
		Event:     protocol.MultiplayerEvent{Type: "move", SenderID: "bob"},
	})

	echo := g.next(t, protocol.TypeMultiplayerEvent)
	var ev protocol.MultiplayerEvent
	if err := echo.Decode(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.SenderID != "alice" || ev.Type != "move" || ev.Timestamp == 0 {
		t.Errorf("echo = %+v", ev)
	}
	select {
	case got := <-relayed:
		if got.SenderID != "alice" {
			t.Errorf("relayed sender = %q", got.SenderID)
		}
	case <-time.After(waitFor):
		t.Fatal("event not relayed")
	}
}

func TestNestedSendMultiplayerEventFromWire(t *testing.T) {
	t.Parallel()

	svc, feed, sid := twoPlayerSession(t)
	emb := newPipeEmbedder()
	got := make(chan protocol.MultiplayerEvent, 4)
	newManager(t, Config{GameID: "chess", IsMultiplayer: true, SessionID: sid}, Deps{
		Embedder: emb,
		Identity: identity.Static{UserID: "alice"},
		Scores:   &fakeScores{},
		Sessions: svc,
		Relay:    feed,
	}, Callbacks{OnMultiplayerEvent: func(ev protocol.MultiplayerEvent) { got <- ev }})
	g := emb.guest(t)

	// Hand-written payload, as a guest on another SDK would send it.
	raw := `{"gameId":"chess","sessionId":"` + sid + `","event":{"type":"move","senderId":"alice","data":{"from":"e2","to":"e4"},"timestamp":1700000000000}}`
	if err := g.port.Post(protocol.Message{Type: protocol.TypeSendMultiplayerEvent, Data: []byte(raw)}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-got:
		if ev.Type != "move" || ev.SenderID != "alice" || ev.Timestamp != 1700000000000 || string(ev.Data) != `{"from":"e2","to":"e4"}` {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(waitFor):
		t.Fatal("nested SEND_MULTIPLAYER_EVENT was not handled")
	}
	g.next(t, protocol.TypeMultiplayerEvent)
}

func TestRosterChangesReachGuests(t *testing.T) {
	t.Parallel()

	svc, feed, sid := twoPlayerSession(t)
	alice := embedPlayer(t, svc, feed, sid, "alice")
	bob := embedPlayer(t, svc, feed, sid, "bob")

	if _, err := svc.JoinSession(as("carol"), sid, map[string]interface{}{"name": "Carol"}); err != nil {
		t.Fatal(err)
	}
	for _, p := range []*player{alice, bob} {
		joined := expectPlayer(t, p.joined, "carol")
		if joined.Name != "Carol" {
			t.Errorf("joined name = %q", joined.Name)
		}
	}

	if err := alice.sdk.UpdateStatus(models.PlayerReady, nil); err != nil {
		t.Fatal(err)
	}
	changed := expectPlayer(t, bob.status, "alice")
	if changed.Status != models.PlayerReady {
		t.Errorf("bob sees alice as %s", changed.Status)
	}

	if err := svc.LeaveSession(as("carol"), sid); err != nil {
		t.Fatal(err)
	}
	for _, p := range []*player{alice, bob} {
		expectPlayer(t, p.left, "carol")
	}
	eventually(t, "bob's roster shrinks", func() bool { return len(bob.sdk.Players()) == 2 })
}

func TestGuestUpdatesOnlyOwnRow(t *testing.T) {
	t.Parallel()

	svc, feed, sid := twoPlayerSession(t)
	emb := newPipeEmbedder()
	newManager(t, Config{GameID: "chess", IsMultiplayer: true, SessionID: sid}, Deps{
		Embedder: emb,
		Identity: identity.Static{UserID: "alice"},
		Scores:   &fakeScores{},
		Sessions: svc,
		Relay:    feed,
	}, Callbacks{})
	g := emb.guest(t)

	score := 42.0
	g.send(t, protocol.TypeUpdatePlayerStatus, protocol.UpdatePlayerStatus{
		SessionID: sid,
		PlayerID:  "bob",
		Status:    models.PlayerPlaying,
		Score:     &score,
	})
	g.next(t, protocol.TypeSessionPlayers)

	players, err := svc.SessionPlayers(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range players {
		switch p.UserID {
		case "alice":
			if p.Status != models.PlayerPlaying || p.Score == nil || *p.Score != 42 {
				t.Errorf("alice = %+v", p)
			}
		case "bob":
			if p.Status != models.PlayerWaiting {
				t.Errorf("bob was modified: %+v", p)
			}
		}
	}
}

func TestSinglePlayerRosterIsEmpty(t *testing.T) {
	t.Parallel()

	emb := newPipeEmbedder()
	newManager(t, Config{}, Deps{Embedder: emb, Identity: identity.Static{UserID: "u1"}, Scores: &fakeScores{}}, Callbacks{})
	g := emb.guest(t)

	reply := g.replyTo(t, g.send(t, protocol.TypeGetSessionPlayers, nil))
	var sp protocol.SessionPlayers
	if err := reply.Decode(&sp); err != nil {
		t.Fatal(err)
	}
	if len(sp.Players) != 0 {
		t.Errorf("players = %+v", sp.Players)
	}

	g.send(t, protocol.TypeSendMultiplayerEvent, protocol.SendMultiplayerEvent{Event: protocol.MultiplayerEvent{Type: "move"}})
	g.quiet(t, 100*time.Millisecond)
}

func TestRosterDiff(t *testing.T) {
	t.Parallel()

	one, two := 1.0, 2.0
	prev := indexPlayers([]protocol.Player{
		{ID: "a", Status: models.PlayerWaiting},
		{ID: "b", Status: models.PlayerReady, Score: &one},
		{ID: "c", Status: models.PlayerReady},
	})
	next := []protocol.Player{
		{ID: "a", Status: models.PlayerWaiting},
		{ID: "b", Status: models.PlayerReady, Score: &two},
		{ID: "d", Status: models.PlayerWaiting},
	}

	got := rosterDiff(prev, next)
	want := []protocol.Type{protocol.TypePlayerStatusChanged, protocol.TypePlayerJoined, protocol.TypePlayerLeft}
	if len(got) != len(want) {
		t.Fatalf("diff = %d messages, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Type != w {
			t.Errorf("diff[%d] = %s, want %s", i, got[i].Type, w)
		}
	}

	if diff := rosterDiff(indexPlayers(next), next); len(diff) != 0 {
		t.Errorf("unchanged roster produced %d messages", len(diff))
	}
}
