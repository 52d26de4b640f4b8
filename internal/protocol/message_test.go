// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/gamebridge/internal/models"
)

func TestEncodeDecodePreservesPayload(t *testing.T) {
	t.Parallel()

	score := 42.5
	msg, err := NewRequest(TypeUpdatePlayerStatus, UpdatePlayerStatus{
		GameID:    "snake",
		SessionID: "s-1",
		PlayerID:  "u-1",
		Status:    models.PlayerPlaying,
		Score:     &score,
	})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != msg.Type || got.ID != msg.ID {
		t.Fatalf("header mismatch: got %+v want %+v", got, msg)
	}
	if string(got.Data) != string(msg.Data) {
		t.Errorf("payload mutated: got %s want %s", got.Data, msg.Data)
	}

	var p UpdatePlayerStatus
	if err := got.Decode(&p); err != nil {
		t.Fatalf("Decode payload: %v", err)
	}
	if p.Status != models.PlayerPlaying || p.Score == nil || *p.Score != 42.5 {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestReplyCarriesRequestID(t *testing.T) {
	t.Parallel()

	req, err := NewRequest(TypeGetUserInfo, nil)
	if err != nil {
		t.Fatal(err)
	}
	if req.ID == "" {
		t.Fatal("request has no id")
	}
	reply, err := req.Reply(TypeUserInfo, AuthenticatedUser("u-7"))
	if err != nil {
		t.Fatal(err)
	}
	if !reply.IsReply() || reply.ReplyTo != req.ID {
		t.Errorf("reply not correlated: %+v", reply)
	}
	if reply.ID != "" {
		t.Errorf("reply should not carry its own id, got %q", reply.ID)
	}
}

func TestUserInfoWireShape(t *testing.T) {
	t.Parallel()

	msg, err := New(TypeUserInfo, AnonymousUser())
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Data) != `{"id":null,"isAuthenticated":false}` {
		t.Errorf("unexpected anonymous payload %s", msg.Data)
	}
}

func TestMultiplayerEventWireShape(t *testing.T) {
	t.Parallel()

	send, err := New(TypeSendMultiplayerEvent, SendMultiplayerEvent{
		GameID:    "chess",
		SessionID: "s-1",
		Event: MultiplayerEvent{
			Type:      "move",
			SenderID:  "u-1",
			Data:      []byte(`{"x":1}`),
			Timestamp: 1700000000000,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"gameId":"chess","sessionId":"s-1","event":{"type":"move","senderId":"u-1","data":{"x":1},"timestamp":1700000000000}}`
	if string(send.Data) != want {
		t.Errorf("SEND_MULTIPLAYER_EVENT payload\n got %s\nwant %s", send.Data, want)
	}

	relay, err := New(TypeMultiplayerEvent, MultiplayerEvent{Type: "move", SenderID: "u-1", Timestamp: 1700000000000})
	if err != nil {
		t.Fatal(err)
	}
	if string(relay.Data) != `{"type":"move","senderId":"u-1","timestamp":1700000000000}` {
		t.Errorf("unexpected MULTIPLAYER_EVENT payload %s", relay.Data)
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing type", `{"data":{}}`, ErrMissingType},
		{"too large", `{"type":"GAME_OVER","data":"` + strings.Repeat("x", MaxMessageSize) + `"}`, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestEncodeRequiresType(t *testing.T) {
	t.Parallel()

	if _, err := Encode(Message{}); !errors.Is(err, ErrMissingType) {
		t.Errorf("got %v, want ErrMissingType", err)
	}
}

func TestPlayerFromModel(t *testing.T) {
	t.Parallel()

	p := PlayerFromModel(&models.GamePlayer{
		UserID:   "u-1",
		Status:   models.PlayerReady,
		Metadata: map[string]interface{}{"name": "Ada", "avatar": "a.png"},
	})
	if p.ID != "u-1" || p.Name != "Ada" || p.Avatar != "a.png" || p.Status != models.PlayerReady {
		t.Errorf("unexpected player %+v", p)
	}

	anon := PlayerFromModel(&models.GamePlayer{UserID: "u-2"})
	if anon.Name != "u-2" {
		t.Errorf("expected name to fall back to user id, got %q", anon.Name)
	}
}
