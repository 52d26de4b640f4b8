// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/gamebridge/internal/identity"
)

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	emb := newPipeEmbedder()
	reg := NewRegistry(Deps{Embedder: emb, Identity: identity.Static{UserID: "u1"}, Scores: &fakeScores{}}, Config{
		Width:        1024,
		Height:       768,
		ScoreTimeout: time.Second,
	})
	t.Cleanup(reg.CloseAll)

	a, err := reg.Create(context.Background(), Config{GameID: "pong"}, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.Create(context.Background(), Config{GameID: "snake", Width: 320}, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}

	if got := a.Config(); got.Width != 1024 || got.Height != 768 || got.ScoreTimeout != time.Second {
		t.Errorf("base config not applied: %+v", got)
	}
	if got := b.Config().Width; got != 320 {
		t.Errorf("per-call width = %d, want 320", got)
	}

	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reg.Len())
	}
	if got, err := reg.Get(a.ID()); err != nil || got != a {
		t.Errorf("Get(a) = %v, %v", got, err)
	}
	list := reg.List()
	if len(list) != 2 || list[0].ID() > list[1].ID() {
		t.Errorf("List not ordered by id")
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get(a.ID()); !errors.Is(err, ErrUnknownEmbed) {
		t.Errorf("closed manager still registered: %v", err)
	}

	reg.CloseAll()
	if reg.Len() != 0 {
		t.Errorf("Len after CloseAll = %d", reg.Len())
	}
	if b.State() != StateClosed {
		t.Errorf("b state = %s", b.State())
	}
}

func TestRegistryCreateFailure(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(Deps{Embedder: failingEmbedder{}, Scores: &fakeScores{}}, Config{})
	if _, err := reg.Create(context.Background(), Config{GameID: "pong"}, Callbacks{}); err == nil {
		t.Fatal("expected embed failure")
	}
	if reg.Len() != 0 {
		t.Errorf("failed manager registered")
	}
}
