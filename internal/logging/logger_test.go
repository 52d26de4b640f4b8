// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got %q", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamps enabled by default")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// The remaining tests reconfigure the global logger and must not run in parallel.

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("game_id", "g1").Msg("embedding created")

	out := buf.String()
	if !strings.Contains(out, `"message":"embedding created"`) {
		t.Errorf("missing message in %s", out)
	}
	if !strings.Contains(out, `"game_id":"g1"`) {
		t.Errorf("missing field in %s", out)
	}
}

func TestCtxAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithCorrelationID(context.Background(), "corr1234")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithEmbedID(ctx, "emb-1")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"correlation_id":"corr1234"`, `"request_id":"req-1"`, `"embed_id":"emb-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("expected 8 characters, got %q", a)
	}
	if a == b {
		t.Error("expected distinct ids")
	}
}

func TestSlogLoggerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(DefaultConfig())

	logger := NewSlogLogger().WithGroup("supervisor")
	logger.Warn("service restarted", slog.String("service", "hub"), slog.Int("attempt", 2))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level in %s", out)
	}
	if !strings.Contains(out, `"supervisor.service":"hub"`) {
		t.Errorf("expected grouped attribute in %s", out)
	}
}

func TestWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(DefaultConfig())

	var adapter watermill.LoggerAdapter = NewWatermillLogger("changefeed")
	adapter = adapter.With(watermill.LogFields{"topic": "sessions"})
	adapter.Error("publish failed", errors.New("boom"), watermill.LogFields{"attempt": 1})

	out := buf.String()
	for _, want := range []string{`"component":"changefeed"`, `"topic":"sessions"`, `"error":"boom"`, `"attempt":1`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
