// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

// Command demo-guest is a headless game that connects to a Gamebridge guest
// URL and plays a few rounds against the host: it reads the viewer, saves a
// score per round and ends the game. In multiplayer mode it marks itself
// ready and echoes the moves of the other players.
//
//	demo-guest -url ws://localhost:8080/ws/guest/<token> -game tetris -rounds 3
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/gamebridge/internal/channel"
	"github.com/tomtom215/gamebridge/internal/guest"
	"github.com/tomtom215/gamebridge/internal/logging"
)

func main() {
	var opts playOptions
	url := flag.String("url", "", "guest websocket URL returned by POST /api/v1/embeds")
	flag.StringVar(&opts.gameID, "game", "demo", "game id")
	flag.BoolVar(&opts.multiplayer, "multiplayer", false, "run in multiplayer mode")
	flag.StringVar(&opts.sessionID, "session", "", "multiplayer session id")
	flag.IntVar(&opts.rounds, "rounds", 3, "rounds to play")
	flag.DurationVar(&opts.roundDelay, "delay", time.Second, "time between rounds")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.Init(logging.Config{Level: *level, Format: "console", Timestamp: true, Output: os.Stderr})

	if *url == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port, hostOrigin, err := channel.Dial(ctx, *url, channel.DialOptions{})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to host")
	}
	defer func() { _ = port.Close() }()

	cfg := guest.Config{
		GameID:        opts.gameID,
		HostOrigin:    hostOrigin,
		IsMultiplayer: opts.multiplayer,
		SessionID:     opts.sessionID,
	}
	if err := guest.Bootstrap(ctx, port, cfg, opts.play); err != nil {
		logging.Fatal().Err(err).Msg("Game failed")
	}
}
