// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/gamebridge/internal/logging"
)

// MemoryPath opens an in-memory database.
const MemoryPath = ":memory:"

// Config configures the DuckDB connection.
type Config struct {
	// Path is the database file, or MemoryPath.
	Path string
	// Threads defaults to the CPU count.
	Threads int
	// MaxMemory is a DuckDB size string such as "512MB".
	MaxMemory string
}

// DB is the score database.
type DB struct {
	conn *sql.DB
	cfg  Config
	now  func() time.Time
	// newID generates score ids; replaced in tests.
	newID func() string
}

// New opens the database and creates the schema.
func New(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = MemoryPath
	}
	if cfg.MaxMemory == "" {
		cfg.MaxMemory = "512MB"
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if cfg.Path != MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, threads, cfg.MaxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg, now: time.Now, newID: newScoreID}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.createSchema(ctx); err != nil {
		closeWithLog(conn, "database connection")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", threads).Msg("Score database ready")
	return db, nil
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

func (db *DB) createSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS game_scores (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			score DOUBLE NOT NULL,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_game_scores_game_user ON game_scores(game_id, user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_game_scores_user ON game_scores(user_id, created_at);`,
	}
	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Conn exposes the underlying pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}
