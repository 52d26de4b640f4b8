// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	// BufferSize is the number of events queued for the writer.
	BufferSize int

	// Retention is how long events are kept. Zero keeps them forever.
	Retention time.Duration

	// CleanupInterval is how often expired events are removed.
	CleanupInterval time.Duration

	// LogToStdout also writes each event to the application log.
	LogToStdout bool

	// WriteTimeout bounds a single Save.
	WriteTimeout time.Duration
}

// DefaultConfig returns the defaults used when fields are zero.
func DefaultConfig() Config {
	return Config{
		BufferSize:      1000,
		Retention:       30 * 24 * time.Hour,
		CleanupInterval: time.Hour,
		WriteTimeout:    5 * time.Second,
	}
}

// Logger queues events and writes them to a Store from one goroutine.
// Log never blocks the request path; a full queue drops the event.
//
// Logger is also a suture service whose Serve enforces retention.
type Logger struct {
	config Config
	store  Store

	events   chan *Event
	stop     chan struct{}
	stopOnce sync.Once
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// NewLogger starts the writer goroutine. Zero config fields take defaults.
func NewLogger(store Store, cfg Config) *Logger {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	l := &Logger{
		config: cfg,
		store:  store,
		events: make(chan *Event, cfg.BufferSize),
		stop:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

func (l *Logger) writer() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stop:
			for {
				select {
				case e := <-l.events:
					l.write(e)
				default:
					return
				}
			}
		case e := <-l.events:
			l.write(e)
		}
	}
}

func (l *Logger) write(e *Event) {
	if l.config.LogToStdout {
		logging.Info().
			Str("audit_id", e.ID).
			Str("action", string(e.Action)).
			Str("outcome", string(e.Outcome)).
			Str("actor_id", e.ActorID).
			Str("target_type", e.TargetType).
			Str("target_id", e.TargetID).
			Str("request_id", e.RequestID).
			Str("reason", e.Reason).
			Msg("Audit event")
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.config.WriteTimeout)
	defer cancel()
	if err := l.store.Save(ctx, e); err != nil {
		logging.Error().Err(err).Str("audit_id", e.ID).Msg("Failed to save audit event")
	}
}

// Log queues e, filling in ID and Timestamp when unset. Events logged after
// Close are dropped.
func (l *Logger) Log(e *Event) {
	if l == nil || e == nil || l.closed.Load() {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	select {
	case l.events <- e:
		metrics.RecordAuditEvent(string(e.Action), string(e.Outcome), false)
	default:
		metrics.RecordAuditEvent(string(e.Action), string(e.Outcome), true)
		logging.Warn().Str("action", string(e.Action)).Msg("Audit buffer full, dropping event")
	}
}

// Query reads events from the store. Queued events may not be visible yet.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Cleanup removes events older than the retention window.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.config.Retention <= 0 {
		return 0, nil
	}
	return l.store.DeleteOlderThan(ctx, time.Now().Add(-l.config.Retention))
}

// Serve implements suture.Service. It runs Cleanup on every interval.
func (l *Logger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := l.Cleanup(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Audit retention cleanup failed")
			} else if n > 0 {
				logging.Info().Int64("count", n).Msg("Removed expired audit events")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (l *Logger) String() string {
	return "audit-logger"
}

// Close drains queued events and stops the writer. It is safe to call more
// than once.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() {
		l.closed.Store(true)
		close(l.stop)
	})
	l.wg.Wait()
	return nil
}
