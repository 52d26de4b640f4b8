// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package changefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/protocol"
	"github.com/tomtom215/gamebridge/internal/store"
)

const (
	// ChangesTopic carries committed store change batches.
	ChangesTopic = "gamebridge.changes"

	relayTopicPrefix = "gamebridge.relay."

	// DefaultBuffer is the per-subscription handler queue length.
	DefaultBuffer = 256

	metaCorrelationID = "correlation_id"
	metaOrigin        = "origin"
)

// ErrClosed is returned by operations on a closed Feed.
var ErrClosed = errors.New("changefeed: closed")

// ChangeHandler receives one committed batch.
type ChangeHandler func(ctx context.Context, changes []store.Change)

// RelayHandler receives one relayed multiplayer event. origin identifies the
// embedding that sent it.
type RelayHandler func(ctx context.Context, origin string, ev protocol.MultiplayerEvent)

// Feed publishes and subscribes to change and relay traffic.
//
// Two kinds of traffic share a Feed:
//
//  1. Committed store changes on ChangesTopic. The store publishes them
//     through Notify after each commit, and lobby subscriptions filter them
//     by session.
//  2. Multiplayer events on one relay topic per session (RelayTopic). Each
//     message records the embedding that sent it, so a host can skip its
//     own events.
//
// Each subscription gets its own buffered queue and goroutine. A panicking
// handler is logged and the subscription keeps running. Delivery stops
// when the returned unsubscribe func runs or the Feed is closed.
//
// NewGoChannel serves a single process. NewNATS lets several gamebridge
// instances share sessions.
type Feed struct {
	pub    message.Publisher
	sub    message.Subscriber
	buffer int
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
	nextID uint64
	subs   map[uint64]context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Feed over any Watermill publisher and subscriber pair. The
// Feed takes ownership of both.
func New(pub message.Publisher, sub message.Subscriber) *Feed {
	return &Feed{
		pub:    pub,
		sub:    sub,
		buffer: DefaultBuffer,
		logger: logging.WithComponent("changefeed"),
		subs:   make(map[uint64]context.CancelFunc),
	}
}

// NewGoChannel returns an in-process Feed.
func NewGoChannel() *Feed {
	gc := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: DefaultBuffer,
		// Publish returns once every subscription has queued the message,
		// which keeps relay traffic ordered.
		BlockPublishUntilSubscriberAck: true,
	}, logging.NewWatermillLogger("changefeed"))
	return New(gc, gc)
}

type changeBatch struct {
	Changes []store.Change `json:"changes"`
}

// Notify implements store.Notifier. Publish failures are logged; the
// transaction has already committed.
func (f *Feed) Notify(ctx context.Context, changes []store.Change) {
	if err := f.PublishChanges(ctx, changes); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("changes", len(changes)).Msg("failed to publish store changes")
	}
}

// PublishChanges publishes one batch on ChangesTopic.
func (f *Feed) PublishChanges(ctx context.Context, changes []store.Change) error {
	payload, err := json.Marshal(changeBatch{Changes: changes})
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	err = f.publish(ctx, ChangesTopic, payload, "")
	metrics.RecordChangefeedPublish("changes", err)
	return err
}

// SubscribeChanges calls fn for every batch published after it returns. The
// returned function stops the subscription.
func (f *Feed) SubscribeChanges(ctx context.Context, fn ChangeHandler) (func(), error) {
	return f.subscribe(ctx, ChangesTopic, func(msgCtx context.Context, msg *message.Message) {
		var batch changeBatch
		if err := json.Unmarshal(msg.Payload, &batch); err != nil {
			f.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed change batch")
			return
		}
		fn(msgCtx, batch.Changes)
	})
}

// RelayTopic returns the topic carrying a session's multiplayer events.
func RelayTopic(sessionID string) string {
	return relayTopicPrefix + sessionID
}

// PublishRelay publishes a multiplayer event to every subscriber of the
// session.
func (f *Feed) PublishRelay(ctx context.Context, sessionID, origin string, ev protocol.MultiplayerEvent) error {
	if sessionID == "" {
		return errors.New("changefeed: session id is required")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal multiplayer event: %w", err)
	}
	err = f.publish(ctx, RelayTopic(sessionID), payload, origin)
	metrics.RecordChangefeedPublish("relay", err)
	return err
}

// SubscribeRelay calls fn for every multiplayer event published on the
// session after it returns.
func (f *Feed) SubscribeRelay(ctx context.Context, sessionID string, fn RelayHandler) (func(), error) {
	if sessionID == "" {
		return nil, errors.New("changefeed: session id is required")
	}
	return f.subscribe(ctx, RelayTopic(sessionID), func(msgCtx context.Context, msg *message.Message) {
		var ev protocol.MultiplayerEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			f.logger.Warn().Err(err).Str("session_id", sessionID).Msg("dropping malformed relay event")
			return
		}
		fn(msgCtx, msg.Metadata.Get(metaOrigin), ev)
	})
}

// Close stops every subscription and closes the backend.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	cancels := f.subs
	f.subs = make(map[uint64]context.CancelFunc)
	f.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	var errs []error
	if err := f.pub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if any(f.sub) != any(f.pub) {
		if err := f.sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	f.wg.Wait()
	return errors.Join(errs...)
}

func (f *Feed) publish(ctx context.Context, topic string, payload []byte, origin string) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrClosed
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(metaCorrelationID, id)
	}
	if origin != "" {
		msg.Metadata.Set(metaOrigin, origin)
	}
	return f.pub.Publish(topic, msg)
}

// subscribe acks each message as soon as it arrives and hands it to a
// separate goroutine, so a handler can publish without blocking its own
// delivery.
func (f *Feed) subscribe(ctx context.Context, topic string, handle func(context.Context, *message.Message)) (func(), error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	subCtx, cancel := context.WithCancel(ctx)
	f.nextID++
	id := f.nextID
	f.subs[id] = cancel
	f.wg.Add(2)
	f.mu.Unlock()

	stop := func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		cancel()
	}

	msgs, err := f.sub.Subscribe(subCtx, topic)
	if err != nil {
		stop()
		f.wg.Add(-2)
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	queue := make(chan *message.Message, f.buffer)
	go func() {
		defer f.wg.Done()
		defer close(queue)
		for msg := range msgs {
			msg.Ack()
			select {
			case queue <- msg:
			case <-subCtx.Done():
				return
			}
		}
	}()
	go func() {
		defer f.wg.Done()
		for msg := range queue {
			if subCtx.Err() != nil {
				continue
			}
			f.invoke(subCtx, topic, handle, msg)
		}
	}()

	var once sync.Once
	return func() { once.Do(stop) }, nil
}

func (f *Feed) invoke(ctx context.Context, topic string, handle func(context.Context, *message.Message), msg *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Interface("panic", r).Str("topic", topic).Msg("changefeed handler panicked")
		}
	}()
	if id := msg.Metadata.Get(metaCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	handle(ctx, msg)
}
