// ABOUTME: In-memory fan-out of inbound platform events, one stream per type.
// ABOUTME: Buffered subscriber channels; events are dropped when a subscriber lags.

package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/opsmith-io/wardroom/internal/platform"
)

// subscriberBufferSize is the channel buffer for each subscriber. A full
// buffer drops the event rather than blocking the publisher.
const subscriberBufferSize = 64

// Stream is a fan-out pub/sub for one event type. Every subscriber gets
// every published event; handlers run in their own goroutines with no
// coordination through the stream beyond delivery.
type Stream[T any] struct {
	mu     sync.RWMutex
	subs   map[string]chan T
	logger *slog.Logger
}

// NewStream creates a stream. Pass nil logger for the default.
func NewStream[T any](logger *slog.Logger) *Stream[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream[T]{
		subs:   make(map[string]chan T),
		logger: logger.With("component", "events"),
	}
}

// Subscribe registers a subscriber. The subscription is removed when ctx
// is cancelled.
func (s *Stream[T]) Subscribe(ctx context.Context) <-chan T {
	id := uuid.New().String()
	ch := make(chan T, subscriberBufferSize)

	s.mu.Lock()
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()

	return ch
}

// Publish delivers evt to all current subscribers without blocking.
func (s *Stream[T]) Publish(evt T) {
	s.mu.RLock()
	targets := make([]chan T, 0, len(s.subs))
	for _, ch := range s.subs {
		targets = append(targets, ch)
	}
	s.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- evt:
		default:
			s.logger.Warn("subscriber buffer full, dropping event")
		}
	}
}

// Bus bundles the inbound event streams the listeners consume. The
// FileShared and Message streams both fire for a single upload, in
// unspecified relative order.
type Bus struct {
	FileShared     *Stream[platform.FileSharedEvent]
	Message        *Stream[platform.MessageEvent]
	ChannelCreated *Stream[platform.ChannelCreatedEvent]
}

// NewBus creates the streams for all inbound event types.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		FileShared:     NewStream[platform.FileSharedEvent](logger),
		Message:        NewStream[platform.MessageEvent](logger),
		ChannelCreated: NewStream[platform.ChannelCreatedEvent](logger),
	}
}
